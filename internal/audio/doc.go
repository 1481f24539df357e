// Package audio handles per-speaker PCM buffering and format conversion.
// It implements the fixed 48 kHz stereo 16-bit capture format used across
// the pipeline: chunk accumulation with silence tracking, duration math,
// and WAV encoding for transcription requests.
package audio
