// Package voice implements the voice-channel audio pipeline: per-speaker
// capture buffering, silence-based utterance detection, transcription,
// message handling, and serialized speech playback. One Manager owns all
// sessions; at most one session exists per guild.
package voice
