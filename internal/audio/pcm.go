package audio

import "math"

// Fixed capture format. Discord delivers 48 kHz stereo, and the 16-bit
// sample width is assumed by all duration math and WAV wrapping.
const (
	SampleRate  = 48000
	Channels    = 2
	SampleWidth = 2 // bytes per sample

	// BytesPerSecond is SampleRate * Channels * SampleWidth.
	BytesPerSecond = SampleRate * Channels * SampleWidth
)

// DurationMS returns the duration in milliseconds of n bytes of PCM audio
// at the fixed capture format.
func DurationMS(n int) float64 {
	return float64(n) / float64(BytesPerSecond) * 1000
}

// RMS computes the root-mean-square level of 16-bit little-endian PCM
// bytes. A trailing odd byte is ignored.
func RMS(pcm []byte) int {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	var sumSq int64
	for i := 0; i < samples; i++ {
		s := int64(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
		sumSq += s * s
	}
	return int(math.Sqrt(float64(sumSq / int64(samples))))
}
