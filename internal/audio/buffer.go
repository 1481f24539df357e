package audio

import (
	"sync"
	"time"
)

// Buffer accumulates not-yet-processed speech from one speaker. Chunks are
// kept in arrival order and never reordered or dropped; Flush returns the
// concatenated bytes and clears the chunk list in one atomic step so no
// chunk is delivered twice or lost between detection and flush.
type Buffer struct {
	mu sync.Mutex

	userID           string
	chunks           [][]byte
	bytes            int
	lastVoice        time.Time
	lastAboveGate    time.Time
	silenceThreshold time.Duration
	rmsGate          int // 0 disables the RMS gate
}

// NewBuffer creates a buffer for one speaker with the given silence
// threshold. rmsGate, when positive, makes the silence clock key off the
// last chunk whose RMS level reached the gate instead of the last chunk
// received.
func NewBuffer(userID string, silenceThreshold time.Duration, rmsGate int) *Buffer {
	return &Buffer{
		userID:           userID,
		silenceThreshold: silenceThreshold,
		rmsGate:          rmsGate,
	}
}

// UserID returns the speaker this buffer belongs to.
func (b *Buffer) UserID() string { return b.userID }

// AddChunk appends an audio chunk and stamps the last-voice time. The
// chunk is copied so the caller may reuse its slice. Append does no I/O
// and is safe to call from the audio delivery path.
func (b *Buffer) AddChunk(chunk []byte) {
	c := make([]byte, len(chunk))
	copy(c, chunk)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, c)
	b.bytes += len(c)
	b.lastVoice = time.Now()
	if b.rmsGate > 0 && RMS(c) >= b.rmsGate {
		b.lastAboveGate = b.lastVoice
	}
}

// SilenceDetected reports whether enough silence has passed since the last
// chunk (or, with the RMS gate enabled, the last above-gate chunk) for the
// buffer to be eligible for processing. An empty buffer is never eligible.
func (b *Buffer) SilenceDetected(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.chunks) == 0 {
		return false
	}
	ref := b.lastVoice
	if b.rmsGate > 0 && !b.lastAboveGate.IsZero() {
		ref = b.lastAboveGate
	}
	return now.Sub(ref) >= b.silenceThreshold
}

// DurationMS returns the accumulated audio duration in milliseconds.
func (b *Buffer) DurationMS() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return DurationMS(b.bytes)
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bytes
}

// Flush returns all buffered audio in arrival order and clears the buffer.
func (b *Buffer) Flush() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, 0, b.bytes)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	b.chunks = nil
	b.bytes = 0
	b.lastAboveGate = time.Time{}
	return out
}
