package voice

import (
	"context"
)

// Session tracks one active voice engagement in a guild, linking the live
// audio connection to a text destination and project/branch context.
type Session struct {
	GuildID        string
	VoiceChannelID string
	TextChannelID  string
	Project        string
	Branch         string

	// DeleteOnLeave requests best-effort deletion of the voice channel
	// when the session ends.
	DeleteOnLeave bool

	conn Connection

	// playSlot serializes playback on this session's connection. Capacity
	// one: holders of the slot are the only in-flight Speak for the
	// session.
	playSlot chan struct{}
}

// Connection returns the live audio connection handle.
func (s *Session) Connection() Connection { return s.conn }

// Utterance is the flushed contents of one speaker's buffer at the moment
// silence was detected, with enough context to route its result.
type Utterance struct {
	GuildID       string
	UserID        string
	PCM           []byte
	CorrelationID string
}

// MessageHandler processes a transcribed voice message and optionally
// returns reply text to be spoken back. It may run a full task pipeline
// and take arbitrary time; errors are logged at the processing boundary
// and never crash the pipeline.
type MessageHandler func(ctx context.Context, guildID, textChannelID, transcript, userName, project, branch string) (string, error)

// Transcriber converts PCM audio into text. Failures are treated as empty
// transcripts by the pipeline.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// Synthesizer converts text into playable audio. Failures are treated as
// empty audio by the pipeline.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// NameResolver provides human-friendly names for IDs when available.
// Implementations may consult caches or the Discord session state.
type NameResolver interface {
	UserName(userID string) string
	GuildName(guildID string) string
	ChannelName(channelID string) string
}
