package voice

import "context"

// ChunkFunc receives one decoded PCM chunk from a speaker. It is invoked
// from the transport's delivery path and must not block.
type ChunkFunc func(userID string, pcm []byte)

// Connection is a live audio connection to one voice channel.
type Connection interface {
	// StartCapture begins per-speaker audio delivery to onChunk.
	StartCapture(onChunk ChunkFunc) error
	// StopCapture stops audio delivery. Safe to call when not capturing.
	StopCapture()
	// Play streams pcm (fixed capture format) through the connection and
	// returns once playback completes or ctx is done.
	Play(ctx context.Context, pcm []byte) error
	// IsPlaying reports whether audio is currently being played.
	IsPlaying() bool
	// Connected reports whether the connection is live.
	Connected() bool
	// Disconnect tears the connection down.
	Disconnect() error
}

// Transport is the voice transport consumed by the Manager. The production
// implementation wraps discordgo; tests substitute fakes.
type Transport interface {
	// Connect establishes an audio connection to the given voice channel.
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
	// DeleteChannel deletes a voice channel, returning nil when the
	// channel is already gone or the caller lacks permission.
	DeleteChannel(channelID string) error
	// HumanCount returns the number of non-bot members currently in the
	// voice channel.
	HumanCount(guildID, channelID string) int
}
