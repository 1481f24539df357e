package voice

import (
	"context"
	"time"

	"github.com/asianviking/takopi-discord/internal/logging"
	"github.com/asianviking/takopi-discord/internal/speech"
)

// Speak synthesizes text and plays it on the guild's session. It is a
// no-op when the session is absent, its connection is not live, or
// synthesis yields no audio. Playback is strictly one-at-a-time per
// session: the call waits for the session's playback slot and for any
// playback already running on the connection, then blocks until its own
// playback completes. Callers wanting fire-and-forget run it as a
// background task.
func (m *Manager) Speak(ctx context.Context, guildID, text string) {
	sess, ok := m.Session(guildID)
	if !ok || !sess.conn.Connected() {
		return
	}
	cid := speech.CorrelationID(ctx)

	if m.metrics != nil {
		m.metrics.SynthesisRequests.Inc()
	}
	pcm, err := m.tts.Synthesize(ctx, text)
	if err != nil {
		if m.metrics != nil {
			m.metrics.SynthesisFailures.Inc()
		}
		logging.Warnw("voice: synthesis failed", "guild_id", guildID, "err", err, "correlation_id", cid)
		return
	}
	if len(pcm) == 0 {
		return
	}

	// Acquire the session's playback slot so concurrent Speak calls queue
	// up rather than racing past the is-playing check.
	select {
	case sess.playSlot <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-sess.playSlot }()

	// The connection may still be playing audio started before we queued.
	ticker := time.NewTicker(m.cfg.PlaybackPoll())
	defer ticker.Stop()
	for sess.conn.IsPlaying() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}

	if m.metrics != nil {
		m.metrics.PlaybackStarted.Inc()
	}
	logging.Infow("voice: playing reply", "guild_id", guildID, "bytes", len(pcm), "correlation_id", cid)
	if err := sess.conn.Play(ctx, pcm); err != nil {
		if m.metrics != nil {
			m.metrics.PlaybackFailures.Inc()
		}
		logging.Warnw("voice: playback failed", "guild_id", guildID, "err", err, "correlation_id", cid)
	}
}
