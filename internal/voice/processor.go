package voice

import (
	"time"

	"github.com/asianviking/takopi-discord/internal/logging"
	"github.com/asianviking/takopi-discord/internal/speech"
)

// processUtterance runs one utterance through transcription, the message
// handler, and playback. Failures degrade to silence: a transcript that
// cannot be produced is treated as not spoken, and a session that vanished
// mid-processing abandons the utterance without error.
func (m *Manager) processUtterance(u Utterance) {
	if m.sem != nil {
		if err := m.sem.Acquire(m.ctx, 1); err != nil {
			return
		}
		defer m.sem.Release(1)
	}

	ctx := speech.WithCorrelationID(m.ctx, u.CorrelationID)

	sess, ok := m.Session(u.GuildID)
	if !ok {
		if m.metrics != nil {
			m.metrics.UtterancesAbandoned.Inc()
		}
		logging.Debugw("voice: session gone, abandoning utterance",
			"guild_id", u.GuildID, "correlation_id", u.CorrelationID)
		return
	}

	userName := ""
	if m.resolver != nil {
		userName = m.resolver.UserName(u.UserID)
	}
	if userName == "" {
		userName = "User " + u.UserID
	}

	start := time.Now()
	if m.metrics != nil {
		m.metrics.TranscriptionRequests.Inc()
	}
	transcript, err := m.stt.Transcribe(ctx, u.PCM)
	if m.metrics != nil {
		m.metrics.TranscriptionLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if m.metrics != nil {
			m.metrics.TranscriptionFailures.Inc()
		}
		logging.Warnw("voice: transcription failed",
			"guild_id", u.GuildID, "user_id", u.UserID, "err", err,
			"correlation_id", u.CorrelationID)
		return
	}
	if transcript == "" {
		if m.metrics != nil {
			m.metrics.UtterancesAbandoned.Inc()
		}
		logging.Debugw("voice: empty transcript, skipping", "correlation_id", u.CorrelationID)
		return
	}

	if m.wake != nil {
		matched, stripped := m.wake.Detect(transcript)
		if !matched {
			logging.Debugw("voice: no wake phrase, skipping",
				"correlation_id", u.CorrelationID)
			return
		}
		if stripped != "" {
			transcript = stripped
		}
	}

	logging.Infow("voice: transcribed",
		append(logging.UserFields(u.UserID, userName),
			"guild_id", u.GuildID, "transcript", transcript,
			"correlation_id", u.CorrelationID)...)

	m.handlerMu.RLock()
	handler := m.handler
	m.handlerMu.RUnlock()
	if handler == nil {
		return
	}

	reply, err := handler(ctx, u.GuildID, sess.TextChannelID, transcript, userName, sess.Project, sess.Branch)
	if err != nil {
		if m.metrics != nil {
			m.metrics.HandlerFailures.Inc()
		}
		logging.Errorw("voice: message handler error",
			"guild_id", u.GuildID, "err", err, "correlation_id", u.CorrelationID)
		return
	}
	if reply == "" {
		return
	}

	m.Speak(ctx, u.GuildID, reply)
}
