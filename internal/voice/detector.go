package voice

import (
	"time"

	"github.com/google/uuid"

	"github.com/asianviking/takopi-discord/internal/audio"
	"github.com/asianviking/takopi-discord/internal/logging"
)

// silenceCheckLoop scans all buffers on a fixed interval and dispatches
// those whose silence gap and accumulated duration cross the configured
// thresholds. A single loop serves all sessions; it exits when no
// sessions remain and is restarted by the next Join.
func (m *Manager) silenceCheckLoop() {
	defer m.wg.Done()
	logging.Debugw("voice: silence check loop started")
	ticker := time.NewTicker(m.cfg.PollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			m.mu.Lock()
			m.detectorRunning = false
			m.mu.Unlock()
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		if len(m.sessions) == 0 {
			m.detectorRunning = false
			m.mu.Unlock()
			logging.Debugw("voice: silence check loop stopped, no sessions")
			return
		}
		now := time.Now()
		var selected []*audio.Buffer
		var guilds []string
		for key, buf := range m.buffers {
			if buf.SilenceDetected(now) && buf.DurationMS() >= float64(m.cfg.MinUtteranceMs) {
				selected = append(selected, buf)
				guilds = append(guilds, key.guildID)
			}
		}
		m.mu.Unlock()

		for i, buf := range selected {
			pcm := buf.Flush()
			if len(pcm) == 0 {
				continue
			}
			utt := Utterance{
				GuildID:       guilds[i],
				UserID:        buf.UserID(),
				PCM:           pcm,
				CorrelationID: uuid.NewString(),
			}
			if m.metrics != nil {
				m.metrics.BufferedBytes.Sub(float64(len(pcm)))
				m.metrics.UtterancesDispatched.Inc()
				m.metrics.UtteranceDuration.Observe(audio.DurationMS(len(pcm)) / 1000)
			}
			logging.Infow("voice: utterance detected",
				"guild_id", utt.GuildID, "user_id", utt.UserID,
				"bytes", len(pcm), "duration_ms", audio.DurationMS(len(pcm)),
				"correlation_id", utt.CorrelationID)

			// Each utterance is an independent unit of work; the detector
			// never waits for processing.
			m.wg.Add(1)
			go func(u Utterance) {
				defer m.wg.Done()
				m.processUtterance(u)
			}(utt)
		}
	}
}
