package voice

import (
	"github.com/asianviking/takopi-discord/internal/logging"
)

// PresenceChange describes one voice-presence transition for a member:
// the channel they were in before and the channel they are in after.
// Empty channel IDs mean "not in a voice channel".
type PresenceChange struct {
	GuildID         string
	UserID          string
	Bot             bool
	BeforeChannelID string
	AfterChannelID  string
}

// OnPresenceChange reacts to voice-presence transitions. When the
// pipeline's own connection loses its channel the session is deregistered
// without further transport calls; when the last human leaves the
// session's channel the session is torn down.
func (m *Manager) OnPresenceChange(ch PresenceChange) {
	m.mu.Lock()
	sess, ok := m.sessions[ch.GuildID]
	botID := m.botUserID
	m.mu.Unlock()
	if !ok {
		return
	}

	// Our own connection was dropped externally; the transport handle is
	// already gone, so skip disconnect/delete calls against it.
	if botID != "" && ch.UserID == botID && ch.AfterChannelID == "" && ch.BeforeChannelID != "" {
		logging.Infow("voice: disconnected externally", "guild_id", ch.GuildID)
		m.deregister(ch.GuildID)
		return
	}

	// Someone left our channel: tear down once no humans remain. Bot
	// members (including this pipeline) do not keep a session alive.
	if ch.BeforeChannelID == sess.VoiceChannelID && ch.AfterChannelID != sess.VoiceChannelID {
		if m.transport.HumanCount(ch.GuildID, sess.VoiceChannelID) == 0 {
			logging.Infow("voice: channel empty, leaving", "guild_id", ch.GuildID)
			m.Leave(ch.GuildID)
		}
	}
}
