package voice

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/asianviking/takopi-discord/internal/audio"
	"github.com/asianviking/takopi-discord/internal/config"
	"github.com/asianviking/takopi-discord/internal/logging"
	"github.com/asianviking/takopi-discord/internal/metrics"
)

type bufferKey struct {
	guildID string
	userID  string
}

// Manager owns all voice sessions and their audio buffers. It runs the
// silence-detection loop while any session is active and dispatches
// utterances through transcription, the message handler, and playback.
type Manager struct {
	transport Transport
	stt       Transcriber
	tts       Synthesizer
	resolver  NameResolver
	wake      *WakeDetector
	cfg       config.VoiceConfig
	metrics   *metrics.Metrics

	mu              sync.Mutex
	sessions        map[string]*Session
	buffers         map[bufferKey]*audio.Buffer
	detectorRunning bool
	botUserID       string

	handlerMu sync.RWMutex
	handler   MessageHandler

	// sem bounds concurrent utterance chains when configured; nil means
	// unlimited. Never a process-wide lock: chains for different
	// utterances proceed independently.
	sem *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager builds a Manager. resolver may be nil, in which case speaker
// names fall back to IDs.
func NewManager(transport Transport, stt Transcriber, tts Synthesizer, resolver NameResolver, cfg config.VoiceConfig, m *metrics.Metrics) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	mgr := &Manager{
		transport: transport,
		stt:       stt,
		tts:       tts,
		resolver:  resolver,
		cfg:       cfg,
		metrics:   m,
		sessions:  make(map[string]*Session),
		buffers:   make(map[bufferKey]*audio.Buffer),
		ctx:       ctx,
		cancel:    cancel,
	}
	if len(cfg.WakePhrases) > 0 {
		mgr.wake = NewWakeDetector(cfg.WakePhrases, cfg.WakeWindowSecs)
	}
	if cfg.MaxConcurrentUtterances > 0 {
		mgr.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentUtterances))
	}
	return mgr
}

// SetMessageHandler sets the handler invoked with transcribed voice
// messages.
func (m *Manager) SetMessageHandler(h MessageHandler) {
	m.handlerMu.Lock()
	m.handler = h
	m.handlerMu.Unlock()
}

// SetBotUserID records the pipeline's own user ID so lifecycle events can
// tell its connection apart from human participants.
func (m *Manager) SetBotUserID(id string) {
	m.mu.Lock()
	m.botUserID = id
	m.mu.Unlock()
}

// Join connects to a voice channel and starts listening. An existing
// session for the guild is fully torn down first, so afterwards exactly
// one session exists for the guild. Connect or capture failures propagate
// to the caller and leave no session behind.
func (m *Manager) Join(ctx context.Context, guildID, voiceChannelID, textChannelID, project, branch string) (*Session, error) {
	m.Leave(guildID)

	conn, err := m.transport.Connect(ctx, guildID, voiceChannelID)
	if err != nil {
		return nil, fmt.Errorf("voice connect failed: %w", err)
	}

	sess := &Session{
		GuildID:        guildID,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  textChannelID,
		Project:        project,
		Branch:         branch,
		DeleteOnLeave:  m.cfg.DeleteChannelOnLeave,
		conn:           conn,
		playSlot:       make(chan struct{}, 1),
	}

	if err := conn.StartCapture(func(userID string, pcm []byte) {
		m.receiveChunk(guildID, userID, pcm)
	}); err != nil {
		_ = conn.Disconnect()
		return nil, fmt.Errorf("voice capture failed: %w", err)
	}

	m.mu.Lock()
	m.sessions[guildID] = sess
	if !m.detectorRunning {
		m.detectorRunning = true
		m.wg.Add(1)
		go m.silenceCheckLoop()
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SessionsCreated.Inc()
		m.metrics.ActiveSessions.Inc()
	}
	logging.Infow("voice: joined channel",
		"guild_id", guildID, "voice_channel_id", voiceChannelID, "text_channel_id", textChannelID,
		"project", project, "branch", branch)
	return sess, nil
}

// Leave tears down the session for a guild: stops capture, disconnects,
// discards the guild's buffers, and optionally deletes the voice channel.
// It is a no-op when no session exists. Cleanup is best-effort; transport
// failures are logged and suppressed.
func (m *Manager) Leave(guildID string) {
	sess := m.removeSession(guildID)
	if sess == nil {
		return
	}

	sess.conn.StopCapture()
	if err := sess.conn.Disconnect(); err != nil {
		logging.Warnw("voice: disconnect error", "guild_id", guildID, "err", err)
	}

	if sess.DeleteOnLeave {
		if err := m.transport.DeleteChannel(sess.VoiceChannelID); err != nil {
			logging.Debugw("voice: channel delete suppressed",
				"channel_id", sess.VoiceChannelID, "err", err)
		} else {
			logging.Infow("voice: deleted channel", "channel_id", sess.VoiceChannelID, "guild_id", guildID)
		}
	}
	logging.Infow("voice: left channel", "guild_id", guildID)
}

// deregister drops a session without touching the transport, used when the
// connection is already gone.
func (m *Manager) deregister(guildID string) {
	if m.removeSession(guildID) != nil {
		logging.Infow("voice: session deregistered", "guild_id", guildID)
	}
}

// removeSession unlinks the session and its buffers from the registry and
// returns it, or nil when absent.
func (m *Manager) removeSession(guildID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[guildID]
	if !ok {
		return nil
	}
	delete(m.sessions, guildID)
	for key, buf := range m.buffers {
		if key.guildID != guildID {
			continue
		}
		if m.metrics != nil {
			m.metrics.BufferedBytes.Sub(float64(buf.Len()))
		}
		delete(m.buffers, key)
	}
	if m.metrics != nil {
		m.metrics.SessionsEnded.Inc()
		m.metrics.ActiveSessions.Dec()
	}
	return sess
}

// IsConnected reports whether the guild has a session with a live
// connection.
func (m *Manager) IsConnected(guildID string) bool {
	m.mu.Lock()
	sess, ok := m.sessions[guildID]
	m.mu.Unlock()
	return ok && sess.conn.Connected()
}

// Session returns the session for a guild, if any.
func (m *Manager) Session(guildID string) (*Session, bool) {
	m.mu.Lock()
	sess, ok := m.sessions[guildID]
	m.mu.Unlock()
	return sess, ok
}

// receiveChunk is the per-session ingest callback: it appends one PCM
// chunk to the speaker's buffer, creating the buffer lazily on first
// audio. Append-only, no I/O, safe for concurrent speakers.
func (m *Manager) receiveChunk(guildID, userID string, pcm []byte) {
	m.mu.Lock()
	if _, ok := m.sessions[guildID]; !ok {
		m.mu.Unlock()
		return
	}
	key := bufferKey{guildID: guildID, userID: userID}
	buf, ok := m.buffers[key]
	if !ok {
		buf = audio.NewBuffer(userID, m.cfg.SilenceThreshold(), m.cfg.RMSGateThreshold)
		m.buffers[key] = buf
		logging.Infow("voice: started receiving audio", "guild_id", guildID, "user_id", userID)
	}
	m.mu.Unlock()

	buf.AddChunk(pcm)
	if m.metrics != nil {
		m.metrics.ChunksReceived.Inc()
		m.metrics.BufferedBytes.Add(float64(len(pcm)))
	}
}

// Close tears down every session and waits for in-flight processing to
// stop.
func (m *Manager) Close() error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for g := range m.sessions {
		ids = append(ids, g)
	}
	m.mu.Unlock()
	for _, g := range ids {
		m.Leave(g)
	}
	m.cancel()
	m.wg.Wait()
	return nil
}
