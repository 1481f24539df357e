package voice

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/hraban/opus"

	"github.com/asianviking/takopi-discord/internal/audio"
	"github.com/asianviking/takopi-discord/internal/logging"
)

const (
	// frameSamples is the number of samples per channel in one 20 ms opus
	// frame at the capture rate.
	frameSamples = audio.SampleRate / 50
	// maxFrameSamples covers the largest opus frame (120 ms).
	maxFrameSamples = 6 * frameSamples
)

// DiscordTransport implements Transport over a discordgo session.
type DiscordTransport struct {
	session *discordgo.Session
}

func NewDiscordTransport(s *discordgo.Session) *DiscordTransport {
	return &DiscordTransport{session: s}
}

func (t *DiscordTransport) Connect(ctx context.Context, guildID, channelID string) (Connection, error) {
	vc, err := t.session.ChannelVoiceJoin(guildID, channelID, false, false)
	if err != nil {
		return nil, err
	}
	conn := &discordConnection{
		vc:       vc,
		ssrcMap:  make(map[uint32]string),
		decoders: make(map[uint32]*opus.Decoder),
	}
	// Speaking updates arrive on the voice websocket and carry the
	// SSRC -> user mapping needed to attribute audio packets.
	vc.AddHandler(func(_ *discordgo.VoiceConnection, su *discordgo.VoiceSpeakingUpdate) {
		conn.mapSSRC(uint32(su.SSRC), su.UserID)
	})
	return conn, nil
}

// DeleteChannel removes a voice channel. The channel may already be gone
// or the bot may lack permission; both are treated as success.
func (t *DiscordTransport) DeleteChannel(channelID string) error {
	_, err := t.session.ChannelDelete(channelID)
	if err == nil {
		return nil
	}
	if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusForbidden:
			return nil
		}
	}
	return err
}

// HumanCount counts non-bot members in a voice channel using session
// state. Members the state cannot resolve are counted as human so a
// session is never torn down on incomplete data.
func (t *DiscordTransport) HumanCount(guildID, channelID string) int {
	if t.session.State == nil {
		return 0
	}
	gs, err := t.session.State.Guild(guildID)
	if err != nil || gs == nil {
		return 0
	}
	count := 0
	for _, vs := range gs.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if member, err := t.session.State.Member(guildID, vs.UserID); err == nil && member != nil && member.User != nil && member.User.Bot {
			continue
		}
		count++
	}
	return count
}

// PresenceChangeFromEvent converts a discordgo voice state update into the
// transport-neutral presence change consumed by the Manager.
func PresenceChangeFromEvent(vs *discordgo.VoiceStateUpdate) PresenceChange {
	ch := PresenceChange{
		GuildID:        vs.GuildID,
		UserID:         vs.UserID,
		AfterChannelID: vs.ChannelID,
	}
	if vs.BeforeUpdate != nil {
		ch.BeforeChannelID = vs.BeforeUpdate.ChannelID
	}
	if vs.Member != nil && vs.Member.User != nil {
		ch.Bot = vs.Member.User.Bot
	}
	return ch
}

// discordConnection wraps one discordgo voice connection, decoding inbound
// opus packets to PCM and encoding PCM back to opus for playback.
type discordConnection struct {
	vc *discordgo.VoiceConnection

	mu       sync.Mutex
	ssrcMap  map[uint32]string
	decoders map[uint32]*opus.Decoder

	captureCancel context.CancelFunc
	playing       atomic.Bool
}

func (c *discordConnection) mapSSRC(ssrc uint32, userID string) {
	c.mu.Lock()
	c.ssrcMap[ssrc] = userID
	c.mu.Unlock()
	logging.Debugw("voice: mapped ssrc", "ssrc", ssrc, "user_id", userID)
}

// StartCapture reads opus packets off the voice connection, decodes them
// per SSRC, and forwards PCM chunks attributed to users. Packets whose
// SSRC has no user mapping yet are dropped; the mapping arrives with the
// first speaking update.
func (c *discordConnection) StartCapture(onChunk ChunkFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.captureCancel != nil {
		return fmt.Errorf("capture already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.captureCancel = cancel

	go func() {
		pcm := make([]int16, maxFrameSamples*audio.Channels)
		for {
			select {
			case <-ctx.Done():
				return
			case pkt, ok := <-c.vc.OpusRecv:
				if !ok {
					return
				}
				c.handlePacket(pkt, pcm, onChunk)
			}
		}
	}()
	return nil
}

func (c *discordConnection) handlePacket(pkt *discordgo.Packet, pcm []int16, onChunk ChunkFunc) {
	c.mu.Lock()
	userID := c.ssrcMap[pkt.SSRC]
	dec, ok := c.decoders[pkt.SSRC]
	if !ok {
		var err error
		dec, err = opus.NewDecoder(audio.SampleRate, audio.Channels)
		if err != nil {
			c.mu.Unlock()
			logging.Errorw("voice: opus decoder create failed", "ssrc", pkt.SSRC, "err", err)
			return
		}
		c.decoders[pkt.SSRC] = dec
	}
	c.mu.Unlock()

	if userID == "" {
		logging.Debugw("voice: dropping packet from unmapped ssrc", "ssrc", pkt.SSRC)
		return
	}

	n, err := dec.Decode(pkt.Opus, pcm)
	if err != nil {
		logging.Errorw("voice: opus decode error", "ssrc", pkt.SSRC, "err", err)
		return
	}
	samples := pcm[:n*audio.Channels]
	chunk := make([]byte, len(samples)*2)
	for i, s := range samples {
		chunk[2*i] = byte(s)
		chunk[2*i+1] = byte(s >> 8)
	}
	onChunk(userID, chunk)
}

func (c *discordConnection) StopCapture() {
	c.mu.Lock()
	cancel := c.captureCancel
	c.captureCancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Play encodes pcm into 20 ms opus frames and streams them through the
// connection. discordgo paces the send channel at frame rate, so pushing
// frames until the channel drains tracks real playback time.
func (c *discordConnection) Play(ctx context.Context, pcm []byte) error {
	if !c.Connected() {
		return fmt.Errorf("voice connection not ready")
	}
	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		return fmt.Errorf("opus encoder create failed: %w", err)
	}

	c.playing.Store(true)
	defer c.playing.Store(false)

	if err := c.vc.Speaking(true); err != nil {
		return err
	}
	defer func() { _ = c.vc.Speaking(false) }()

	frame := make([]int16, frameSamples*audio.Channels)
	buf := make([]byte, 4000)
	total := len(pcm) / 2
	for off := 0; off < total; off += len(frame) {
		for i := range frame {
			idx := off + i
			if idx < total {
				frame[i] = int16(uint16(pcm[2*idx]) | uint16(pcm[2*idx+1])<<8)
			} else {
				frame[i] = 0 // pad the final frame with silence
			}
		}
		n, err := enc.Encode(frame, buf)
		if err != nil {
			return fmt.Errorf("opus encode failed: %w", err)
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case c.vc.OpusSend <- data:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (c *discordConnection) IsPlaying() bool { return c.playing.Load() }

func (c *discordConnection) Connected() bool {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.Ready
}

func (c *discordConnection) Disconnect() error {
	c.StopCapture()
	return c.vc.Disconnect()
}
