package voice

import (
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// cacheTTL controls how long a cached name is valid.
var cacheTTL = 5 * time.Minute

type cacheEntry struct {
	val    string
	expiry time.Time
}

// discordResolver resolves display names via the Discord session, caching
// results to keep REST lookups off the processing path.
type discordResolver struct {
	s  *discordgo.Session
	mu sync.Mutex

	userCache    map[string]cacheEntry
	guildCache   map[string]cacheEntry
	channelCache map[string]cacheEntry
}

func NewDiscordResolver(s *discordgo.Session) NameResolver {
	return &discordResolver{
		s:            s,
		userCache:    make(map[string]cacheEntry),
		guildCache:   make(map[string]cacheEntry),
		channelCache: make(map[string]cacheEntry),
	}
}

func (d *discordResolver) lookup(m map[string]cacheEntry, id string, fetch func() string) string {
	if id == "" {
		return ""
	}
	d.mu.Lock()
	if e, ok := m[id]; ok && time.Now().Before(e.expiry) {
		d.mu.Unlock()
		return e.val
	}
	delete(m, id)
	d.mu.Unlock()

	val := fetch()
	if val != "" {
		d.mu.Lock()
		m[id] = cacheEntry{val: val, expiry: time.Now().Add(cacheTTL)}
		d.mu.Unlock()
	}
	return val
}

func (d *discordResolver) UserName(userID string) string {
	return d.lookup(d.userCache, userID, func() string {
		if u, err := d.s.User(userID); err == nil && u != nil {
			return u.Username
		}
		return ""
	})
}

func (d *discordResolver) GuildName(guildID string) string {
	return d.lookup(d.guildCache, guildID, func() string {
		if d.s.State != nil {
			if g, err := d.s.State.Guild(guildID); err == nil && g != nil {
				return g.Name
			}
		}
		if g, err := d.s.Guild(guildID); err == nil && g != nil {
			return g.Name
		}
		return ""
	})
}

func (d *discordResolver) ChannelName(channelID string) string {
	return d.lookup(d.channelCache, channelID, func() string {
		if d.s.State != nil {
			if c, err := d.s.State.Channel(channelID); err == nil && c != nil {
				return c.Name
			}
		}
		if c, err := d.s.Channel(channelID); err == nil && c != nil {
			return c.Name
		}
		return ""
	})
}

// NoopResolver implements NameResolver but returns empty names. Useful for
// tests or when REST lookups should be disabled.
type NoopResolver struct{}

func NewNoopResolver() *NoopResolver { return &NoopResolver{} }

func (n *NoopResolver) UserName(userID string) string       { return "" }
func (n *NoopResolver) GuildName(guildID string) string     { return "" }
func (n *NoopResolver) ChannelName(channelID string) string { return "" }
