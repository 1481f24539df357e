package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asianviking/takopi-discord/internal/config"
	"github.com/asianviking/takopi-discord/internal/llm"
	"github.com/asianviking/takopi-discord/internal/logging"
	"github.com/asianviking/takopi-discord/internal/metrics"
	"github.com/asianviking/takopi-discord/internal/speech"
	"github.com/asianviking/takopi-discord/internal/voice"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	sugar := logging.Init(cfg.Logging.Level)
	defer func() { _ = logging.Sync() }()

	if cfg.Discord.Token == "" {
		logging.FatalExitf("DISCORD_BOT_TOKEN required")
	}

	dg, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logging.FatalExitf("discordgo.New failed", "err", err)
	}
	// Guilds + GuildVoiceStates cover voice channel membership and our own
	// connection state; nothing privileged is needed.
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Address, reg)
	}

	stt := speech.NewSTTClient(cfg.Speech)
	tts := speech.NewTTSClient(cfg.Speech)
	resolver := voice.NewDiscordResolver(dg)
	transport := voice.NewDiscordTransport(dg)

	manager := voice.NewManager(transport, stt, tts, resolver, cfg.Voice, m)
	manager.SetMessageHandler(chatHandler(llm.NewClient(cfg.LLM)))

	dg.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		if r.User != nil {
			manager.SetBotUserID(r.User.ID)
			sugar.Infow("gateway ready", "user_id", r.User.ID, "username", r.User.Username)
		}
	})
	dg.AddHandler(func(_ *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		manager.OnPresenceChange(voice.PresenceChangeFromEvent(vs))
	})

	if err := dg.Open(); err != nil {
		logging.FatalExitf("discord session open failed", "err", err)
	}
	sugar.Infow("discord session opened")

	if cfg.Discord.GuildID != "" && cfg.Discord.VoiceChannelID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, err := manager.Join(ctx, cfg.Discord.GuildID, cfg.Discord.VoiceChannelID,
			cfg.Discord.TextChannelID, cfg.Discord.Project, cfg.Discord.Branch)
		cancel()
		if err != nil {
			sugar.Errorw("startup voice join failed", "err", err,
				"guild_id", cfg.Discord.GuildID, "voice_channel_id", cfg.Discord.VoiceChannelID)
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	sugar.Infow("shutting down")

	_ = manager.Close()
	_ = dg.Close()
}

func serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logging.Infow("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logging.Errorw("metrics server stopped", "err", err)
	}
}

// chatHandler builds the default message handler: each transcript becomes
// one chat completion whose reply is spoken back.
func chatHandler(client *llm.Client) voice.MessageHandler {
	return func(ctx context.Context, guildID, textChannelID, transcript, userName, project, branch string) (string, error) {
		system := "You are a voice assistant in a Discord channel. Reply briefly; your answer will be read aloud."
		if project != "" {
			system += fmt.Sprintf(" The current project is %s", project)
			if branch != "" {
				system += fmt.Sprintf(" on branch %s", branch)
			}
			system += "."
		}
		return client.Chat(ctx, []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: fmt.Sprintf("%s says: %s", userName, transcript)},
		})
	}
}
