package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Logger is the canonical structured logging interface used by the project.
// Keep it small and focused on key/value structured events.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatalw(msg string, keysAndValues ...interface{})
	Sync() error
}

// noopLogger is a tiny, extremely cheap logger that does nothing. It is the
// default so logging calls are safe before Init is invoked.
type noopLogger struct{}

func (n noopLogger) Infow(msg string, keysAndValues ...interface{})  {}
func (n noopLogger) Debugw(msg string, keysAndValues ...interface{}) {}
func (n noopLogger) Warnw(msg string, keysAndValues ...interface{})  {}
func (n noopLogger) Errorw(msg string, keysAndValues ...interface{}) {}
func (n noopLogger) Fatalw(msg string, keysAndValues ...interface{}) {}
func (n noopLogger) Sync() error                                     { return nil }

var current Logger = noopLogger{}

// Init initializes the global sugared logger at the given level ("debug",
// "info", "warn", "error") and redirects the standard library logger into
// zap. Callers invoke this once in main(); repeated calls are no-ops.
func Init(level string) *zap.SugaredLogger {
	once.Do(func() {
		cfg := zap.Config{
			Encoding:         "json",
			EncoderConfig:    zap.NewProductionEncoderConfig(),
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		}
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.CallerKey = "caller"

		lvl := zap.InfoLevel
		switch strings.ToLower(strings.TrimSpace(level)) {
		case "debug":
			lvl = zap.DebugLevel
		case "warn":
			lvl = zap.WarnLevel
		case "error":
			lvl = zap.ErrorLevel
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)

		logger, _ := cfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
		_ = zap.RedirectStdLog(logger)
		sugar = logger.Sugar()
		current = sugar
	})
	return sugar
}

// Sugar returns the initialized sugared logger (may be nil if Init not called).
func Sugar() *zap.SugaredLogger { return sugar }

// SetLogger replaces the package-level logger. Pass nil to reset to the
// sugared logger initialized by Init() (if any). Useful for tests.
func SetLogger(l Logger) {
	if l == nil {
		if sugar != nil {
			current = sugar
		} else {
			current = noopLogger{}
		}
	} else {
		current = l
	}
}

func Infow(msg string, keysAndValues ...interface{})  { current.Infow(msg, keysAndValues...) }
func Debugw(msg string, keysAndValues ...interface{}) { current.Debugw(msg, keysAndValues...) }
func Warnw(msg string, keysAndValues ...interface{})  { current.Warnw(msg, keysAndValues...) }
func Errorw(msg string, keysAndValues ...interface{}) { current.Errorw(msg, keysAndValues...) }

// FatalExitf logs a fatal message and exits the process with code 1. Tests
// can replace the logger via SetLogger to avoid process exit during test runs.
func FatalExitf(msg string, keysAndValues ...interface{}) {
	current.Fatalw(msg, keysAndValues...)
	os.Exit(1)
}

// Sync flushes any buffered logs.
func Sync() error { return current.Sync() }

// Helper functions that return sugared logger key/value pairs for common
// Discord entities. Canonical dot-separated keys make downstream queries
// easier.
func UserFields(userID, userName string) []interface{} {
	if userName == "" {
		return []interface{}{"user.id", userID}
	}
	return []interface{}{"user.id", userID, "user.name", userName}
}

func GuildFields(guildID, guildName string) []interface{} {
	if guildName == "" {
		return []interface{}{"guild.id", guildID}
	}
	return []interface{}{"guild.id", guildID, "guild.name", guildName}
}

func ChannelFields(channelID, channelName string) []interface{} {
	if channelName == "" {
		return []interface{}{"channel.id", channelID}
	}
	return []interface{}{"channel.id", channelID, "channel.name", channelName}
}
