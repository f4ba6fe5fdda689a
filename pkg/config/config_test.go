package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251218-go-pkg-actor/pkg/actor"
)

var quietLogger = slog.New(slog.DiscardHandler)

// noEnv 不读取任何环境变量的加载器
func noEnv() *Loader {
	return NewLoader().SetEnvPrefix("")
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, actor.DefaultMailboxSize, cfg.System.MailboxSize)
	assert.Equal(t, actor.DefaultPeerMailboxSize, cfg.System.PeerMailboxSize)
	assert.Equal(t, 30*time.Second, cfg.System.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{
			name:   "zero mailbox",
			modify: func(c *Config) { c.System.MailboxSize = 0 },
			want:   ErrInvalidMailboxSize,
		},
		{
			name:   "negative peer mailbox",
			modify: func(c *Config) { c.System.PeerMailboxSize = -1 },
			want:   ErrInvalidMailboxSize,
		},
		{
			name:   "zero timeout",
			modify: func(c *Config) { c.System.ShutdownTimeout = 0 },
			want:   ErrInvalidTimeout,
		},
		{
			name:   "unknown level",
			modify: func(c *Config) { c.Log.Level = "verbose" },
			want:   ErrInvalidLogLevel,
		},
		{
			name:   "unknown format",
			modify: func(c *Config) { c.Log.Format = "xml" },
			want:   ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestConfigValidation_AllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.System.MailboxSize = 0
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalidMailboxSize)
	assert.ErrorIs(t, err, ErrInvalidLogFormat)
}

func TestLoader_Parse(t *testing.T) {
	cfg, err := noEnv().Parse([]byte(`
system:
  name: workers
  mailbox_size: 512
  shutdown_timeout: 5s
log:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "workers", cfg.System.Name)
	assert.Equal(t, 512, cfg.System.MailboxSize)
	assert.Equal(t, 5*time.Second, cfg.System.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 未出现的字段保留默认值
	assert.Equal(t, actor.DefaultPeerMailboxSize, cfg.System.PeerMailboxSize)
	assert.Equal(t, FormatText, cfg.Log.Format)
}

func TestLoader_ParseInvalid(t *testing.T) {
	_, err := noEnv().Parse([]byte("system: [unterminated"))
	require.Error(t, err)

	_, err = noEnv().Parse([]byte("system:\n  mailbox_size: -5\n"))
	assert.ErrorIs(t, err, ErrInvalidMailboxSize)
}

func TestLoader_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actor.yaml")
	writeConfig(t, path, "system:\n  name: from-file\n")

	cfg, err := noEnv().Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.System.Name)

	_, err = noEnv().Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	cfg, err = noEnv().Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("ACTOR_SYSTEM_NAME", "from-env")
	t.Setenv("ACTOR_MAILBOX_SIZE", "64")
	t.Setenv("ACTOR_PEER_MAILBOX_SIZE", "8")
	t.Setenv("ACTOR_SHUTDOWN_TIMEOUT", "2s")
	t.Setenv("ACTOR_LOG_LEVEL", "warn")
	t.Setenv("ACTOR_LOG_FORMAT", "json")

	cfg, err := NewLoader().Parse([]byte("system:\n  name: from-file\n  mailbox_size: 10\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.System.Name)
	assert.Equal(t, 64, cfg.System.MailboxSize)
	assert.Equal(t, 8, cfg.System.PeerMailboxSize)
	assert.Equal(t, 2*time.Second, cfg.System.ShutdownTimeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, FormatJSON, cfg.Log.Format)
}

func TestLoader_EnvInvalid(t *testing.T) {
	t.Setenv("ACTOR_MAILBOX_SIZE", "lots")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalidEnv)
	assert.Contains(t, err.Error(), "ACTOR_MAILBOX_SIZE")
}

func TestLoader_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_SYSTEM_NAME", "custom")
	t.Setenv("ACTOR_SYSTEM_NAME", "ignored")

	cfg, err := NewLoader().SetEnvPrefix("MYAPP").Load("")
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.System.Name)
}

func TestConfig_ActorConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.System.MailboxSize = 7
	cfg.System.PeerMailboxSize = 3
	cfg.System.ShutdownTimeout = time.Second
	stats := actor.NewStatsCollector()

	sc := cfg.ActorConfig(quietLogger, stats)
	assert.Equal(t, 7, sc.DefaultMailboxSize)
	assert.Equal(t, 3, sc.DefaultPeerMailboxSize)
	assert.Equal(t, time.Second, sc.ShutdownTimeout)
	assert.Same(t, quietLogger, sc.Logger)

	// 配置驱动的系统可以正常工作
	sys := actor.NewSystemWithConfig(cfg.System.Name, sc)
	h := sys.Spawn(actor.BaseBehavior{}, "configured")
	require.NoError(t, h.Execute(t.Context()))
	require.NoError(t, sys.Shutdown())
	assert.Equal(t, int64(1), stats.Stats().ActorsStarted)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, level, err := NewLogger(LogConfig{Level: "warn", Format: FormatJSON}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	level.Set(slog.LevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")

	_, _, err = NewLogger(LogConfig{Level: "loud"}, &buf)
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := NewLogger(LogConfig{Level: "info", Format: FormatText}, &buf)
	require.NoError(t, err)

	logger.Info("hello", "actor", "a")
	assert.True(t, strings.Contains(buf.String(), "msg=hello actor=a"))
}

func TestLevelUpdater(t *testing.T) {
	level := &slog.LevelVar{}
	update := LevelUpdater(level, quietLogger)

	oldCfg := DefaultConfig()
	newCfg := DefaultConfig()
	newCfg.Log.Level = "error"

	update(oldCfg, newCfg)
	assert.Equal(t, slog.LevelError, level.Level())

	// 非法级别被忽略
	bad := DefaultConfig()
	bad.Log.Level = "nope"
	update(newCfg, bad)
	assert.Equal(t, slog.LevelError, level.Level())
}

// ============== Watcher ==============

func TestWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actor.yaml")
	writeConfig(t, path, "log:\n  level: info\n")

	w, err := NewWatcher(path, noEnv(), quietLogger)
	require.NoError(t, err)
	w.SetDebounce(10 * time.Millisecond)
	assert.Equal(t, "info", w.Config().Log.Level)

	level := &slog.LevelVar{}
	var changes atomic.Int32
	w.OnChange(LevelUpdater(level, nil))
	w.OnChange(func(oldCfg, newCfg *Config) {
		changes.Add(1)
	})

	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(func() { _ = w.Stop() })

	writeConfig(t, path, "log:\n  level: debug\n")

	require.Eventually(t, func() bool {
		return w.Config().Log.Level == "debug"
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return level.Level() == slog.LevelDebug
	}, time.Second, 10*time.Millisecond)
	assert.Positive(t, changes.Load())
}

func TestWatcher_InvalidReloadKeepsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actor.yaml")
	writeConfig(t, path, "system:\n  name: stable\n")

	w, err := NewWatcher(path, noEnv(), quietLogger)
	require.NoError(t, err)

	writeConfig(t, path, "system:\n  mailbox_size: 0\n")
	assert.ErrorIs(t, w.Reload(), ErrInvalidMailboxSize)
	assert.Equal(t, "stable", w.Config().System.Name)
}

func TestWatcher_CallbackPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actor.yaml")
	writeConfig(t, path, "system:\n  name: a\n")

	w, err := NewWatcher(path, noEnv(), quietLogger)
	require.NoError(t, err)

	var after atomic.Bool
	w.OnChange(func(_, _ *Config) { panic("bad callback") })
	w.OnChange(func(_, _ *Config) { after.Store(true) })

	writeConfig(t, path, "system:\n  name: b\n")
	require.NotPanics(t, func() {
		require.NoError(t, w.Reload())
	})
	assert.True(t, after.Load())
	assert.Equal(t, "b", w.Config().System.Name)
}

func TestWatcher_MissingFile(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), noEnv(), quietLogger)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatcher_StopBeforeStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actor.yaml")
	writeConfig(t, path, "")

	w, err := NewWatcher(path, noEnv(), quietLogger)
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
}
