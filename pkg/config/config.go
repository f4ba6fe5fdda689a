// Package config 加载 Actor 运行时配置
//
// 配置来源按优先级从低到高：DefaultConfig、YAML 文件、ACTOR_* 环境变量。
// [Watcher] 监听配置文件变化并通知回调，可用于热更新日志级别。
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lwmacct/251218-go-pkg-actor/pkg/actor"
)

var (
	// ErrInvalidMailboxSize 邮箱大小无效
	ErrInvalidMailboxSize = errors.New("invalid mailbox size")
	// ErrInvalidTimeout 超时时间无效
	ErrInvalidTimeout = errors.New("invalid shutdown timeout")
	// ErrInvalidLogLevel 日志级别无效
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat 日志格式无效
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidEnv 环境变量无法解析
	ErrInvalidEnv = errors.New("invalid environment variable")
)

// 日志格式
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config 运行时配置
type Config struct {
	System SystemConfig `yaml:"system"`
	Log    LogConfig    `yaml:"log"`
}

// SystemConfig Actor 系统配置
type SystemConfig struct {
	// Name 系统名称
	Name string `yaml:"name"`
	// MailboxSize 默认控制邮箱大小
	MailboxSize int `yaml:"mailbox_size"`
	// PeerMailboxSize 默认 Peer 注册通道大小
	PeerMailboxSize int `yaml:"peer_mailbox_size"`
	// ShutdownTimeout 关闭等待时间，如 "30s"
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level debug / info / warn / error
	Level string `yaml:"level"`
	// Format text / json
	Format string `yaml:"format"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		System: SystemConfig{
			Name:            "actor",
			MailboxSize:     actor.DefaultMailboxSize,
			PeerMailboxSize: actor.DefaultPeerMailboxSize,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatText,
		},
	}
}

// Validate 校验配置，返回所有问题
func (c *Config) Validate() error {
	var errs []error
	if c.System.MailboxSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: mailbox_size=%d", ErrInvalidMailboxSize, c.System.MailboxSize))
	}
	if c.System.PeerMailboxSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: peer_mailbox_size=%d", ErrInvalidMailboxSize, c.System.PeerMailboxSize))
	}
	if c.System.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidTimeout, c.System.ShutdownTimeout))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case FormatText, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format))
	}
	return errors.Join(errs...)
}

// SlogLevel 解析日志级别
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}
	return level, nil
}

// ActorConfig 转换为 actor.SystemConfig
// logger 和 metrics 可以为 nil
func (c *Config) ActorConfig(logger *slog.Logger, metrics actor.Metrics) *actor.SystemConfig {
	cfg := actor.DefaultSystemConfig()
	cfg.DefaultMailboxSize = c.System.MailboxSize
	cfg.DefaultPeerMailboxSize = c.System.PeerMailboxSize
	cfg.ShutdownTimeout = c.System.ShutdownTimeout
	cfg.Logger = logger
	cfg.Metrics = metrics
	return cfg
}
