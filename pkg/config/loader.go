package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix 默认环境变量前缀
const DefaultEnvPrefix = "ACTOR"

// Loader 配置加载器
type Loader struct {
	envPrefix string
	lookupEnv func(string) (string, bool)
}

// NewLoader 创建加载器，使用 ACTOR_ 前缀读取环境变量
func NewLoader() *Loader {
	return &Loader{
		envPrefix: DefaultEnvPrefix,
		lookupEnv: os.LookupEnv,
	}
}

// SetEnvPrefix 设置环境变量前缀，为空时不读取环境变量
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load 从文件加载配置，path 为空时只使用默认值和环境变量
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		return l.finish(DefaultConfig())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse 解析 YAML，未出现的字段保留默认值
func (l *Loader) Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return l.finish(cfg)
}

func (l *Loader) finish(cfg *Config) (*Config, error) {
	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnv 用环境变量覆盖配置
//
//	ACTOR_SYSTEM_NAME        system.name
//	ACTOR_MAILBOX_SIZE       system.mailbox_size
//	ACTOR_PEER_MAILBOX_SIZE  system.peer_mailbox_size
//	ACTOR_SHUTDOWN_TIMEOUT   system.shutdown_timeout
//	ACTOR_LOG_LEVEL          log.level
//	ACTOR_LOG_FORMAT         log.format
func (l *Loader) applyEnv(cfg *Config) error {
	if l.envPrefix == "" {
		return nil
	}
	if v, ok := l.env("SYSTEM_NAME"); ok {
		cfg.System.Name = v
	}
	if v, ok := l.env("MAILBOX_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return l.envError("MAILBOX_SIZE", v, err)
		}
		cfg.System.MailboxSize = n
	}
	if v, ok := l.env("PEER_MAILBOX_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return l.envError("PEER_MAILBOX_SIZE", v, err)
		}
		cfg.System.PeerMailboxSize = n
	}
	if v, ok := l.env("SHUTDOWN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return l.envError("SHUTDOWN_TIMEOUT", v, err)
		}
		cfg.System.ShutdownTimeout = d
	}
	if v, ok := l.env("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := l.env("LOG_FORMAT"); ok {
		cfg.Log.Format = v
	}
	return nil
}

func (l *Loader) env(key string) (string, bool) {
	v, ok := l.lookupEnv(l.envPrefix + "_" + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (l *Loader) envError(key, value string, err error) error {
	return fmt.Errorf("%w: %s_%s=%q: %v", ErrInvalidEnv, l.envPrefix, key, value, err)
}

// Load 使用默认加载器加载配置
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}
