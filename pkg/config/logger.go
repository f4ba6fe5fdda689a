package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger 根据日志配置创建 slog.Logger
//
// 返回的 LevelVar 可在运行时修改级别，配合 [Watcher] 实现热更新。
// w 为 nil 时写入 os.Stderr。
func NewLogger(cfg LogConfig, w io.Writer) (*slog.Logger, *slog.LevelVar, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	if w == nil {
		w = os.Stderr
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(level)
	opts := &slog.HandlerOptions{Level: levelVar}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, FormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), levelVar, nil
}

// LevelUpdater 返回在配置变化时更新日志级别的回调
func LevelUpdater(levelVar *slog.LevelVar, logger *slog.Logger) ChangeFunc {
	return func(oldCfg, newCfg *Config) {
		level, err := newCfg.Log.SlogLevel()
		if err != nil {
			return
		}
		if oldCfg != nil && oldCfg.Log.Level == newCfg.Log.Level {
			return
		}
		levelVar.Set(level)
		if logger != nil {
			logger.Info("log level changed", "level", level.String())
		}
	}
}
