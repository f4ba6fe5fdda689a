package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce 文件变化后的合并等待时间
const DefaultDebounce = 100 * time.Millisecond

// ChangeFunc 配置变化回调
type ChangeFunc func(oldCfg, newCfg *Config)

// Watcher 监听配置文件变化并重新加载
//
// 监听的是文件所在目录，编辑器"写临时文件再重命名"的保存方式同样能被捕获。
// 重新加载失败时保留旧配置。
type Watcher struct {
	path   string
	loader *Loader
	logger *slog.Logger

	debounce time.Duration

	cfg   *Config
	cfgMu sync.RWMutex

	callbacks   []ChangeFunc
	callbacksMu sync.RWMutex

	fsWatcher *fsnotify.Watcher
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewWatcher 加载初始配置并创建监听器，调用 Start 后开始监听
func NewWatcher(path string, loader *Loader, logger *slog.Logger) (*Watcher, error) {
	if loader == nil {
		loader = NewLoader()
	}
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	cfg, err := loader.Load(abs)
	if err != nil {
		return nil, err
	}

	return &Watcher{
		path:     abs,
		loader:   loader,
		logger:   logger.With("config", abs),
		debounce: DefaultDebounce,
		cfg:      cfg,
	}, nil
}

// SetDebounce 设置合并等待时间，必须在 Start 之前调用
func (w *Watcher) SetDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Config 返回当前配置
func (w *Watcher) Config() *Config {
	w.cfgMu.RLock()
	defer w.cfgMu.RUnlock()
	return w.cfg
}

// OnChange 注册配置变化回调
// 回调在监听 goroutine 中依次执行
func (w *Watcher) OnChange(fn ChangeFunc) {
	w.callbacksMu.Lock()
	w.callbacks = append(w.callbacks, fn)
	w.callbacksMu.Unlock()
}

// Start 开始监听，ctx 取消或调用 Stop 后退出
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.fsWatcher = fsw
	w.cancel = cancel

	w.wg.Add(1)
	go w.loop(ctx)

	w.logger.Debug("config watcher started")
	return nil
}

// Stop 停止监听并等待 goroutine 退出
func (w *Watcher) Stop() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

// Reload 立即重新加载配置
func (w *Watcher) Reload() error {
	newCfg, err := w.loader.Load(w.path)
	if err != nil {
		return err
	}

	w.cfgMu.Lock()
	oldCfg := w.cfg
	w.cfg = newCfg
	w.cfgMu.Unlock()

	w.logger.Info("config reloaded")
	w.notify(oldCfg, newCfg)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	// 连续的写事件合并为一次加载
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			if err := w.Reload(); err != nil {
				w.logger.Warn("config reload failed, keeping previous config", "error", err)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) notify(oldCfg, newCfg *Config) {
	w.callbacksMu.RLock()
	callbacks := make([]ChangeFunc, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.callbacksMu.RUnlock()

	for _, fn := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("config change callback panicked", "error", r)
				}
			}()
			fn(oldCfg, newCfg)
		}()
	}
}
