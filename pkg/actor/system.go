package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// System Actor 系统
//
// 管理具名 Actor 的创建、查找和关闭。System 只做生命周期登记：
// 不重启、不监督，Actor 终止后自动从注册表中移除。
type System struct {
	// 基本信息
	name string

	// Actor 注册表
	actors   map[string]Handle
	actorsMu sync.RWMutex

	// 生命周期控制
	wg        sync.WaitGroup
	isRunning atomic.Bool

	// 配置
	config *SystemConfig

	// 统计信息
	stats     *StatsCollector
	metrics   Metrics
	startTime time.Time

	// 日志
	logger *slog.Logger
}

// SystemConfig 系统配置
type SystemConfig struct {
	// DefaultMailboxSize 默认控制邮箱大小
	DefaultMailboxSize int
	// DefaultPeerMailboxSize 默认 Peer 注册通道大小
	DefaultPeerMailboxSize int
	// ShutdownTimeout Shutdown 的默认等待时间
	ShutdownTimeout time.Duration
	// PanicHandler 钩子 panic 处理函数
	PanicHandler PanicHandler
	// Metrics 额外的指标实现（如 Prometheus），系统内置统计始终开启
	Metrics Metrics
	// Logger 自定义日志器
	Logger *slog.Logger
}

// DefaultSystemConfig 默认系统配置
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DefaultMailboxSize:     DefaultMailboxSize,
		DefaultPeerMailboxSize: DefaultPeerMailboxSize,
		ShutdownTimeout:        30 * time.Second,
		PanicHandler:           nil, // 使用默认处理
		Metrics:                nil,
		Logger:                 nil, // 使用默认 logger
	}
}

// SystemStats 系统统计
type SystemStats struct {
	ActiveActors int
	ActorStats
}

// NewSystem 创建新的 Actor 系统
func NewSystem(name string) *System {
	return NewSystemWithConfig(name, DefaultSystemConfig())
}

// NewSystemWithConfig 使用配置创建 Actor 系统
func NewSystemWithConfig(name string, config *SystemConfig) *System {
	if config == nil {
		config = DefaultSystemConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("system", name)

	stats := NewStatsCollector()
	var metrics Metrics = stats
	if config.Metrics != nil {
		metrics = MultiMetrics(stats, config.Metrics)
	}

	s := &System{
		name:      name,
		actors:    make(map[string]Handle),
		config:    config,
		stats:     stats,
		metrics:   metrics,
		startTime: time.Now(),
		logger:    logger,
	}
	s.isRunning.Store(true)

	s.logger.Info("actor system started")
	return s
}

// Name 返回系统名称
func (s *System) Name() string {
	return s.name
}

// Spawn 创建 Actor
func (s *System) Spawn(behavior Behavior, name string) Handle {
	props := DefaultProps(name)
	props.MailboxSize = s.config.DefaultMailboxSize
	props.PeerMailboxSize = s.config.DefaultPeerMailboxSize
	return s.SpawnWithProps(behavior, props)
}

// SpawnWithProps 使用属性创建 Actor
//
// 名称已存在时返回已有的句柄。系统关闭后返回的句柄已处于终止状态，
// 其 Err() 为 ErrSystemStopped。
func (s *System) SpawnWithProps(behavior Behavior, props *Props) Handle {
	if props == nil {
		props = DefaultProps("")
	}
	p := *props
	if p.Logger == nil {
		p.Logger = s.logger
	}
	if p.Metrics == nil {
		p.Metrics = s.metrics
	} else {
		p.Metrics = MultiMetrics(s.metrics, p.Metrics)
	}
	if p.PanicHandler == nil {
		p.PanicHandler = s.config.PanicHandler
	}

	s.actorsMu.Lock()
	defer s.actorsMu.Unlock()

	if !s.isRunning.Load() {
		s.logger.Warn("spawn after shutdown", "name", p.Name)
		return stoppedHandle(p.Name, ErrSystemStopped)
	}

	// 检查名称是否已存在
	if p.Name != "" {
		if h, exists := s.actors[p.Name]; exists {
			s.logger.Warn("actor already exists, returning existing handle", "name", p.Name)
			return h
		}
	}

	c := newCore(behavior, &p)
	h := c.self
	s.actors[h.ID()] = h

	// 启动 Actor 消息循环
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		c.run()
	}()
	go s.reap(h)

	s.logger.Debug("spawned actor", "name", h.ID())
	return h
}

// reap 等待 Actor 终止后将其移出注册表
func (s *System) reap(h Handle) {
	defer s.wg.Done()
	<-h.Done()

	s.actorsMu.Lock()
	if cur, ok := s.actors[h.ID()]; ok && cur == h {
		delete(s.actors, h.ID())
	}
	s.actorsMu.Unlock()

	if err := h.Err(); err != nil {
		s.logger.Warn("actor terminated with error", "actor", h.ID(), "error", err)
	}
}

// Send 向具名 Actor 发送控制消息
func (s *System) Send(ctx context.Context, name string, msg ControlMessage) error {
	h, ok := s.GetActor(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrActorNotFound, name)
	}
	return h.Send(ctx, msg)
}

// SendPeer 向具名 Actor 投递 Peer
func (s *System) SendPeer(ctx context.Context, name string, peer Peer) error {
	h, ok := s.GetActor(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrActorNotFound, name)
	}
	return h.SendPeer(ctx, peer)
}

// Connect 将 to 注册为 from 的 Peer
func (s *System) Connect(ctx context.Context, from, to string) error {
	target, ok := s.GetActor(to)
	if !ok {
		return fmt.Errorf("%w: %s", ErrActorNotFound, to)
	}
	return s.SendPeer(ctx, from, target.Peer())
}

// Stop 停止 Actor
func (s *System) Stop(ctx context.Context, name string) error {
	return s.Send(ctx, name, Stop{})
}

// Shutdown 关闭整个 Actor 系统，使用配置的超时时间
func (s *System) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.ShutdownContext(ctx)
}

// ShutdownContext 向所有 Actor 发送 Stop 并等待它们退出
func (s *System) ShutdownContext(ctx context.Context) error {
	s.actorsMu.Lock()
	if !s.isRunning.Swap(false) {
		s.actorsMu.Unlock()
		return nil
	}
	handles := make([]Handle, 0, len(s.actors))
	for _, h := range s.actors {
		handles = append(handles, h)
	}
	s.actorsMu.Unlock()

	s.logger.Info("actor system shutting down", "actors", len(handles))

	for _, h := range handles {
		// 已关闭的邮箱说明 Actor 已在停止中
		if err := h.Stop(ctx); err != nil && !errors.Is(err, ErrMailboxClosed) {
			s.logger.Warn("failed to stop actor", "actor", h.ID(), "error", err)
		}
	}

	// 等待所有 goroutine 完成
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("actor system shutdown complete")
		return nil
	case <-ctx.Done():
		s.logger.Warn("actor system shutdown timeout")
		return fmt.Errorf("shutdown %s: %w", s.name, ctx.Err())
	}
}

// Stats 获取统计信息
func (s *System) Stats() *SystemStats {
	return &SystemStats{
		ActiveActors: s.Count(),
		ActorStats:   *s.stats.Stats(),
	}
}

// GetActor 获取 Actor
func (s *System) GetActor(name string) (Handle, bool) {
	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()

	h, ok := s.actors[name]
	return h, ok
}

// ListActors 列出所有 Actor
func (s *System) ListActors() []Handle {
	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()

	handles := make([]Handle, 0, len(s.actors))
	for _, h := range s.actors {
		handles = append(handles, h)
	}
	return handles
}

// Count 返回 Actor 数量
func (s *System) Count() int {
	s.actorsMu.RLock()
	defer s.actorsMu.RUnlock()
	return len(s.actors)
}

// IsRunning 检查系统是否运行中
func (s *System) IsRunning() bool {
	return s.isRunning.Load()
}

// Uptime 系统运行时长
func (s *System) Uptime() time.Duration {
	return time.Since(s.startTime)
}

// stoppedHandle 返回一个已终止的句柄
func stoppedHandle(name string, cause error) Handle {
	g := newGate(name)
	h := Handle{
		control: Sender[ControlMessage]{mb: newMailbox[ControlMessage](g, 0, isStop)},
		peers:   Sender[Peer]{mb: newMailbox[Peer](g, 0, nil)},
	}
	g.close(cause)
	g.finish()
	return h
}
