package actor

import (
	"sync"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// 运行时统计信息
// ═══════════════════════════════════════════════════════════════════════════

// ActorStats Actor 运行时统计快照
type ActorStats struct {
	// Actor 计数
	ActorsStarted int64 // 启动的 Actor 数
	ActorsStopped int64 // 已退出的 Actor 数（含失败）
	ActorsFailed  int64 // 因钩子失败退出的 Actor 数

	// 消息计数
	MessagesHandled      int64 // 处理完成的控制消息数
	HookFailures         int64 // 钩子失败次数
	PeersRegistered      int64 // 注册的 Peer 数
	PeerDeliveryFailures int64 // 广播投递失败数
	DeadLetters          int64 // 终止时丢弃的消息数

	// 延迟统计
	TotalLatency   time.Duration // 总延迟（用于计算平均值）
	AverageLatency time.Duration // 平均延迟
	MaxLatency     time.Duration // 最大延迟
	MinLatency     time.Duration // 最小延迟

	// 时间戳
	StartedAt     time.Time // 收集器创建时间
	LastMessageAt time.Time // 最后消息时间
	LastErrorAt   time.Time // 最后错误时间

	// 错误信息
	LastError error // 最后一个错误
}

// Running 当前运行中的 Actor 数
func (s *ActorStats) Running() int64 {
	return s.ActorsStarted - s.ActorsStopped
}

// Clone 克隆统计信息
func (s *ActorStats) Clone() *ActorStats {
	c := *s
	return &c
}

// ═══════════════════════════════════════════════════════════════════════════
// StatsCollector 统计收集器
// ═══════════════════════════════════════════════════════════════════════════

// StatsCollector 线程安全的统计收集器，实现 Metrics 接口
type StatsCollector struct {
	mu    sync.RWMutex
	stats ActorStats
}

// NewStatsCollector 创建统计收集器
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		stats: ActorStats{
			StartedAt:  time.Now(),
			MinLatency: time.Duration(1<<63 - 1), // 最大值，确保第一次会被更新
		},
	}
}

// ActorStarted 实现 Metrics 接口
func (c *StatsCollector) ActorStarted() {
	c.mu.Lock()
	c.stats.ActorsStarted++
	c.mu.Unlock()
}

// ActorStopped 实现 Metrics 接口
func (c *StatsCollector) ActorStopped(failed bool) {
	c.mu.Lock()
	c.stats.ActorsStopped++
	if failed {
		c.stats.ActorsFailed++
	}
	c.mu.Unlock()
}

// MessageHandled 实现 Metrics 接口
func (c *StatsCollector) MessageHandled(_ string, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.MessagesHandled++
	c.stats.LastMessageAt = time.Now()
	c.stats.TotalLatency += latency
	c.stats.AverageLatency = c.stats.TotalLatency / time.Duration(c.stats.MessagesHandled)

	if latency > c.stats.MaxLatency {
		c.stats.MaxLatency = latency
	}
	if latency < c.stats.MinLatency {
		c.stats.MinLatency = latency
	}
}

// HookFailed 实现 Metrics 接口
func (c *StatsCollector) HookFailed(_ string, err error) {
	c.mu.Lock()
	c.stats.HookFailures++
	c.recordError(err)
	c.mu.Unlock()
}

// PeerRegistered 实现 Metrics 接口
func (c *StatsCollector) PeerRegistered() {
	c.mu.Lock()
	c.stats.PeersRegistered++
	c.mu.Unlock()
}

// PeerDeliveryFailed 实现 Metrics 接口
func (c *StatsCollector) PeerDeliveryFailed(_ string, err error) {
	c.mu.Lock()
	c.stats.PeerDeliveryFailures++
	c.recordError(err)
	c.mu.Unlock()
}

// DeadLetters 实现 Metrics 接口
func (c *StatsCollector) DeadLetters(n int) {
	c.mu.Lock()
	c.stats.DeadLetters += int64(n)
	c.mu.Unlock()
}

// 调用方持有锁
func (c *StatsCollector) recordError(err error) {
	c.stats.LastError = err
	c.stats.LastErrorAt = time.Now()
}

// Stats 获取统计快照
func (c *StatsCollector) Stats() *ActorStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats.Clone()
}

// Reset 重置统计
func (c *StatsCollector) Reset() {
	c.mu.Lock()
	c.stats = ActorStats{
		StartedAt:  time.Now(),
		MinLatency: time.Duration(1<<63 - 1),
	}
	c.mu.Unlock()
}

var _ Metrics = (*StatsCollector)(nil)
