package actor

import (
	"context"
	"log/slog"
)

// Behavior 用户行为
//
// 两个钩子都在 Actor 自己的 goroutine 中同步执行，可以直接读写
// Context.Peers 和行为自身的私有状态，无需加锁。
// 钩子不应长时间阻塞：分发循环没有超时，钩子不返回时该 Actor 的邮箱将永远得不到处理。
// 钩子返回错误或 panic 时，只有该 Actor 终止。
type Behavior interface {
	// Execute 收到 Execute 消息时调用
	Execute(ctx *Context) error
	// OnReceive Execute 完成后调用
	OnReceive(ctx *Context) error
}

// BehaviorFunc 函数式行为，OnReceive 为空实现
type BehaviorFunc func(ctx *Context) error

// Execute 实现 Behavior 接口
func (f BehaviorFunc) Execute(ctx *Context) error {
	return f(ctx)
}

// OnReceive 实现 Behavior 接口
func (f BehaviorFunc) OnReceive(_ *Context) error { return nil }

// BaseBehavior 默认空实现，方便嵌入
type BaseBehavior struct{}

// Execute 默认实现，不做任何事
func (BaseBehavior) Execute(_ *Context) error { return nil }

// OnReceive 默认实现，不做任何事
func (BaseBehavior) OnReceive(_ *Context) error { return nil }

// PanicHandler 钩子 panic 处理函数
type PanicHandler func(id string, msg ControlMessage, recovered any, stack []byte)

// Context 钩子执行上下文
// 只在钩子执行期间有效，不要在 Actor 的 goroutine 之外使用
type Context struct {
	// Self 当前 Actor 的句柄
	Self Handle
	// Peers 当前 Actor 的 Peer 注册表
	Peers *PeerRegistry

	ctx      context.Context
	logger   *slog.Logger
	message  ControlMessage
	stopSelf func() error
}

// Context 获取 Go context，Actor 终止后取消
func (c *Context) Context() context.Context {
	return c.ctx
}

// Logger 获取带 Actor 标识的日志器
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// Message 获取当前正在处理的消息
func (c *Context) Message() ControlMessage {
	return c.message
}

// Broadcast 向所有 Peer 广播
func (c *Context) Broadcast(msg ControlMessage) BroadcastReport {
	return c.Peers.Broadcast(msg)
}

// StopSelf 请求停止当前 Actor
//
// 不会阻塞。已排队的消息仍会被处理，之后的发送返回 ErrMailboxClosed；
// 邮箱已满时同样生效。
func (c *Context) StopSelf() error {
	if c.stopSelf != nil {
		return c.stopSelf()
	}
	return c.Self.TryStop()
}

// Props Actor 属性配置
type Props struct {
	// Name Actor 名称，为空时生成 UUID
	Name string
	// MailboxSize 控制邮箱大小
	MailboxSize int
	// PeerMailboxSize Peer 注册通道大小
	PeerMailboxSize int
	// Logger 日志器，为空时使用 slog.Default()
	Logger *slog.Logger
	// Metrics 指标，为空时不记录
	Metrics Metrics
	// PanicHandler 钩子 panic 处理函数，为空时记录错误日志
	PanicHandler PanicHandler
}

const (
	// DefaultMailboxSize 默认控制邮箱大小
	DefaultMailboxSize = 100
	// DefaultPeerMailboxSize 默认 Peer 注册通道大小
	DefaultPeerMailboxSize = 16
)

// DefaultProps 默认属性
func DefaultProps(name string) *Props {
	return &Props{
		Name:            name,
		MailboxSize:     DefaultMailboxSize,
		PeerMailboxSize: DefaultPeerMailboxSize,
	}
}

// WithMailboxSize 设置控制邮箱大小
func (p *Props) WithMailboxSize(size int) *Props {
	p.MailboxSize = size
	return p
}

// WithPeerMailboxSize 设置 Peer 注册通道大小
func (p *Props) WithPeerMailboxSize(size int) *Props {
	p.PeerMailboxSize = size
	return p
}

// WithLogger 设置日志器
func (p *Props) WithLogger(logger *slog.Logger) *Props {
	p.Logger = logger
	return p
}

// WithMetrics 设置指标
func (p *Props) WithMetrics(m Metrics) *Props {
	p.Metrics = m
	return p
}

// WithPanicHandler 设置 panic 处理函数
func (p *Props) WithPanicHandler(h PanicHandler) *Props {
	p.PanicHandler = h
	return p
}
