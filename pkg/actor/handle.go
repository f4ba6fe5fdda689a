package actor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Handle Actor 句柄
//
// 只包含两个发送端：控制邮箱和 Peer 注册通道。值类型，可任意复制和共享；
// 丢弃句柄不会影响 Actor 的运行，停止 Actor 的唯一方式是发送 Stop。
type Handle struct {
	control Sender[ControlMessage]
	peers   Sender[Peer]
}

// Spawn 使用默认属性创建并启动 Actor
//
// 立即返回，不等待 Actor 处理第一条消息。
func Spawn(behavior Behavior) Handle {
	return SpawnWithProps(behavior, DefaultProps(""))
}

// SpawnWithProps 使用属性创建并启动 Actor
//
// 分发循环运行在独立的 goroutine 中，循环内的失败不会传播到调用方。
func SpawnWithProps(behavior Behavior, props *Props) Handle {
	if props == nil {
		props = DefaultProps("")
	}
	c := newCore(behavior, props)
	go c.run()
	return c.self
}

// newCore 构造 ActorCore，不启动循环
func newCore(behavior Behavior, props *Props) *core {
	name := props.Name
	if name == "" {
		name = uuid.NewString()
	}
	mailboxSize := props.MailboxSize
	if mailboxSize <= 0 {
		mailboxSize = DefaultMailboxSize
	}
	peerMailboxSize := props.PeerMailboxSize
	if peerMailboxSize <= 0 {
		peerMailboxSize = DefaultPeerMailboxSize
	}
	logger := props.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("actor", name)
	metrics := props.Metrics
	if metrics == nil {
		metrics = NopMetrics()
	}
	if behavior == nil {
		behavior = BaseBehavior{}
	}

	g := newGate(name)
	control := newMailbox[ControlMessage](g, mailboxSize, isStop)
	peerIn := newMailbox[Peer](g, peerMailboxSize, nil)

	ctx, cancel := context.WithCancel(context.Background())

	return &core{
		id:       name,
		behavior: behavior,
		control:  &Receiver[ControlMessage]{mb: control},
		peerIn:   &Receiver[Peer]{mb: peerIn},
		self: Handle{
			control: Sender[ControlMessage]{mb: control},
			peers:   Sender[Peer]{mb: peerIn},
		},
		peers:   NewPeerRegistry(logger, metrics),
		logger:  logger,
		metrics: metrics,
		onPanic: props.PanicHandler,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Send 发送控制消息，邮箱满时阻塞
//
// Actor 已终止或已收到 Stop 时返回 ErrMailboxClosed。
func (h Handle) Send(ctx context.Context, msg ControlMessage) error {
	if err := validateControl(msg); err != nil {
		return err
	}
	return h.control.Send(ctx, msg)
}

// TrySend 非阻塞发送控制消息
func (h Handle) TrySend(msg ControlMessage) error {
	if err := validateControl(msg); err != nil {
		return err
	}
	return h.control.TrySend(msg)
}

// Execute 发送 Execute
func (h Handle) Execute(ctx context.Context) error {
	return h.Send(ctx, Execute{})
}

// Stop 发送 Stop
// 已排队的消息会先被处理，之后的发送全部失败
func (h Handle) Stop(ctx context.Context) error {
	return h.Send(ctx, Stop{})
}

// TryStop 非阻塞发送 Stop
func (h Handle) TryStop() error {
	return h.TrySend(Stop{})
}

// SendPeer 通过 Peer 注册通道投递一个 Peer
func (h Handle) SendPeer(ctx context.Context, peer Peer) error {
	if !peer.Valid() {
		return ErrInvalidPeer
	}
	return h.peers.Send(ctx, peer)
}

// Peer 返回控制邮箱的发送端，用于注册到其他 Actor
func (h Handle) Peer() Peer {
	return h.control
}

// ID 返回 Actor 名称
func (h Handle) ID() string {
	return h.control.ID()
}

// Valid 是否为有效句柄
func (h Handle) Valid() bool {
	return h.control.Valid()
}

// Done Actor 终止后关闭
func (h Handle) Done() <-chan struct{} {
	return h.control.Done()
}

// Err 返回终止原因
// 因 Stop 正常退出时返回 nil，钩子失败时返回 *HookError
func (h Handle) Err() error {
	return h.control.Err()
}

// Wait 等待 Actor 终止，返回终止原因
func (h Handle) Wait(ctx context.Context) error {
	select {
	case <-h.Done():
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// String 实现 fmt.Stringer
func (h Handle) String() string {
	return h.control.String()
}
