package actor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"
)

// core Actor 核心：邮箱 + Peer 注册表 + 用户行为
//
// 构造后移入独立 goroutine，调用方只能通过 Handle 与之交互。
type core struct {
	id       string
	behavior Behavior

	control *Receiver[ControlMessage]
	peerIn  *Receiver[Peer]
	self    Handle

	// 只由 run 所在的 goroutine 访问
	peers    *PeerRegistry
	stopping bool

	state atomic.Int32

	logger  *slog.Logger
	metrics Metrics
	onPanic PanicHandler

	ctx    context.Context
	cancel context.CancelFunc
}

var _ controlVisitor = (*core)(nil)

// State 当前状态
func (c *core) State() State {
	return State(c.state.Load())
}

func (c *core) setState(s State) {
	c.state.Store(int32(s))
}

// run 分发循环
func (c *core) run() {
	c.metrics.ActorStarted()
	c.logger.Debug("actor started")

	var cause error
	defer func() {
		if r := recover(); r != nil {
			cause = &HookError{Hook: "dispatch", Err: fmt.Errorf("panic: %v", r), Panic: r, Stack: debug.Stack()}
			c.logger.Error("panic in dispatch loop", "error", r)
		}
		c.terminate(cause)
	}()

	cause = c.loop()
}

func (c *core) loop() error {
	for {
		c.setState(StateIdle)

		// 邮箱已封口，取空后按 Stop 处理
		if c.stopping && c.control.Len() == 0 {
			_, err := c.visitStop(Stop{})
			return err
		}

		// 唯一的阻塞点
		var msg ControlMessage
		select {
		case msg = <-c.control.mb.ch:
			c.control.mb.freed()
		case peer := <-c.peerIn.mb.ch:
			c.peerIn.mb.freed()
			msg = RegisterPeer{Peer: peer}
		}

		c.setState(StateDispatching)
		start := time.Now()
		next, err := msg.accept(c)
		c.metrics.MessageHandled(msg.Kind(), time.Since(start))

		if next == StateTerminated {
			return err
		}
	}
}

// requestStop 供钩子停止自身
//
// 优先排入 Stop；邮箱已满时直接封口并置位 stopping，
// 循环处理完已接受的消息后退出。只在 Actor 的 goroutine 中调用。
func (c *core) requestStop() error {
	err := c.self.TrySend(Stop{})
	if !errors.Is(err, ErrMailboxFull) {
		return err
	}
	if !c.control.mb.g.seal() {
		return ErrMailboxClosed
	}
	c.stopping = true
	c.logger.Debug("mailbox full, stopping after queued messages", "queued", c.control.Len())
	return nil
}

// terminate 关闭邮箱并清理，cause 为 nil 表示正常停止
func (c *core) terminate(cause error) {
	c.setState(StateTerminated)

	g := c.control.mb.g
	g.close(cause)
	if dropped := c.control.drain() + c.peerIn.drain(); dropped > 0 {
		c.logger.Warn("dead letters", "count", dropped)
		c.metrics.DeadLetters(dropped)
	}
	c.cancel()
	c.metrics.ActorStopped(cause != nil)

	if cause != nil {
		c.logger.Warn("actor terminated", "error", cause, "peers", c.peers.Len())
	} else {
		c.logger.Debug("actor stopped", "peers", c.peers.Len())
	}
	g.finish()
}

// ============== 消息分发 ==============

func (c *core) visitExecute(msg Execute) (State, error) {
	hc := &Context{
		Self:     c.self,
		Peers:    c.peers,
		ctx:      c.ctx,
		logger:   c.logger,
		message:  msg,
		stopSelf: c.requestStop,
	}
	if err := c.invoke("execute", msg, func() error { return c.behavior.Execute(hc) }); err != nil {
		return StateTerminated, err
	}
	if err := c.invoke("on_receive", msg, func() error { return c.behavior.OnReceive(hc) }); err != nil {
		return StateTerminated, err
	}
	return StateIdle, nil
}

func (c *core) visitStop(_ Stop) (State, error) {
	// Stop 之前已接受的 Peer 仍然登记，保证已接受的消息不丢失
	for {
		peer, ok := c.peerIn.TryReceive()
		if !ok {
			break
		}
		c.peers.Register(peer)
	}
	return StateTerminated, nil
}

func (c *core) visitRegisterPeer(msg RegisterPeer) (State, error) {
	if c.peers.Register(msg.Peer) {
		c.logger.Debug("peer registered", "peer", msg.Peer.ID(), "peers", c.peers.Len())
	}
	return StateIdle, nil
}

// invoke 执行钩子，错误和 panic 都转换为 *HookError
func (c *core) invoke(hook string, msg ControlMessage, fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		stack := debug.Stack()
		if c.onPanic != nil {
			c.onPanic(c.id, msg, r, stack)
		} else {
			c.logger.Error("panic in actor hook",
				"hook", hook,
				"message", msg.Kind(),
				"error", r,
				"stack", string(stack))
		}
		err = &HookError{Hook: hook, Err: fmt.Errorf("panic: %v", r), Panic: r, Stack: stack}
		c.metrics.HookFailed(hook, err)
	}()

	if e := fn(); e != nil {
		c.logger.Error("actor hook failed", "hook", hook, "message", msg.Kind(), "error", e)
		err = &HookError{Hook: hook, Err: e}
		c.metrics.HookFailed(hook, err)
	}
	return err
}
