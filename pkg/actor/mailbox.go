package actor

import (
	"context"
	"fmt"
	"sync"
)

// gate 邮箱的关闭状态
//
// 同一个 Actor 的控制邮箱和 Peer 注册通道共享一个 gate：
// 任意一端关闭，两端同时拒绝发送。
// mu 只保护一次非阻塞写入，任何一方都不会在持锁时等待。
type gate struct {
	id string

	mu     sync.Mutex
	closed bool

	closing   chan struct{} // 关闭开始，唤醒阻塞中的发送方
	done      chan struct{} // 消费者清理完成
	closeOnce sync.Once
	doneOnce  sync.Once
	err       error // 在 closing 关闭前写入
}

func newGate(id string) *gate {
	return &gate{
		id:      id,
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// close 拒绝后续发送，cause 只在第一次调用时生效
func (g *gate) close(cause error) {
	g.closeOnce.Do(func() {
		g.err = cause
		close(g.closing)
	})
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// seal 拒绝后续发送但不唤醒消费者，已关闭时返回 false
func (g *gate) seal() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.closed = true
	return true
}

// finish 标记消费者已退出
func (g *gate) finish() {
	g.doneOnce.Do(func() { close(g.done) })
}

func (g *gate) cause() error {
	select {
	case <-g.closing:
		return g.err
	default:
		return nil
	}
}

// 调用方持有 mu
func (g *gate) rejecting() bool {
	if g.closed {
		return true
	}
	select {
	case <-g.closing:
		return true
	default:
		return false
	}
}

// mailbox 单消费者、多生产者的消息队列
type mailbox[T any] struct {
	g    *gate
	ch   chan T
	seal func(T) bool // 返回 true 的消息写入后立即封口

	// 以下字段由 g.mu 保护
	space   chan struct{} // 消费者取走消息后关闭并替换，唤醒等待空间的发送方
	waiters int
}

// newMailbox 创建邮箱，容量至少为 1
func newMailbox[T any](g *gate, size int, seal func(T) bool) *mailbox[T] {
	if size < 1 {
		size = 1
	}
	return &mailbox[T]{
		g:     g,
		ch:    make(chan T, size),
		seal:  seal,
		space: make(chan struct{}),
	}
}

func (mb *mailbox[T]) seals(v T) bool {
	return mb.seal != nil && mb.seal(v)
}

// push 在锁内尝试一次非阻塞写入
// 缓冲区满且 wait 为 true 时登记为等待者，返回空间通知通道
func (mb *mailbox[T]) push(v T, wait bool) (<-chan struct{}, error) {
	g := mb.g
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rejecting() {
		return nil, ErrMailboxClosed
	}

	select {
	case mb.ch <- v:
		if mb.seals(v) {
			g.closed = true
		}
		return nil, nil
	default:
	}

	if !wait {
		return nil, ErrMailboxFull
	}
	mb.waiters++
	return mb.space, nil
}

// await 在锁外等待空间、关闭或 ctx 取消
func (mb *mailbox[T]) await(ctx context.Context, space <-chan struct{}) error {
	defer func() {
		mb.g.mu.Lock()
		mb.waiters--
		mb.g.mu.Unlock()
	}()

	select {
	case <-space:
		return nil
	case <-mb.g.closing:
		return ErrMailboxClosed
	case <-ctx.Done():
		return fmt.Errorf("send to %s: %w", mb.g.id, ctx.Err())
	}
}

// freed 消费者取走一条消息后调用
func (mb *mailbox[T]) freed() {
	mb.g.mu.Lock()
	if mb.waiters > 0 {
		close(mb.space)
		mb.space = make(chan struct{})
	}
	mb.g.mu.Unlock()
}

// NewMailbox 创建邮箱，返回唯一的接收端和可任意复制的发送端
// size 小于 1 时按 1 处理
func NewMailbox[T any](size int) (*Receiver[T], Sender[T]) {
	mb := newMailbox[T](newGate(""), size, nil)
	return &Receiver[T]{mb: mb}, Sender[T]{mb: mb}
}

// ============== 发送端 ==============

// Sender 邮箱发送端
//
// Sender 是值类型，复制即克隆；多个 goroutine 可并发发送，无需调用方加锁。
// 单个发送方的消息按发送顺序到达。零值 Sender 的所有发送都返回 ErrMailboxClosed。
type Sender[T any] struct {
	mb *mailbox[T]
}

// Send 发送消息，缓冲区满时阻塞
// 直到消息被接受、ctx 取消或邮箱关闭
func (s Sender[T]) Send(ctx context.Context, v T) error {
	if s.mb == nil {
		return ErrMailboxClosed
	}
	for {
		space, err := s.mb.push(v, true)
		if err != nil || space == nil {
			return err
		}
		if err := s.mb.await(ctx, space); err != nil {
			return err
		}
	}
}

// TrySend 非阻塞发送
// 缓冲区满时返回 ErrMailboxFull，不会等待其他发送方
func (s Sender[T]) TrySend(v T) error {
	if s.mb == nil {
		return ErrMailboxClosed
	}
	_, err := s.mb.push(v, false)
	return err
}

// ID 返回邮箱所属 Actor 的标识
func (s Sender[T]) ID() string {
	if s.mb == nil {
		return ""
	}
	return s.mb.g.id
}

// Valid 是否为有效的发送端（非零值）
func (s Sender[T]) Valid() bool {
	return s.mb != nil
}

// Done 邮箱的消费者退出后关闭
func (s Sender[T]) Done() <-chan struct{} {
	if s.mb == nil {
		return closedChan
	}
	return s.mb.g.done
}

// Err 返回关闭原因
// 正常关闭或尚未关闭时返回 nil
func (s Sender[T]) Err() error {
	if s.mb == nil {
		return nil
	}
	return s.mb.g.cause()
}

// String 实现 fmt.Stringer
func (s Sender[T]) String() string {
	if s.mb == nil {
		return "<nil>"
	}
	return s.mb.g.id
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// ============== 接收端 ==============

// Receiver 邮箱接收端，只允许一个消费者使用
type Receiver[T any] struct {
	mb *mailbox[T]
}

// TryReceive 非阻塞接收，邮箱为空时返回 false
func (r *Receiver[T]) TryReceive() (T, bool) {
	select {
	case v := <-r.mb.ch:
		r.mb.freed()
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Receive 阻塞接收
// 邮箱关闭且已取空时返回 ErrMailboxClosed
func (r *Receiver[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-r.mb.ch:
		r.mb.freed()
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-r.mb.g.closing:
		if v, ok := r.TryReceive(); ok {
			return v, nil
		}
		return zero, ErrMailboxClosed
	}
}

// Len 当前排队的消息数
func (r *Receiver[T]) Len() int {
	return len(r.mb.ch)
}

// Close 关闭邮箱，返回已接受但未被消费的消息数
func (r *Receiver[T]) Close(cause error) int {
	r.mb.g.close(cause)
	n := r.drain()
	r.mb.g.finish()
	return n
}

// Sender 返回对应的发送端
func (r *Receiver[T]) Sender() Sender[T] {
	return Sender[T]{mb: r.mb}
}

func (r *Receiver[T]) drain() int {
	n := 0
	for {
		if _, ok := r.TryReceive(); !ok {
			return n
		}
		n++
	}
}
