package actor

import (
	"errors"
	"fmt"
)

var (
	// ErrMailboxClosed 邮箱已关闭（目标 Actor 已终止或已收到 Stop）
	ErrMailboxClosed = errors.New("mailbox closed")
	// ErrMailboxFull 邮箱已满（仅非阻塞发送返回）
	ErrMailboxFull = errors.New("mailbox full")
	// ErrNilMessage 消息为空
	ErrNilMessage = errors.New("nil control message")
	// ErrInvalidPeer Peer 为零值，无法投递
	ErrInvalidPeer = errors.New("invalid peer")
	// ErrSystemStopped Actor 系统已关闭
	ErrSystemStopped = errors.New("actor system stopped")
	// ErrActorNotFound Actor 不存在
	ErrActorNotFound = errors.New("actor not found")
)

// PeerDeliveryError 广播时单个 Peer 投递失败
//
// 可恢复错误，只记录在 BroadcastReport 中，不会中断广播。
type PeerDeliveryError struct {
	Index  int    // Peer 在注册表中的位置
	PeerID string // Peer 邮箱标识
	Kind   string // 消息类型
	Err    error
}

// Error 实现 error 接口
func (e *PeerDeliveryError) Error() string {
	return fmt.Sprintf("deliver %s to peer %d (%s): %v", e.Kind, e.Index, e.PeerID, e.Err)
}

// Unwrap 返回底层错误
func (e *PeerDeliveryError) Unwrap() error { return e.Err }

// HookError 行为钩子失败
//
// 钩子返回错误或 panic 时生成，作为 Actor 的终止原因。
type HookError struct {
	Hook  string // "execute" 或 "on_receive"
	Err   error  // 钩子返回的错误，panic 时为包装后的 panic 值
	Panic any    // panic 值，未 panic 时为 nil
	Stack []byte // panic 堆栈
}

// Error 实现 error 接口
func (e *HookError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("%s hook panicked: %v", e.Hook, e.Panic)
	}
	return fmt.Sprintf("%s hook failed: %v", e.Hook, e.Err)
}

// Unwrap 返回底层错误
func (e *HookError) Unwrap() error { return e.Err }
