package actor

// ControlMessage 控制消息
//
// 控制消息是封闭集合：Execute、Stop、RegisterPeer。
// 接口包含未导出方法，包外无法新增实现；分发通过 controlVisitor 完成，
// 新增消息类型必须同时为 controlVisitor 增加方法，所有分发方在编译期即可发现遗漏。
type ControlMessage interface {
	// Kind 返回消息类型标识，用于日志和监控
	Kind() string

	accept(v controlVisitor) (State, error)
}

// controlVisitor 控制消息访问者，每种控制消息对应一个方法
type controlVisitor interface {
	visitExecute(msg Execute) (State, error)
	visitStop(msg Stop) (State, error)
	visitRegisterPeer(msg RegisterPeer) (State, error)
}

// Execute 立即执行用户行为
type Execute struct{}

// Kind 实现 ControlMessage 接口
func (Execute) Kind() string { return "control.execute" }

func (m Execute) accept(v controlVisitor) (State, error) { return v.visitExecute(m) }

// Stop 终止 Actor
//
// Stop 写入邮箱的同时关闭邮箱，之后的发送全部返回 ErrMailboxClosed。
type Stop struct{}

// Kind 实现 ControlMessage 接口
func (Stop) Kind() string { return "control.stop" }

func (m Stop) accept(v controlVisitor) (State, error) { return v.visitStop(m) }

// RegisterPeer 注册新的 Peer
type RegisterPeer struct {
	Peer Peer
}

// Kind 实现 ControlMessage 接口
func (RegisterPeer) Kind() string { return "control.register_peer" }

func (m RegisterPeer) accept(v controlVisitor) (State, error) { return v.visitRegisterPeer(m) }

// isStop 控制邮箱的封口判定
func isStop(msg ControlMessage) bool {
	_, ok := msg.(Stop)
	return ok
}

// validateControl 校验待发送的控制消息
func validateControl(msg ControlMessage) error {
	if msg == nil {
		return ErrNilMessage
	}
	if rp, ok := msg.(RegisterPeer); ok && !rp.Peer.Valid() {
		return ErrInvalidPeer
	}
	return nil
}

// ============== 状态 ==============

// State 分发循环状态
type State int32

const (
	// StateIdle 空闲，等待下一条消息
	StateIdle State = iota
	// StateDispatching 正在解释一条消息
	StateDispatching
	// StateTerminated 已终止（吸收态）
	StateTerminated
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDispatching:
		return "Dispatching"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}
