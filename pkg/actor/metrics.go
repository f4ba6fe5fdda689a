package actor

import "time"

// Metrics Actor 运行时指标接口
// 所有方法必须并发安全，同一实例可以被多个 Actor 共享
type Metrics interface {
	// ActorStarted 分发循环启动
	ActorStarted()
	// ActorStopped 分发循环退出，failed 表示因钩子失败而终止
	ActorStopped(failed bool)
	// MessageHandled 一条控制消息处理完成
	MessageHandled(kind string, latency time.Duration)
	// HookFailed 行为钩子返回错误或 panic
	HookFailed(hook string, err error)
	// PeerRegistered 注册了一个 Peer
	PeerRegistered()
	// PeerDeliveryFailed 广播时一个 Peer 投递失败
	PeerDeliveryFailed(kind string, err error)
	// DeadLetters 终止时丢弃的已接受消息数
	DeadLetters(n int)
}

type nopMetrics struct{}

func (nopMetrics) ActorStarted()                        {}
func (nopMetrics) ActorStopped(bool)                    {}
func (nopMetrics) MessageHandled(string, time.Duration) {}
func (nopMetrics) HookFailed(string, error)             {}
func (nopMetrics) PeerRegistered()                      {}
func (nopMetrics) PeerDeliveryFailed(string, error)     {}
func (nopMetrics) DeadLetters(int)                      {}

// NopMetrics 返回空实现
func NopMetrics() Metrics { return nopMetrics{} }

// MultiMetrics 将指标同时写入多个实现
func MultiMetrics(ms ...Metrics) Metrics {
	return multiMetrics(ms)
}

type multiMetrics []Metrics

func (m multiMetrics) ActorStarted() {
	for _, x := range m {
		x.ActorStarted()
	}
}

func (m multiMetrics) ActorStopped(failed bool) {
	for _, x := range m {
		x.ActorStopped(failed)
	}
}

func (m multiMetrics) MessageHandled(kind string, latency time.Duration) {
	for _, x := range m {
		x.MessageHandled(kind, latency)
	}
}

func (m multiMetrics) HookFailed(hook string, err error) {
	for _, x := range m {
		x.HookFailed(hook, err)
	}
}

func (m multiMetrics) PeerRegistered() {
	for _, x := range m {
		x.PeerRegistered()
	}
}

func (m multiMetrics) PeerDeliveryFailed(kind string, err error) {
	for _, x := range m {
		x.PeerDeliveryFailed(kind, err)
	}
}

func (m multiMetrics) DeadLetters(n int) {
	for _, x := range m {
		x.DeadLetters(n)
	}
}
