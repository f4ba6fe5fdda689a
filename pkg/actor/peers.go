package actor

import (
	"errors"
	"log/slog"
)

// Peer 其他 Actor 控制邮箱的发送端
type Peer = Sender[ControlMessage]

// PeerRegistry Peer 注册表
//
// 只由所属 Actor 的分发循环（及其钩子）读写，不加锁。
// 允许重复注册，广播时重复的 Peer 会收到多次消息。
type PeerRegistry struct {
	peers   []Peer
	logger  *slog.Logger
	metrics Metrics
}

// NewPeerRegistry 创建 Peer 注册表
func NewPeerRegistry(logger *slog.Logger, metrics Metrics) *PeerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &PeerRegistry{logger: logger, metrics: metrics}
}

// Register 追加 Peer，零值 Peer 被忽略
func (r *PeerRegistry) Register(peer Peer) bool {
	if !peer.Valid() {
		r.logger.Warn("ignoring invalid peer")
		return false
	}
	r.peers = append(r.peers, peer)
	r.metrics.PeerRegistered()
	return true
}

// Len 返回 Peer 数量
func (r *PeerRegistry) Len() int {
	return len(r.peers)
}

// Peers 返回 Peer 列表的副本
func (r *PeerRegistry) Peers() []Peer {
	out := make([]Peer, len(r.peers))
	copy(out, r.peers)
	return out
}

// BroadcastReport 广播结果
type BroadcastReport struct {
	Delivered int
	Failed    []*PeerDeliveryError
}

// OK 是否全部投递成功
func (r BroadcastReport) OK() bool {
	return len(r.Failed) == 0
}

// Err 合并所有投递失败，全部成功时返回 nil
func (r BroadcastReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Broadcast 向每个 Peer 非阻塞发送 msg
//
// 单个 Peer 失败（邮箱关闭或已满）只记录在报告中，继续投递其余 Peer。
func (r *PeerRegistry) Broadcast(msg ControlMessage) BroadcastReport {
	var report BroadcastReport
	if err := validateControl(msg); err != nil {
		for i, p := range r.peers {
			report.Failed = append(report.Failed, r.deliveryFailed(i, p, "", err))
		}
		return report
	}

	for i, p := range r.peers {
		if err := p.TrySend(msg); err != nil {
			report.Failed = append(report.Failed, r.deliveryFailed(i, p, msg.Kind(), err))
			continue
		}
		report.Delivered++
	}
	return report
}

func (r *PeerRegistry) deliveryFailed(i int, p Peer, kind string, err error) *PeerDeliveryError {
	e := &PeerDeliveryError{Index: i, PeerID: p.ID(), Kind: kind, Err: err}
	r.logger.Warn("peer delivery failed",
		"peer", p.ID(),
		"index", i,
		"kind", kind,
		"error", err)
	r.metrics.PeerDeliveryFailed(kind, err)
	return e
}
