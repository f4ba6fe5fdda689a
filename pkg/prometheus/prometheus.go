// Package prometheus 提供 actor.Metrics 的 Prometheus 实现
package prometheus

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lwmacct/251218-go-pkg-actor/pkg/actor"
)

// Namespace 指标名前缀
const Namespace = "actor"

// 延迟分桶（秒）
var defaultBuckets = []float64{
	.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5,
}

// metrics 使用 Prometheus 实现 actor.Metrics
type metrics struct {
	actorsStarted  prometheus.Counter
	actorsStopped  *prometheus.CounterVec
	actorsRunning  prometheus.Gauge
	messagesTotal  *prometheus.CounterVec
	messageLatency *prometheus.HistogramVec
	hookFailures   *prometheus.CounterVec
	peersTotal     prometheus.Counter
	deliveryFails  *prometheus.CounterVec
	deadLetters    prometheus.Counter
}

// NewMetrics 创建并注册指标
// 同一个 Registerer 只能调用一次，否则注册冲突会 panic
func NewMetrics(reg prometheus.Registerer) actor.Metrics {
	m := &metrics{
		actorsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "started_total",
			Help:      "Total number of actors whose dispatch loop started",
		}),
		actorsStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stopped_total",
			Help:      "Total number of terminated actors",
		}, []string{"failed"}),
		actorsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "running",
			Help:      "Number of actors currently running",
		}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "messages_total",
			Help:      "Total number of control messages handled",
		}, []string{"kind"}),
		messageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "message_duration_seconds",
			Help:      "Control message handling time in seconds",
			Buckets:   defaultBuckets,
		}, []string{"kind"}),
		hookFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "hook_failures_total",
			Help:      "Total number of behavior hook failures",
		}, []string{"hook", "panic"}),
		peersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "peers_registered_total",
			Help:      "Total number of registered peers",
		}),
		deliveryFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "peer_delivery_failures_total",
			Help:      "Total number of failed broadcast deliveries",
		}, []string{"kind", "reason"}),
		deadLetters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dead_letters_total",
			Help:      "Total number of accepted messages dropped on termination",
		}),
	}

	reg.MustRegister(
		m.actorsStarted,
		m.actorsStopped,
		m.actorsRunning,
		m.messagesTotal,
		m.messageLatency,
		m.hookFailures,
		m.peersTotal,
		m.deliveryFails,
		m.deadLetters,
	)

	return m
}

func (m *metrics) ActorStarted() {
	m.actorsStarted.Inc()
	m.actorsRunning.Inc()
}

func (m *metrics) ActorStopped(failed bool) {
	m.actorsStopped.WithLabelValues(boolToStr(failed)).Inc()
	m.actorsRunning.Dec()
}

func (m *metrics) MessageHandled(kind string, latency time.Duration) {
	m.messagesTotal.WithLabelValues(kind).Inc()
	m.messageLatency.WithLabelValues(kind).Observe(latency.Seconds())
}

func (m *metrics) HookFailed(hook string, err error) {
	var hookErr *actor.HookError
	panicked := errors.As(err, &hookErr) && hookErr.Panic != nil
	m.hookFailures.WithLabelValues(hook, boolToStr(panicked)).Inc()
}

func (m *metrics) PeerRegistered() {
	m.peersTotal.Inc()
}

func (m *metrics) PeerDeliveryFailed(kind string, err error) {
	m.deliveryFails.WithLabelValues(kind, reason(err)).Inc()
}

func (m *metrics) DeadLetters(n int) {
	m.deadLetters.Add(float64(n))
}

// reason 将投递错误归类为低基数标签
func reason(err error) string {
	switch {
	case errors.Is(err, actor.ErrMailboxClosed):
		return "closed"
	case errors.Is(err, actor.ErrMailboxFull):
		return "full"
	default:
		return "invalid"
	}
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

var _ actor.Metrics = (*metrics)(nil)
