package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerRegistry_Register(t *testing.T) {
	stats := NewStatsCollector()
	r := NewPeerRegistry(quietLogger, stats)

	p := namedPeer("p")
	assert.True(t, r.Register(p))
	assert.True(t, r.Register(p))
	assert.False(t, r.Register(Peer{}))

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, int64(2), stats.Stats().PeersRegistered)

	// Peers 返回副本
	peers := r.Peers()
	peers[0] = Peer{}
	assert.True(t, r.Peers()[0].Valid())
}

func TestPeerRegistry_BroadcastPartialFailure(t *testing.T) {
	stats := NewStatsCollector()
	r := NewPeerRegistry(quietLogger, stats)

	rx1, p1 := newControlMailbox("p1", 4)
	rx2, p2 := newControlMailbox("p2", 4)
	rx2.Close(nil)

	r.Register(p1)
	r.Register(p2)

	var report BroadcastReport
	require.NotPanics(t, func() {
		report = r.Broadcast(Execute{})
	})

	assert.Equal(t, 1, report.Delivered)
	require.Len(t, report.Failed, 1)
	assert.False(t, report.OK())

	failure := report.Failed[0]
	assert.Equal(t, 1, failure.Index)
	assert.Equal(t, "p2", failure.PeerID)
	assert.Equal(t, "control.execute", failure.Kind)
	assert.ErrorIs(t, failure, ErrMailboxClosed)

	var pde *PeerDeliveryError
	require.ErrorAs(t, report.Err(), &pde)
	assert.ErrorIs(t, report.Err(), ErrMailboxClosed)

	msg, ok := rx1.TryReceive()
	require.True(t, ok)
	assert.Equal(t, Execute{}, msg)

	assert.Equal(t, int64(1), stats.Stats().PeerDeliveryFailures)
}

func TestPeerRegistry_BroadcastFullPeer(t *testing.T) {
	r := NewPeerRegistry(quietLogger, nil)

	_, full := newControlMailbox("full", 1)
	require.NoError(t, full.TrySend(Execute{}))
	rx, ok := newControlMailbox("ok", 1)

	r.Register(full)
	r.Register(ok)

	report := r.Broadcast(Execute{})
	assert.Equal(t, 1, report.Delivered)
	require.Len(t, report.Failed, 1)
	assert.ErrorIs(t, report.Failed[0], ErrMailboxFull)
	assert.Equal(t, 1, rx.Len())
}

func TestPeerRegistry_BroadcastNotBlockedByWaitingSender(t *testing.T) {
	ctx := waitCtx(t)
	r := NewPeerRegistry(quietLogger, nil)

	busyRx, busy := newControlMailbox("busy", 1)
	require.NoError(t, busy.TrySend(Execute{}))
	idleRx, idle := newControlMailbox("idle", 1)
	r.Register(busy)
	r.Register(idle)

	// busy 上有一个 Stop 在等待空间
	go func() {
		_ = busy.Send(ctx, Stop{})
	}()
	require.Eventually(t, func() bool {
		return waiters(busyRx.mb) == 1
	}, time.Second, time.Millisecond)

	done := make(chan BroadcastReport, 1)
	go func() {
		done <- r.Broadcast(Execute{})
	}()

	var report BroadcastReport
	select {
	case report = <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a busy peer")
	}
	assert.Equal(t, 1, report.Delivered)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "busy", report.Failed[0].PeerID)
	assert.ErrorIs(t, report.Failed[0], ErrMailboxFull)
	assert.Equal(t, 1, idleRx.Len())

	busyRx.Close(nil)
}

func TestPeerRegistry_BroadcastEmpty(t *testing.T) {
	r := NewPeerRegistry(nil, nil)

	report := r.Broadcast(Execute{})
	assert.True(t, report.OK())
	assert.NoError(t, report.Err())
	assert.Zero(t, report.Delivered)
}

func TestPeerRegistry_BroadcastNil(t *testing.T) {
	r := NewPeerRegistry(quietLogger, nil)
	r.Register(namedPeer("a"))
	r.Register(namedPeer("b"))

	report := r.Broadcast(nil)
	assert.Zero(t, report.Delivered)
	require.Len(t, report.Failed, 2)
	assert.True(t, errors.Is(report.Err(), ErrNilMessage))
}

func TestPeerRegistry_BroadcastStopSealsPeer(t *testing.T) {
	r := NewPeerRegistry(quietLogger, nil)
	_, p := newControlMailbox("target", 4)
	r.Register(p)

	assert.True(t, r.Broadcast(Stop{}).OK())

	report := r.Broadcast(Execute{})
	require.Len(t, report.Failed, 1)
	assert.ErrorIs(t, report.Failed[0], ErrMailboxClosed)
}

// newControlMailbox 创建带 Stop 封口的控制邮箱
func newControlMailbox(id string, size int) (*Receiver[ControlMessage], Peer) {
	mb := newMailbox[ControlMessage](newGate(id), size, isStop)
	return &Receiver[ControlMessage]{mb: mb}, Sender[ControlMessage]{mb: mb}
}
