package probe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stow-dashboard/stow-desktop/internal/observability"
)

// freeAddr returns a loopback address nothing is listening on
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestWaitUntilReadyImmediate(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	start := time.Now()
	assert.True(t, WaitUntilReady(context.Background(), ln.Addr().String(), 2*time.Second, 50*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitUntilReadyTimeoutBounds(t *testing.T) {
	addr := freeAddr(t)
	timeout := 600 * time.Millisecond
	interval := 200 * time.Millisecond

	start := time.Now()
	ready := WaitUntilReady(context.Background(), addr, timeout, interval)
	elapsed := time.Since(start)

	assert.False(t, ready)
	assert.GreaterOrEqual(t, elapsed, timeout)
	// generous slack for slow CI schedulers
	assert.Less(t, elapsed, timeout+interval+500*time.Millisecond)
}

func TestWaitUntilReadyDelayedListener(t *testing.T) {
	addr := freeAddr(t)

	listening := make(chan net.Listener, 1)
	go func() {
		time.Sleep(300 * time.Millisecond)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			listening <- nil
			return
		}
		listening <- ln
	}()

	start := time.Now()
	ready := WaitUntilReady(context.Background(), addr, 5*time.Second, 50*time.Millisecond)
	elapsed := time.Since(start)

	ln := <-listening
	if ln == nil {
		t.Skip("port was taken by another process")
	}
	defer ln.Close()

	assert.True(t, ready)
	assert.GreaterOrEqual(t, elapsed, 250*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestWaitUntilReadyCancelled(t *testing.T) {
	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	assert.False(t, WaitUntilReady(ctx, addr, 10*time.Second, 50*time.Millisecond))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWaitUntilReadyZeroTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	assert.False(t, WaitUntilReady(context.Background(), ln.Addr().String(), 0, DefaultInterval))
}

func TestProberDefaults(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	p := New("localhost:3088", 0, 0, logger, observability.NewMetrics(logger))

	assert.Equal(t, "localhost:3088", p.Addr())
	assert.Equal(t, DefaultTimeout, p.timeout)
	assert.Equal(t, DefaultInterval, p.interval)
}

func TestProberWait(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	logger := zaptest.NewLogger(t).Sugar()
	p := New(ln.Addr().String(), time.Second, 20*time.Millisecond, logger, observability.NewMetrics(logger))
	assert.True(t, p.Wait(context.Background()))

	p = New(freeAddr(t), 100*time.Millisecond, 20*time.Millisecond, logger, observability.NewMetrics(logger))
	assert.False(t, p.Wait(context.Background()))
}
