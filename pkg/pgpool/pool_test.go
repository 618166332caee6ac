package pgpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"pgpool/pkg/connector"
	errs "pgpool/pkg/errors"
)

// stubConn is a fake connection that records close and concurrent use
type stubConn struct {
	id     int
	mu     sync.Mutex
	closed bool
	inUse  bool
}

func (c *stubConn) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// use fails the test if two callers hold the same connection at once
func (c *stubConn) use(t *testing.T) {
	c.mu.Lock()
	if c.inUse {
		c.mu.Unlock()
		t.Error("connection used by two callers concurrently")
		return
	}
	c.inUse = true
	c.mu.Unlock()

	time.Sleep(time.Millisecond)

	c.mu.Lock()
	c.inUse = false
	c.mu.Unlock()
}

// stubConnector hands out stubConns and can fail on the nth connect
type stubConnector struct {
	mu     sync.Mutex
	opened []*stubConn
	failOn int // 1-based index of the connect that fails, 0 = never
}

func (s *stubConnector) Connect(ctx context.Context, connString string) (connector.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.opened) + 1
	if s.failOn != 0 && n >= s.failOn {
		return nil, fmt.Errorf("connect %d refused", n)
	}
	c := &stubConn{id: n}
	s.opened = append(s.opened, c)
	return c, nil
}

func newTestPool(t *testing.T, size int, opts ...Option) (*Pool, *stubConnector) {
	t.Helper()
	sc := &stubConnector{}
	opts = append([]Option{WithSize(size), WithConnector(sc)}, opts...)
	p, err := New(context.Background(), "host=stub", opts...)
	if err != nil {
		t.Fatalf("Failed to build pool: %v", err)
	}
	return p, sc
}

// TestNewFillsPool tests construction opens exactly size connections
func TestNewFillsPool(t *testing.T) {
	p, sc := newTestPool(t, 4)
	defer p.Close()

	if len(sc.opened) != 4 {
		t.Errorf("Expected 4 connections opened, got %d", len(sc.opened))
	}
	st := p.Stats()
	if st.Capacity != 4 || st.Idle != 4 || st.Leased != 0 {
		t.Errorf("Unexpected stats after construction: %+v", st)
	}
}

// TestNewConnectFailure tests a failed open aborts construction and closes
// the connections opened so far
func TestNewConnectFailure(t *testing.T) {
	sc := &stubConnector{failOn: 3}
	_, err := New(context.Background(), "host=stub", WithSize(5), WithConnector(sc))
	if err == nil {
		t.Fatal("New should fail when a connection cannot be opened")
	}
	if len(sc.opened) != 2 {
		t.Fatalf("Expected 2 connections opened before failure, got %d", len(sc.opened))
	}
	for _, c := range sc.opened {
		if !c.isClosed() {
			t.Errorf("Connection %d leaked by failed construction", c.id)
		}
	}
}

// TestNewInvalidSize tests size validation
func TestNewInvalidSize(t *testing.T) {
	_, err := New(context.Background(), "host=stub", WithSize(0), WithConnector(&stubConnector{}))
	if !errors.Is(err, errs.ErrInvalidPoolSize) {
		t.Errorf("Expected ErrInvalidPoolSize, got %v", err)
	}
}

// TestNewNilConnector tests connector validation
func TestNewNilConnector(t *testing.T) {
	_, err := New(context.Background(), "host=stub", WithSize(1), WithConnector(nil))
	if !errors.Is(err, errs.ErrNilConnector) {
		t.Errorf("Expected ErrNilConnector, got %v", err)
	}
}

// TestAcquireUntilExhausted tests exactly size acquires succeed without
// blocking before the next one blocks
func TestAcquireUntilExhausted(t *testing.T) {
	const size = 3
	p, _ := newTestPool(t, size)
	defer p.Close()

	leases := make([]*Lease, 0, size)
	for i := 0; i < size; i++ {
		l, err := p.Acquire()
		if err != nil {
			t.Fatalf("Acquire %d failed: %v", i+1, err)
		}
		leases = append(leases, l)
	}

	got := make(chan *Lease, 1)
	go func() {
		l, err := p.Acquire()
		if err != nil {
			t.Errorf("Blocked acquire failed: %v", err)
			return
		}
		got <- l
	}()

	select {
	case <-got:
		t.Fatal("Acquire should block on an exhausted pool")
	case <-time.After(50 * time.Millisecond):
	}

	// Releasing one lease unblocks exactly the waiting acquire
	if err := leases[0].Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	select {
	case l := <-got:
		defer l.Release()
	case <-time.After(time.Second):
		t.Fatal("Release did not unblock the waiting acquire")
	}

	for _, l := range leases[1:] {
		l.Release()
	}
}

// TestReleaseHandsConnectionToWaiter tests the size-2 scenario: two
// immediate acquires, a third blocks, one release completes it with the
// released connection
func TestReleaseHandsConnectionToWaiter(t *testing.T) {
	p, _ := newTestPool(t, 2)
	defer p.Close()

	l1, err := p.Acquire()
	if err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	l2, err := p.Acquire()
	if err != nil {
		t.Fatalf("Second acquire failed: %v", err)
	}

	released := l1.Conn().(*stubConn)

	got := make(chan *Lease, 1)
	go func() {
		l, err := p.Acquire()
		if err != nil {
			t.Errorf("Third acquire failed: %v", err)
			return
		}
		got <- l
	}()

	time.Sleep(20 * time.Millisecond) // let the third acquire park
	if err := l1.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	select {
	case l := <-got:
		if l.Conn().(*stubConn) != released {
			t.Error("Waiter should receive the released connection")
		}
		l.Release()
	case <-time.After(time.Second):
		t.Fatal("Third acquire never completed")
	}
	l2.Release()
}

// TestTryAcquire tests the non-blocking variant
func TestTryAcquire(t *testing.T) {
	p, _ := newTestPool(t, 1)
	defer p.Close()

	l, err := p.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire on a full pool failed: %v", err)
	}

	if _, err := p.TryAcquire(); !errors.Is(err, errs.ErrPoolExhausted) {
		t.Errorf("Expected ErrPoolExhausted, got %v", err)
	}

	l.Release()
	l2, err := p.TryAcquire()
	if err != nil {
		t.Fatalf("TryAcquire after release failed: %v", err)
	}
	l2.Release()
}

// TestCloseWakesWaiters tests blocked acquires observe shutdown instead of
// hanging
func TestCloseWakesWaiters(t *testing.T) {
	p, _ := newTestPool(t, 1)

	l, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	const waiters = 5
	results := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			_, err := p.Acquire()
			results <- err
		}()
	}

	time.Sleep(20 * time.Millisecond) // let all waiters park
	p.Close()

	for i := 0; i < waiters; i++ {
		select {
		case err := <-results:
			if !errors.Is(err, errs.ErrPoolShuttingDown) {
				t.Errorf("Waiter %d: expected ErrPoolShuttingDown, got %v", i, err)
			}
		case <-time.After(time.Second):
			t.Fatal("Waiter hung past shutdown")
		}
	}

	l.Release()
}

// TestAcquireAfterClose tests acquires fail immediately once draining
func TestAcquireAfterClose(t *testing.T) {
	p, _ := newTestPool(t, 2)
	p.Close()

	if _, err := p.Acquire(); !errors.Is(err, errs.ErrPoolShuttingDown) {
		t.Errorf("Acquire: expected ErrPoolShuttingDown, got %v", err)
	}
	if _, err := p.TryAcquire(); !errors.Is(err, errs.ErrPoolShuttingDown) {
		t.Errorf("TryAcquire: expected ErrPoolShuttingDown, got %v", err)
	}
}

// TestCloseDrainsIdle tests every idle connection is closed by shutdown
func TestCloseDrainsIdle(t *testing.T) {
	p, sc := newTestPool(t, 3)
	p.Close()

	for _, c := range sc.opened {
		if !c.isClosed() {
			t.Errorf("Idle connection %d not closed by shutdown", c.id)
		}
	}
	st := p.Stats()
	if !st.Draining || st.Idle != 0 {
		t.Errorf("Unexpected stats after close: %+v", st)
	}
}

// TestCloseIdempotent tests repeated Close calls are harmless
func TestCloseIdempotent(t *testing.T) {
	p, _ := newTestPool(t, 1)
	p.Close()
	p.Close()
}

// TestLateReleaseAfterClose tests a connection still checked out during
// shutdown is closed on release, never re-queued
func TestLateReleaseAfterClose(t *testing.T) {
	p, _ := newTestPool(t, 2)

	l, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	held := l.Conn().(*stubConn)

	p.Close()
	if held.isClosed() {
		t.Fatal("Close must not touch checked-out connections")
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if !held.isClosed() {
		t.Error("Late release should close the connection")
	}
	st := p.Stats()
	if st.Idle != 0 {
		t.Error("Late release must not re-enter the idle queue")
	}
	if st.Reclaimed != 1 {
		t.Errorf("Expected 1 reclaimed connection, got %d", st.Reclaimed)
	}
}

// TestCloseAndWait tests shutdown blocking until outstanding leases return
func TestCloseAndWait(t *testing.T) {
	p, _ := newTestPool(t, 2)

	l, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- p.CloseAndWait(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("CloseAndWait should block while a lease is outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	l.Release()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("CloseAndWait failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("CloseAndWait never returned")
	}
}

// TestCloseAndWaitCancel tests CloseAndWait honors context cancellation
func TestCloseAndWaitCancel(t *testing.T) {
	p, _ := newTestPool(t, 1)

	l, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.CloseAndWait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
}

// TestAcquireContextCancel tests a parked acquire observes cancellation
func TestAcquireContextCancel(t *testing.T) {
	p, _ := newTestPool(t, 1)
	defer p.Close()

	l, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.AcquireContext(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Cancelled acquire never returned")
	}
}

// TestAcquireTimeout tests the configured acquire timeout
func TestAcquireTimeout(t *testing.T) {
	p, _ := newTestPool(t, 1, WithAcquireTimeout(30*time.Millisecond))
	defer p.Close()

	l, err := p.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer l.Release()

	if _, err := p.Acquire(); !errors.Is(err, errs.ErrAcquireTimeout) {
		t.Errorf("Expected ErrAcquireTimeout, got %v", err)
	}
}

// TestConcurrentAcquireRelease tests no connection is ever held by two
// callers at once under contention
func TestConcurrentAcquireRelease(t *testing.T) {
	p, _ := newTestPool(t, 4)
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				l, err := p.Acquire()
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				l.Conn().(*stubConn).use(t)
				if err := l.Release(); err != nil {
					t.Errorf("Release failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	st := p.Stats()
	if st.Idle != st.Capacity || st.Leased != 0 {
		t.Errorf("Pool did not return to full idle: %+v", st)
	}
}
