package pool_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MG-RAST/Sieve/sieve/errors"
	. "github.com/MG-RAST/Sieve/sieve/pool"
)

func TestAcquireRelease(t *testing.T) {
	p := New(2, 4, true)

	b1, err := p.Acquire()
	require.NoError(t, err)
	b2, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 2, p.InFlight())

	s := p.Stats()
	assert.Equal(t, uint64(0), s.Hits)
	assert.Equal(t, uint64(2), s.Misses)

	p.Release(b1)
	p.Release(b2)
	assert.Equal(t, 0, p.InFlight())

	// recycled batches come back cleared
	b3, err := p.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 0, b3.Len())
	s = p.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, uint64(2), s.Misses)
}

func TestAcquireBlocksAtCapacity(t *testing.T) {
	p := New(1, 4, true)
	b, err := p.Acquire()
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		b2, err := p.Acquire()
		assert.NoError(t, err)
		p.Release(b2)
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("acquire should block while the pool is exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	p.Release(b)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("release did not unblock the waiter")
	}
}

func TestShutdownUnblocksWaiters(t *testing.T) {
	p := New(1, 4, true)
	_, err := p.Acquire()
	require.NoError(t, err)

	done := make(chan error)
	go func() {
		_, err := p.Acquire()
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	p.Shutdown()

	select {
	case err := <-done:
		assert.Equal(t, errors.ErrPoolShutdown, err)
	case <-time.After(time.Second):
		t.Fatal("shutdown did not unblock the waiter")
	}

	_, err = p.Acquire()
	assert.Equal(t, errors.ErrPoolShutdown, err)
}

func TestRecyclingDisabled(t *testing.T) {
	p := New(2, 4, false)
	b, err := p.Acquire()
	require.NoError(t, err)
	p.Release(b)

	_, err = p.Acquire()
	require.NoError(t, err)
	s := p.Stats()
	assert.Equal(t, uint64(0), s.Hits)
	assert.Equal(t, uint64(2), s.Misses)
	assert.Equal(t, 0, s.Size)
}

func TestConcurrentAccounting(t *testing.T) {
	const capacity = 8
	p := New(capacity, 16, true)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b, err := p.Acquire()
				if err != nil {
					return
				}
				assert.LessOrEqual(t, p.Stats().Live, capacity)
				p.Release(b)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, p.InFlight())
	s := p.Stats()
	assert.Equal(t, uint64(32*100), s.Hits+s.Misses)
}
