// Package pool provides the bounded batch pool that amortises per-batch
// allocation across a run.
package pool

import (
	"sync"

	"github.com/MG-RAST/Sieve/sieve/errors"
	"github.com/MG-RAST/Sieve/sieve/record"
)

// Stats is a non-authoritative snapshot of pool accounting.
type Stats struct {
	Size   int
	Live   int
	Hits   uint64
	Misses uint64
}

// Pool hands out cleared batches and reclaims them after the sink stage.
// At most capacity batches exist at once; an acquire beyond that blocks until
// a release or shutdown. With recycling disabled every acquire allocates and
// every release discards.
type Pool struct {
	mu        sync.Mutex
	notEmpty  *sync.Cond
	free      []*record.Batch
	live      int
	capacity  int
	batchSize int
	recycle   bool
	down      bool
	hits      uint64
	misses    uint64
}

func New(capacity, batchSize int, recycle bool) *Pool {
	p := &Pool{
		capacity:  capacity,
		batchSize: batchSize,
		recycle:   recycle,
	}
	p.notEmpty = sync.NewCond(&p.mu)
	return p
}

func (p *Pool) Capacity() int {
	return p.capacity
}

// Acquire returns a cleared batch. It allocates while the live count is below
// capacity, blocks while the pool is exhausted, and fails with
// errors.ErrPoolShutdown once Shutdown has been called.
func (p *Pool) Acquire() (*record.Batch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.down {
			return nil, errors.ErrPoolShutdown
		}
		if n := len(p.free); n > 0 {
			b := p.free[n-1]
			p.free = p.free[:n-1]
			p.hits++
			return b, nil
		}
		if p.live < p.capacity {
			p.live++
			p.misses++
			return record.NewBatch(p.batchSize), nil
		}
		p.notEmpty.Wait()
	}
}

// Release clears the batch and re-admits it. Clearing here rather than on
// acquire keeps the acquire path allocation free in steady state.
func (p *Pool) Release(b *record.Batch) {
	if b == nil {
		return
	}
	b.Clear()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down || !p.recycle {
		p.live--
		p.notEmpty.Signal()
		return
	}
	p.free = append(p.free, b)
	p.notEmpty.Signal()
}

// Shutdown unblocks all waiters; subsequent acquires fail.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.down = true
	p.notEmpty.Broadcast()
	p.mu.Unlock()
}

// InFlight counts batches acquired and not yet released.
func (p *Pool) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live - len(p.free)
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Size:   len(p.free),
		Live:   p.live,
		Hits:   p.hits,
		Misses: p.misses,
	}
}
