package game

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestPool_WaitForAllIsBarrier(t *testing.T) {
	p := NewPool(4, 1)
	defer p.Shutdown()

	var done atomic.Int64
	for i := 0; i < 200; i++ {
		p.Submit(func(*workerScratch) { done.Add(1) })
	}
	p.WaitForAll()
	if got := done.Load(); got != 200 {
		t.Errorf("expected 200 finished tasks after WaitForAll, got %d", got)
	}
}

func TestPool_HandleWait(t *testing.T) {
	p := NewPool(2, 1)
	defer p.Shutdown()

	var ran atomic.Bool
	h := p.Submit(func(*workerScratch) { ran.Store(true) })
	h.Wait()
	if !ran.Load() {
		t.Error("task should have run before Wait returned")
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed")
	}
}

func TestPool_SubmitAfterShutdownPanics(t *testing.T) {
	p := NewPool(2, 1)
	p.Shutdown()
	p.Shutdown() // idempotent

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrPoolClosed) {
			t.Fatalf("expected panic with ErrPoolClosed, got %v", r)
		}
	}()
	p.Submit(func(*workerScratch) {})
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	p := NewPool(1, 1)
	var done atomic.Int64
	for i := 0; i < 50; i++ {
		p.Submit(func(*workerScratch) { done.Add(1) })
	}
	p.Shutdown()
	if got := done.Load(); got != 50 {
		t.Errorf("expected queued tasks to finish before Shutdown returns, got %d", got)
	}
}

func TestPool_ForChunksCoversRange(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		n       int
	}{
		{"empty", 4, 0},
		{"below threshold", 4, 10},
		{"many chunks", 3, 1000},
		{"single worker", 1, 257},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPool(tt.workers, 1)
			defer p.Shutdown()

			hits := make([]atomic.Int32, tt.n)
			p.forChunks(tt.n, func(_ *workerScratch, start, end int) {
				for i := start; i < end; i++ {
					hits[i].Add(1)
				}
			})
			for i := range hits {
				if got := hits[i].Load(); got != 1 {
					t.Fatalf("index %d visited %d times", i, got)
				}
			}
		})
	}
}

func TestWorkerScratch_ReseedIsDeterministic(t *testing.T) {
	p := NewPool(2, 7)
	defer p.Shutdown()

	a, b := p.scratches[0], p.scratches[1]
	a.reseed(99, 5, phaseBehavior, 3)
	b.reseed(99, 5, phaseBehavior, 3)
	for i := 0; i < 10; i++ {
		if x, y := a.rng.Uint64(), b.rng.Uint64(); x != y {
			t.Fatalf("draw %d differs between workers: %d vs %d", i, x, y)
		}
	}

	b.reseed(99, 5, phaseTerrain, 3)
	a.reseed(99, 5, phaseBehavior, 3)
	if a.rng.Uint64() == b.rng.Uint64() {
		t.Error("different phases should produce different streams")
	}
}

func TestLocks_BlockIndexAndPair(t *testing.T) {
	l := newLocks(4, 10, 10, 4)
	if got := l.BlockIndex(0, 0); got != 0 {
		t.Errorf("BlockIndex(0,0) = %d, want 0", got)
	}
	if got := l.BlockIndex(9, 9); got != 8 {
		t.Errorf("BlockIndex(9,9) = %d, want 8", got)
	}

	// Equal ids must lock once, reversed ids must not deadlock.
	l.lockPair(2, 2)
	l.unlockPair(2, 2)
	l.lockPair(3, 1)
	l.unlockPair(3, 1)
	l.lockPair(1, 3)
	l.unlockPair(1, 3)
}
