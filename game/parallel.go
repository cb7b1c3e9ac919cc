package game

import (
	"errors"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/pthm-cable/ecogrid/systems"
)

// ErrPoolClosed is the panic value raised by Submit after Shutdown.
var ErrPoolClosed = errors.New("game: submit on closed pool")

// Seed domains for per-task generators.
const (
	phaseTerrain uint64 = iota + 1
	phaseBehavior
)

// workerScratch holds per-worker reusable state. A task receives the scratch
// of the worker running it and must not retain it.
type workerScratch struct {
	id  int
	src *rand.PCG
	rng *rand.Rand

	planner *systems.Planner

	nearby []sensed
}

// reseed makes the worker generator a pure function of the task identity,
// so results do not depend on which worker runs which task.
func (s *workerScratch) reseed(seed uint64, tick int32, phase uint64, partition int) {
	hi := seed ^ (uint64(tick)+1)*0x9e3779b97f4a7c15
	lo := phase<<32 | uint64(uint32(partition))
	s.src.Seed(hi, lo)
}

// plannerFor returns the worker's A* planner, sized for a w x h grid.
func (s *workerScratch) plannerFor(w, h, maxOpen int) *systems.Planner {
	if s.planner == nil || s.planner.W != w || s.planner.H != h || s.planner.MaxOpen != maxOpen {
		s.planner = systems.NewPlanner(w, h, maxOpen, s.rng)
	}
	return s.planner
}

// Handle tracks a single submitted task.
type Handle struct {
	done chan struct{}
}

// Wait blocks until the task has finished.
func (h *Handle) Wait() {
	<-h.done
}

// Done returns a channel closed when the task has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

type poolTask struct {
	fn     func(*workerScratch)
	handle *Handle
}

// Pool runs tasks on a fixed set of persistent workers fed from one FIFO.
type Pool struct {
	mu      sync.RWMutex
	stopped bool

	workChan  chan poolTask
	pending   sync.WaitGroup // submitted but unfinished tasks
	workers   sync.WaitGroup // live worker goroutines
	scratches []*workerScratch
}

// NewPool starts n workers (GOMAXPROCS when n < 1). seed initialises the
// worker generators; tasks that need reproducible draws reseed explicitly.
func NewPool(n int, seed uint64) *Pool {
	if n < 1 {
		n = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		workChan:  make(chan poolTask, n*64),
		scratches: make([]*workerScratch, n),
	}
	for i := range p.scratches {
		src := rand.NewPCG(seed, uint64(i))
		p.scratches[i] = &workerScratch{
			id:     i,
			src:    src,
			rng:    rand.New(src),
			nearby: make([]sensed, 0, 64),
		}
	}
	for _, s := range p.scratches {
		p.workers.Add(1)
		go p.worker(s)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.scratches)
}

// Submit queues fn and returns its handle. It panics with ErrPoolClosed
// once Shutdown has been called.
func (p *Pool) Submit(fn func(*workerScratch)) *Handle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		panic(ErrPoolClosed)
	}

	h := &Handle{done: make(chan struct{})}
	p.pending.Add(1)
	p.workChan <- poolTask{fn: fn, handle: h}
	return h
}

// WaitForAll blocks until every task submitted so far has finished.
func (p *Pool) WaitForAll() {
	p.pending.Wait()
}

// Shutdown stops accepting work, lets the workers drain the queue and joins
// them. Calling it again is a no-op.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.workChan)
	p.mu.Unlock()

	p.workers.Wait()
}

// worker runs in a goroutine, processing tasks until the queue is closed.
func (p *Pool) worker(s *workerScratch) {
	defer p.workers.Done()
	for t := range p.workChan {
		p.run(s, t)
	}
}

func (p *Pool) run(s *workerScratch, t poolTask) {
	defer func() {
		close(t.handle.done)
		p.pending.Done()
	}()
	t.fn(s)
}

// forEach runs fn for every index in [0, n) on the pool and waits.
func (p *Pool) forEach(n int, fn func(s *workerScratch, i int)) {
	for i := 0; i < n; i++ {
		p.Submit(func(s *workerScratch) { fn(s, i) })
	}
	p.WaitForAll()
}

// forChunks splits [0, n) into contiguous ranges, one task each, and waits.
func (p *Pool) forChunks(n int, fn func(s *workerScratch, start, end int)) {
	if n == 0 {
		return
	}
	chunk := (n + p.Size() - 1) / p.Size()
	if chunk < parallelThreshold {
		chunk = parallelThreshold
	}
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		p.Submit(func(s *workerScratch) { fn(s, start, end) })
	}
	p.WaitForAll()
}

// parallelThreshold is the minimum chunk length handed to one task.
// Below this, goroutine handoff costs more than the work.
const parallelThreshold = 64

