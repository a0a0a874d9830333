// Package caprdriver implements the CapR driver from spec.md §4.10: a
// single producer walking the pool in ascending id order feeds a bounded
// queue; N-1 consumers each own a private capr.Engine (its per-length work
// arrays are not safe for concurrent use) and report finished profiles
// through a callback.
package caprdriver

import (
	"runtime"
	"sync"
	"sync/atomic"

	"aptapool/internal/capr"
	"aptapool/internal/pool"
)

// poisonPill is the sentinel terminating consumers, matching the AptaPlex
// driver's queue-termination contract in spec.md §4.8.
type poisonPill struct{}

// Config controls one driver run.
type Config struct {
	QueueCapacity int
	MaxThreads    int
	Engine        capr.Config
}

// Result is one finished profile, handed to the caller's sink. Per
// spec.md §4.10 the driver does not prescribe persistence; callers write
// Result into a profile store or collect it as they see fit.
type Result struct {
	ID      uint32
	Profile *capr.Profile
}

// Driver runs the 1-producer/N-consumer CapR pipeline over a pool.
type Driver struct {
	cfg Config

	// Progress counts sequences the consumers have finished with so far,
	// including any the engine rejected; safe to read from another
	// goroutine while Run is in flight.
	Progress uint64
}

// New constructs a Driver, filling in defaults for zero fields.
func New(cfg Config) *Driver {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 256
	}
	if cfg.MaxThreads <= 0 {
		cfg.MaxThreads = runtime.NumCPU()
	}
	return &Driver{cfg: cfg}
}

// Run streams every registered (id, sequence) pair from p through the CapR
// engine, ascending by id per spec.md §5's ordering guarantee, calling sink
// for each finished profile. sink may be called concurrently from multiple
// consumer goroutines and must be safe for that.
func (d *Driver) Run(p *pool.Pool, sink func(Result)) error {
	n := d.cfg.MaxThreads
	if n < 1 {
		n = 1
	}
	consumers := n - 1
	if consumers < 1 {
		consumers = 1
	}

	queue := make(chan interface{}, d.cfg.QueueCapacity)

	var wg sync.WaitGroup
	wg.Add(consumers)
	for i := 0; i < consumers; i++ {
		go func() {
			defer wg.Done()
			engine := capr.New(d.cfg.Engine)
			for job := range queue {
				if _, ok := job.(poisonPill); ok {
					queue <- job
					return
				}
				e := job.(pool.Entry)
				profile, err := engine.Predict(e.Sequence)
				if err != nil {
					atomic.AddUint64(&d.Progress, 1)
					continue
				}
				sink(Result{ID: e.ID, Profile: profile})
				atomic.AddUint64(&d.Progress, 1)
			}
		}()
	}

	p.Iter(func(e pool.Entry) bool {
		seq := make([]byte, len(e.Sequence))
		copy(seq, e.Sequence)
		queue <- pool.Entry{ID: e.ID, Sequence: seq}
		return true
	})
	queue <- poisonPill{}

	wg.Wait()
	return nil
}
