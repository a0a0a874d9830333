// Package experiment implements the owner type from spec.md §3: one
// aptamer pool plus an ordered list of selection cycles, with exclusive
// create/close ownership of both.
package experiment

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"aptapool/internal/cycle"
	"aptapool/internal/pool"
)

// cycleKey identifies one cycle by round and name. spec.md §3 allows a
// round to carry zero or more control cycles and zero or more
// counter-selection cycles alongside its at-most-one selection cycle, so
// round alone is not a unique key.
type cycleKey struct {
	round int
	name  string
}

// Experiment owns the pool and the ordered set of selection cycles for one
// SELEX run. Cycles hold only their round number and reach their neighbors
// through a weak back-reference into the Experiment (spec.md §9), never an
// owning relation the other way.
type Experiment struct {
	dir  string
	pool *pool.Pool

	mu sync.RWMutex
	// byKey holds every opened cycle, keyed uniquely by (round, name).
	byKey map[cycleKey]*cycle.Cycle
	// selection holds only the at-most-one selection cycle per round
	// (IsControl == false && IsCounter == false) — the cycle ordinary
	// demultiplexed reads land in. Control/counter cycles sharing a round
	// with the selection cycle are still tracked in byKey but never
	// overwrite this entry.
	selection map[int]*cycle.Cycle
	capacity  uint64
	fpRate    float64
}

// Open creates or reopens the experiment rooted at dir: a pooldata/
// subdirectory for the pool, and a cycledata/ subdirectory holding one
// store per cycle (spec.md §6).
func Open(dir string, capacity uint64, fpRate float64) (*Experiment, error) {
	p, err := pool.Open(filepath.Join(dir, "pooldata"), capacity, fpRate)
	if err != nil {
		return nil, fmt.Errorf("experiment: open pool: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "cycledata"), 0o755); err != nil {
		p.Close()
		return nil, fmt.Errorf("experiment: create cycledata: %w", err)
	}
	return &Experiment{
		dir:       dir,
		pool:      p,
		byKey:     make(map[cycleKey]*cycle.Cycle),
		selection: make(map[int]*cycle.Cycle),
		capacity:  capacity,
		fpRate:    fpRate,
	}, nil
}

// Pool returns the experiment's aptamer pool.
func (e *Experiment) Pool() *pool.Pool { return e.pool }

// OpenCycle creates (or reopens) the cycle for round/name and registers it
// into this experiment's ordered list, wiring its next/previous
// back-reference. Opening a second selection cycle (IsControl == false &&
// IsCounter == false) at a round that already has one is rejected, per
// spec.md §3's "at most one selection cycle" per round.
func (e *Experiment) OpenCycle(round int, name, bc5, bc3 string, isControl, isCounter bool) (*cycle.Cycle, error) {
	key := cycleKey{round: round, name: name}
	isSelection := !isControl && !isCounter

	e.mu.RLock()
	if isSelection {
		if existing, ok := e.selection[round]; ok && existing.Name != name {
			e.mu.RUnlock()
			return nil, fmt.Errorf("experiment: round %d already has selection cycle %q", round, existing.Name)
		}
	}
	e.mu.RUnlock()

	path := filepath.Join(e.dir, "cycledata", fmt.Sprintf("%d_%s.store", round, name))
	c, err := cycle.Open(path, round, name, bc5, bc3, isControl, isCounter, e.pool, e.capacity, e.fpRate)
	if err != nil {
		return nil, fmt.Errorf("experiment: open cycle %s: %w", name, err)
	}
	c.AttachNeighbors(e)

	e.mu.Lock()
	e.byKey[key] = c
	if isSelection {
		e.selection[round] = c
	}
	e.mu.Unlock()
	return c, nil
}

// CycleAtRound resolves the at-most-one selection cycle for round — the
// destination for reads demultiplexed purely by round, and the
// neighbor-lookup contract cycle.Cycle uses for NextCycle/PreviousCycle.
// Control and counter cycles sharing the round are never returned here;
// use CycleByName for those.
func (e *Experiment) CycleAtRound(round int) (*cycle.Cycle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.selection[round]
	return c, ok
}

// CycleByName resolves one specific cycle, selection, control, or counter,
// by its (round, name) key.
func (e *Experiment) CycleByName(round int, name string) (*cycle.Cycle, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	c, ok := e.byKey[cycleKey{round: round, name: name}]
	return c, ok
}

// Cycles returns every registered cycle (selection, control, and counter),
// ordered by round then name.
func (e *Experiment) Cycles() []*cycle.Cycle {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]cycleKey, 0, len(e.byKey))
	for k := range e.byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].round != keys[j].round {
			return keys[i].round < keys[j].round
		}
		return keys[i].name < keys[j].name
	})
	out := make([]*cycle.Cycle, len(keys))
	for i, k := range keys {
		out[i] = e.byKey[k]
	}
	return out
}

// Flush commits the pool and every cycle to disk.
func (e *Experiment) Flush() error {
	if err := e.pool.Flush(); err != nil {
		return err
	}
	for _, c := range e.Cycles() {
		if err := c.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the pool and every cycle, cycles first since they only
// read through the pool during teardown.
func (e *Experiment) Close() error {
	for _, c := range e.Cycles() {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return e.pool.Close()
}
