// Package cycle implements a SELEX selection cycle: a persistent id->count
// multiset with Bloom-filter acceleration, per spec.md §4.4.
package cycle

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"aptapool-core/bloom"
	"aptapool-core/kvstore"

	"aptapool/internal/pool"
)

// Cycle is one named SELEX round: a persistent id->count map plus the
// cached totals derived from it.
type Cycle struct {
	Round      int
	Name       string
	Barcode5   string
	Barcode3   string
	IsControl  bool
	IsCounter  bool

	pool *pool.Pool

	counts    *kvstore.Store // id (Key32) -> uint32 count, little-endian
	idsSeen   *bloom.Filter
	bloomPath string // cycledata/{round}_{name}.bloom sidecar, per spec.md §6

	mu         sync.Mutex
	size       uint64
	uniqueSize uint64

	// neighbors is set by experiment.Attach so Cycle can implement
	// NextCycle/PreviousCycle via a weak back-reference, per spec.md §9.
	neighbors neighborLookup
}

// neighborLookup lets a Cycle navigate its owning experiment's ordered
// cycle list without holding an owning reference to it.
type neighborLookup interface {
	CycleAtRound(round int) (*Cycle, bool)
}

// Open creates or reopens the cycle's persistent count map at path,
// replaying every persisted key to rebuild size/unique_size and reseed the
// Bloom filter — the same reopen-by-replay behavior as the pool, grounded
// on MapDBSelectionCycle's constructor-time full scan.
func Open(path string, round int, name, bc5, bc3 string, isControl, isCounter bool, p *pool.Pool, capacity uint64, fpRate float64) (*Cycle, error) {
	store, err := kvstore.Open(path, kvstore.IdentityCodec{})
	if err != nil {
		return nil, fmt.Errorf("cycle %s: open counts store: %w", name, err)
	}

	c := &Cycle{
		Round:     round,
		Name:      name,
		Barcode5:  bc5,
		Barcode3:  bc3,
		IsControl: isControl,
		IsCounter: isCounter,
		pool:      p,
		counts:    store,
		idsSeen:   bloom.New(capacity, fpRate),
		bloomPath: strings.TrimSuffix(path, ".store") + ".bloom",
	}

	var size, unique uint64
	store.RangeIter(func(e kvstore.Entry) bool {
		if len(e.Value) != 4 {
			return true
		}
		count := binary.LittleEndian.Uint32(e.Value)
		size += uint64(count)
		unique++
		c.idsSeen.AddUint32(kvstore.ParseKey32(e.Key))
		return true
	})
	c.size = size
	c.uniqueSize = unique

	return c, nil
}

// Add registers sequence into the pool (if not already present) and
// increments this cycle's count for the resulting id, per spec.md §4.4: a
// Bloom miss is treated as definite-absent, a Bloom hit is verified by a
// map lookup to tolerate false positives.
func (c *Cycle) Add(sequence []byte, primer5Trim, primer3Trim int) (uint32, error) {
	id, err := c.pool.Register(sequence, primer5Trim, primer3Trim)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := kvstore.Key32(id)
	var count uint32
	if c.idsSeen.MaybeContainsUint32(id) {
		if v, ok := c.counts.Get(key); ok && len(v) == 4 {
			count = binary.LittleEndian.Uint32(v)
		}
	}
	isNew := count == 0
	count++

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], count)
	c.counts.Put(key, buf[:])
	c.idsSeen.AddUint32(id)

	atomic.AddUint64(&c.size, 1)
	if isNew {
		atomic.AddUint64(&c.uniqueSize, 1)
	}
	return id, nil
}

// Contains reports whether sequence has ever been added to this cycle.
func (c *Cycle) Contains(sequence []byte) bool {
	id, ok := c.pool.IdentifierOf(sequence)
	if !ok {
		return false
	}
	return c.containsID(id)
}

func (c *Cycle) containsID(id uint32) bool {
	if !c.idsSeen.MaybeContainsUint32(id) {
		return false
	}
	v, ok := c.counts.Get(kvstore.Key32(id))
	return ok && len(v) == 4 && binary.LittleEndian.Uint32(v) > 0
}

// CountOf returns the number of times sequence has been added to this
// cycle, or 0 if it was never added.
func (c *Cycle) CountOf(sequence []byte) uint32 {
	id, ok := c.pool.IdentifierOf(sequence)
	if !ok {
		return 0
	}
	if !c.idsSeen.MaybeContainsUint32(id) {
		return 0
	}
	v, ok := c.counts.Get(kvstore.Key32(id))
	if !ok || len(v) != 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(v)
}

// Size returns the cached Sigma(counts) total.
func (c *Cycle) Size() uint64 {
	return atomic.LoadUint64(&c.size)
}

// UniqueSize returns the cached distinct-key count.
func (c *Cycle) UniqueSize() uint64 {
	return atomic.LoadUint64(&c.uniqueSize)
}

// AttachNeighbors is called by experiment.Experiment when registering a
// cycle into its ordered list; it wires the weak back-reference used by
// NextCycle/PreviousCycle.
func (c *Cycle) AttachNeighbors(n neighborLookup) {
	c.neighbors = n
}

// NextCycle returns the cycle at the next round after this one, if any.
func (c *Cycle) NextCycle() (*Cycle, bool) {
	if c.neighbors == nil {
		return nil, false
	}
	return c.neighbors.CycleAtRound(c.Round + 1)
}

// PreviousCycle returns the cycle at the round before this one, if any.
func (c *Cycle) PreviousCycle() (*Cycle, bool) {
	if c.neighbors == nil || c.Round == 0 {
		return nil, false
	}
	return c.neighbors.CycleAtRound(c.Round - 1)
}

// Flush commits the cycle's count map to disk, along with the
// {round}_{name}.bloom sidecar spec.md §6 names. The sidecar is a
// fast-reject cache only; Open always rebuilds idsSeen by replay and never
// depends on this file being present or current.
func (c *Cycle) Flush() error {
	if err := c.counts.Flush(); err != nil {
		return err
	}
	return c.writeBloom()
}

func (c *Cycle) writeBloom() error {
	f, err := os.Create(c.bloomPath)
	if err != nil {
		return fmt.Errorf("cycle %s: create bloom sidecar: %w", c.Name, err)
	}
	defer f.Close()
	if _, err := c.idsSeen.WriteTo(f); err != nil {
		return fmt.Errorf("cycle %s: write bloom sidecar: %w", c.Name, err)
	}
	return nil
}

// Close flushes and releases the cycle's store handle, writing the bloom
// sidecar first so Close alone (without a preceding Flush) still produces it.
func (c *Cycle) Close() error {
	if err := c.writeBloom(); err != nil {
		return err
	}
	return c.counts.Close()
}
