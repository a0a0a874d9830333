// Package pool implements the aptamer pool: the sequence<->id bijection and
// per-id randomized-region bounds that back every downstream selection
// cycle and structural profile.
package pool

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"aptapool-core/bloom"
	"aptapool-core/kvstore"
)

// Bounds marks the randomized region [Start, End) of a registered sequence;
// the prefix is the matched 5' primer, the suffix the matched 3' primer.
type Bounds struct {
	Start uint32
	End   uint32
}

// Pool is the persistent sequence<->id store described in spec.md §4.3: two
// ordered maps (seq->id, id->bounds) plus a third (id->seq, needed so the
// CapR driver can recover sequence bytes by id without reversing the
// byte-keyed map) and two Bloom filters accelerating lookups.
type Pool struct {
	dir string

	seqToID    *kvstore.Store
	idToBounds *kvstore.Store
	idToSeq    *kvstore.Store

	bloomSeq *bloom.Filter
	bloomID  *bloom.Filter

	nextID uint32

	// registerMu serializes register so that concurrent AptaPlex consumers
	// racing on the same sequence end with exactly one id, per spec.md
	// §4.3's invariant. Reads (identifier_of, bounds_of, iter) take no lock.
	registerMu sync.Mutex
}

// Open creates or reopens the pool directory rooted at dir. capacity and
// fpRate size the two Bloom filters.
func Open(dir string, capacity uint64, fpRate float64) (*Pool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pool: create %s: %w", dir, err)
	}
	seqToID, err := kvstore.Open(filepath.Join(dir, "seq_to_id.store"), kvstore.IdentityCodec{})
	if err != nil {
		return nil, fmt.Errorf("pool: open seq_to_id: %w", err)
	}
	idToBounds, err := kvstore.Open(filepath.Join(dir, "id_to_bounds.store"), kvstore.IdentityCodec{})
	if err != nil {
		return nil, fmt.Errorf("pool: open id_to_bounds: %w", err)
	}
	idToSeq, err := kvstore.Open(filepath.Join(dir, "id_to_seq.store"), kvstore.SnappyCodec{})
	if err != nil {
		return nil, fmt.Errorf("pool: open id_to_seq: %w", err)
	}

	p := &Pool{
		dir:        dir,
		seqToID:    seqToID,
		idToBounds: idToBounds,
		idToSeq:    idToSeq,
		bloomSeq:   bloom.New(capacity, fpRate),
		bloomID:    bloom.New(capacity, fpRate),
	}

	// Reopening replays the persisted map to reseed the Bloom filters and
	// recover next_id, mirroring MapDBSelectionCycle's reopen behavior: a
	// Bloom filter is never itself persisted as ground truth for presence,
	// only as a fast-reject cache rebuilt from the store it shadows.
	var maxID uint32
	seen := false
	idToSeq.RangeIter(func(e kvstore.Entry) bool {
		id := kvstore.ParseKey32(e.Key)
		p.bloomSeq.Add(e.Value)
		p.bloomID.AddUint32(id)
		if !seen || id >= maxID {
			maxID = id
			seen = true
		}
		return true
	})
	if seen {
		p.nextID = maxID + 1
	}

	return p, nil
}

// Register assigns or returns the id for sequence, recording the
// randomized-region bounds (primer5Trim, length-primer3Trim) the first time
// the sequence is seen. Safe for concurrent use.
func (p *Pool) Register(sequence []byte, primer5Trim, primer3Trim int) (uint32, error) {
	p.registerMu.Lock()
	defer p.registerMu.Unlock()

	if p.bloomSeq.MaybeContains(sequence) {
		if v, ok := p.seqToID.Get(sequence); ok {
			return binary.LittleEndian.Uint32(v), nil
		}
	}

	id := p.nextID
	atomic.StoreUint32(&p.nextID, p.nextID+1)

	var idBuf [4]byte
	binary.LittleEndian.PutUint32(idBuf[:], id)
	p.seqToID.Put(sequence, idBuf[:])

	start := uint32(primer5Trim)
	end := uint32(len(sequence) - primer3Trim)
	var boundsBuf [8]byte
	binary.LittleEndian.PutUint32(boundsBuf[0:4], start)
	binary.LittleEndian.PutUint32(boundsBuf[4:8], end)
	p.idToBounds.Put(kvstore.Key32(id), boundsBuf[:])

	p.idToSeq.Put(kvstore.Key32(id), sequence)

	p.bloomSeq.Add(sequence)
	p.bloomID.AddUint32(id)

	return id, nil
}

// IdentifierOf returns the id for sequence, or ok=false if it has never
// been registered.
func (p *Pool) IdentifierOf(sequence []byte) (id uint32, ok bool) {
	if !p.bloomSeq.MaybeContains(sequence) {
		return 0, false
	}
	v, ok := p.seqToID.Get(sequence)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(v), true
}

// BoundsOf returns the randomized-region bounds for id; behavior is
// undefined (ok=false) for an id that was never registered.
func (p *Pool) BoundsOf(id uint32) (b Bounds, ok bool) {
	v, ok := p.idToBounds.Get(kvstore.Key32(id))
	if !ok || len(v) != 8 {
		return Bounds{}, false
	}
	return Bounds{
		Start: binary.LittleEndian.Uint32(v[0:4]),
		End:   binary.LittleEndian.Uint32(v[4:8]),
	}, true
}

// SequenceOf returns the registered sequence bytes for id.
func (p *Pool) SequenceOf(id uint32) ([]byte, bool) {
	return p.idToSeq.Get(kvstore.Key32(id))
}

// HasID reports whether id has been registered, using the id Bloom filter
// as a fast-reject gate ahead of the persistent lookup.
func (p *Pool) HasID(id uint32) bool {
	if !p.bloomID.MaybeContainsUint32(id) {
		return false
	}
	_, ok := p.idToBounds.Get(kvstore.Key32(id))
	return ok
}

// Entry is one (id, sequence) pair yielded by Iter.
type Entry struct {
	ID       uint32
	Sequence []byte
}

// Iter calls fn for every registered (id, sequence) pair in ascending id
// order, stopping early if fn returns false.
func (p *Pool) Iter(fn func(Entry) bool) {
	p.idToSeq.RangeIter(func(e kvstore.Entry) bool {
		return fn(Entry{ID: kvstore.ParseKey32(e.Key), Sequence: e.Value})
	})
}

// Size returns next_id, the count of distinct registered sequences.
func (p *Pool) Size() uint32 {
	return atomic.LoadUint32(&p.nextID)
}

// Flush commits all three stores to disk, plus the pool_bloom.bin sidecar
// spec.md §6 names; this is the pool's coarse durability boundary (spec.md
// §4.1/§7: commits happen only at flush/close).
func (p *Pool) Flush() error {
	if err := p.seqToID.Flush(); err != nil {
		return fmt.Errorf("pool: flush seq_to_id: %w", err)
	}
	if err := p.idToBounds.Flush(); err != nil {
		return fmt.Errorf("pool: flush id_to_bounds: %w", err)
	}
	if err := p.idToSeq.Flush(); err != nil {
		return fmt.Errorf("pool: flush id_to_seq: %w", err)
	}
	return p.writeBloom()
}

// writeBloom persists both Bloom filters, sequence-keyed then id-keyed, to
// one pool_bloom.bin file. Like the cycle sidecar, this is a fast-reject
// cache only — Open always rebuilds both filters by replaying id_to_seq and
// never depends on this file being present or current.
func (p *Pool) writeBloom() error {
	f, err := os.Create(filepath.Join(p.dir, "pool_bloom.bin"))
	if err != nil {
		return fmt.Errorf("pool: create bloom sidecar: %w", err)
	}
	defer f.Close()
	if _, err := p.bloomSeq.WriteTo(f); err != nil {
		return fmt.Errorf("pool: write seq bloom: %w", err)
	}
	if _, err := p.bloomID.WriteTo(f); err != nil {
		return fmt.Errorf("pool: write id bloom: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying store handles, in the reverse
// order they were opened, per spec.md §9's teardown note, writing the bloom
// sidecar first so Close alone (without a preceding Flush) still produces it.
func (p *Pool) Close() error {
	if err := p.writeBloom(); err != nil {
		return err
	}
	if err := p.idToSeq.Close(); err != nil {
		return fmt.Errorf("pool: close id_to_seq: %w", err)
	}
	if err := p.idToBounds.Close(); err != nil {
		return fmt.Errorf("pool: close id_to_bounds: %w", err)
	}
	if err := p.seqToID.Close(); err != nil {
		return fmt.Errorf("pool: close seq_to_id: %w", err)
	}
	return nil
}
