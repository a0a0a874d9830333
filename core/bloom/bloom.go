// Package bloom implements a counting Bloom filter sized from an expected
// capacity and a target false-positive rate, used as a fast-reject gate in
// front of the persistent key-value store.
//
// Guarantees: zero false negatives, and a false-positive rate at or below
// the configured target as long as the live element count stays at or below
// the configured capacity. Cells are incremented atomically so concurrent
// producers never need to take a lock (see aptamer pool concurrency notes).
package bloom

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	"github.com/chmduquesne/rollinghash/buzhash32"
)

// Filter is a counting Bloom filter over arbitrary byte keys.
type Filter struct {
	cells  []uint32
	tables [][256]uint32
	k      int
}

// New sizes a Filter from the expected number of elements and a target
// false-positive rate, following the standard m = -n*ln(p)/(ln2)^2,
// k = (m/n)*ln2 sizing formulas.
func New(capacity uint64, fpRate float64) *Filter {
	if capacity == 0 {
		capacity = 1
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}
	m := uint64(math.Ceil(-float64(capacity) * math.Log(fpRate) / (math.Ln2 * math.Ln2)))
	if m < 8 {
		m = 8
	}
	k := int(math.Round(float64(m) / float64(capacity) * math.Ln2))
	if k < 1 {
		k = 1
	}
	if k > 16 {
		k = 16
	}
	return &Filter{
		cells:  make([]uint32, m),
		tables: genTables(k),
		k:      k,
	}
}

// genTables builds k independent 256-entry tables of distinct pseudo-random
// uint32 values so each hash
// function in the family is statistically independent of the others, the
// same construction used by the reference Bloom filter in the corpus
// (kshedden-seqmatch's buzhash-family filter) — but seeded deterministically
// here so that filter behavior is reproducible across runs.
func genTables(k int) [][256]uint32 {
	tables := make([][256]uint32, k)
	var seed uint64 = 0x9e3779b97f4a7c15
	for j := 0; j < k; j++ {
		used := make(map[uint32]bool, 256)
		for i := 0; i < 256; i++ {
			for {
				seed = splitmix64(seed)
				x := uint32(seed)
				if !used[x] {
					used[x] = true
					tables[j][i] = x
					break
				}
			}
		}
	}
	return tables
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	z := x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (f *Filter) positions(key []byte) []uint32 {
	pos := make([]uint32, f.k)
	m := uint32(len(f.cells))
	for j := 0; j < f.k; j++ {
		h := buzhash32.NewFromUint32Array(f.tables[j])
		h.Write(key)
		pos[j] = h.Sum32() % m
	}
	return pos
}

// Add registers key with the filter. Safe for concurrent use.
func (f *Filter) Add(key []byte) {
	for _, p := range f.positions(key) {
		atomic.AddUint32(&f.cells[p], 1)
	}
}

// MaybeContains reports whether key may be present. A false return is
// always accurate (no false negatives); a true return may be a false
// positive at the configured target rate.
func (f *Filter) MaybeContains(key []byte) bool {
	for _, p := range f.positions(key) {
		if atomic.LoadUint32(&f.cells[p]) == 0 {
			return false
		}
	}
	return true
}

// AddUint32 and MaybeContainsUint32 are convenience wrappers for the
// integer-id filter used by selection cycles.
func (f *Filter) AddUint32(id uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], id)
	f.Add(buf[:])
}

func (f *Filter) MaybeContainsUint32(id uint32) bool {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], id)
	return f.MaybeContains(buf[:])
}

// WriteTo serializes the filter's cell counts to w (little-endian, one
// uint32 per cell, preceded by a cell-count/k header) for the pool
// directory's *.bloom sidecar file.
func (f *Filter) WriteTo(w io.Writer) (int64, error) {
	hdr := make([]byte, 12)
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(len(f.cells)))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(f.k))
	binary.LittleEndian.PutUint32(hdr[8:12], magic)
	if _, err := w.Write(hdr); err != nil {
		return 0, err
	}
	buf := make([]byte, len(f.cells)*4)
	for i, c := range f.cells {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], c)
	}
	n, err := w.Write(buf)
	return int64(12 + n), err
}

const magic = 0x424c4d31 // "BLM1"

// ReadFrom restores a filter previously written by WriteTo. The hash table
// family is regenerated deterministically from k, matching the writer.
func ReadFrom(r io.Reader) (*Filter, error) {
	hdr := make([]byte, 12)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("bloom: read header: %w", err)
	}
	if binary.LittleEndian.Uint32(hdr[8:12]) != magic {
		return nil, fmt.Errorf("bloom: %w", ErrCorrupt)
	}
	m := binary.LittleEndian.Uint32(hdr[0:4])
	k := int(binary.LittleEndian.Uint32(hdr[4:8]))
	buf := make([]byte, int(m)*4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("bloom: read cells: %w", err)
	}
	cells := make([]uint32, m)
	for i := range cells {
		cells[i] = binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
	}
	return &Filter{cells: cells, tables: genTables(k), k: k}, nil
}

// ErrCorrupt is returned by ReadFrom when the sidecar file's header magic
// does not match; callers should treat this as the store_corrupt fatal kind.
var ErrCorrupt = fmt.Errorf("corrupt bloom filter file")
