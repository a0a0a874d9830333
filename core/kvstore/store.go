// Package kvstore implements a single-writer, many-reader ordered map from
// byte-string keys to byte-string values, backed by an immutable
// memory-mapped snapshot file that is rebuilt at Flush/Close.
//
// This is deliberately not a mutable on-disk B-tree: writes accumulate in an
// in-memory overlay and are only merged into a new snapshot at a coarse
// commit point (Flush or Close), matching the "batch-oriented index, not a
// database" framing — there is no partial-file recovery, and a crash
// mid-parse leaves the store at its last flushed snapshot.
package kvstore

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

var magic = [8]byte{'A', 'P', 'T', 'K', 'V', '1', 0, 0}

// ErrCorrupt is returned when a snapshot file's header does not match the
// expected magic/version, mapping to the store_corrupt fatal error kind.
var ErrCorrupt = errors.New("kvstore: corrupt or unrecognized store file")

// Store is an ordered byte-key/byte-value map backed by a file on disk.
type Store struct {
	path  string
	codec Codec

	mu       sync.RWMutex
	overlay  map[string][]byte // pending writes not yet flushed
	deleted  map[string]struct{}
	snapshot *snapshot // nil until a file exists on disk
}

type snapshot struct {
	data    []byte // whole file, mmap'd or read into memory
	offsets []int64
}

// Open opens the store rooted at path, creating an empty store if the file
// does not yet exist. codec controls value compression; pass IdentityCodec{}
// for small fixed-width values.
func Open(path string, codec Codec) (*Store, error) {
	s := &Store{
		path:    path,
		codec:   codec,
		overlay: make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
	if _, err := os.Stat(path); err == nil {
		snap, err := loadSnapshot(path)
		if err != nil {
			return nil, err
		}
		s.snapshot = snap
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("kvstore: stat %s: %w", path, err)
	}
	return s, nil
}

func loadSnapshot(path string) (*snapshot, error) {
	data, err := mmapFile(path)
	if err != nil {
		return nil, fmt.Errorf("kvstore: mmap %s: %w", path, err)
	}
	if len(data) < 20 || !bytes.Equal(data[0:8], magic[:]) {
		return nil, fmt.Errorf("kvstore: %s: %w", path, ErrCorrupt)
	}
	count := binary.LittleEndian.Uint32(data[8:12])
	indexOff := binary.LittleEndian.Uint64(data[len(data)-8:])
	if int(indexOff) > len(data) {
		return nil, fmt.Errorf("kvstore: %s: %w", path, ErrCorrupt)
	}
	idxBytes := data[indexOff : len(data)-8]
	offsets := make([]int64, count)
	for i := range offsets {
		if (i+1)*8 > len(idxBytes) {
			return nil, fmt.Errorf("kvstore: %s: %w", path, ErrCorrupt)
		}
		offsets[i] = int64(binary.LittleEndian.Uint64(idxBytes[i*8 : i*8+8]))
	}
	return &snapshot{data: data, offsets: offsets}, nil
}

// entryAt decodes the (key, encodedValue) pair stored at byte offset off.
func (sn *snapshot) entryAt(off int64) (key, val []byte) {
	d := sn.data
	klen := binary.LittleEndian.Uint32(d[off : off+4])
	off += 4
	key = d[off : off+int64(klen)]
	off += int64(klen)
	vlen := binary.LittleEndian.Uint32(d[off : off+4])
	off += 4
	val = d[off : off+int64(vlen)]
	return key, val
}

func (sn *snapshot) find(key []byte) ([]byte, bool) {
	if sn == nil {
		return nil, false
	}
	n := len(sn.offsets)
	i := sort.Search(n, func(i int) bool {
		k, _ := sn.entryAt(sn.offsets[i])
		return bytes.Compare(k, key) >= 0
	})
	if i < n {
		k, v := sn.entryAt(sn.offsets[i])
		if bytes.Equal(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Put stores v under k, shadowing any snapshot value for the same key.
func (s *Store) Put(k, v []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ks := string(k)
	delete(s.deleted, ks)
	s.overlay[ks] = append([]byte(nil), v...)
}

// Get returns the value for k and whether it was present.
func (s *Store) Get(k []byte) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ks := string(k)
	if _, gone := s.deleted[ks]; gone {
		return nil, false
	}
	if v, ok := s.overlay[ks]; ok {
		return v, true
	}
	enc, ok := s.snapshot.find(k)
	if !ok {
		return nil, false
	}
	dec, err := s.codec.Decode(enc)
	if err != nil {
		return nil, false
	}
	return dec, true
}

// Contains reports whether k is present.
func (s *Store) Contains(k []byte) bool {
	_, ok := s.Get(k)
	return ok
}

// Size returns the number of live keys.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	if s.snapshot != nil {
		n = len(s.snapshot.offsets)
	}
	for k := range s.overlay {
		if _, ok := s.snapshot.find([]byte(k)); !ok {
			n++
		}
	}
	for k := range s.deleted {
		if _, ok := s.snapshot.find([]byte(k)); ok {
			n--
		}
	}
	return n
}

// Entry is a decoded key/value pair yielded by RangeIter.
type Entry struct {
	Key   []byte
	Value []byte
}

// RangeIter calls fn for every live key in ascending byte order, merging the
// overlay with the on-disk snapshot. Iteration stops early if fn returns
// false.
func (s *Store) RangeIter(fn func(Entry) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overlayKeys := make([]string, 0, len(s.overlay))
	for k := range s.overlay {
		overlayKeys = append(overlayKeys, k)
	}
	sort.Strings(overlayKeys)

	oi := 0
	si := 0
	nSnap := 0
	if s.snapshot != nil {
		nSnap = len(s.snapshot.offsets)
	}
	for oi < len(overlayKeys) || si < nSnap {
		var snapKey, snapVal []byte
		haveSnap := si < nSnap
		if haveSnap {
			snapKey, snapVal = s.snapshot.entryAt(s.snapshot.offsets[si])
		}
		haveOverlay := oi < len(overlayKeys)

		switch {
		case haveOverlay && (!haveSnap || overlayKeys[oi] <= string(snapKey)):
			k := overlayKeys[oi]
			if haveSnap && overlayKeys[oi] == string(snapKey) {
				si++ // overlay shadows snapshot entry
			}
			oi++
			if _, gone := s.deleted[k]; gone {
				continue
			}
			if !fn(Entry{Key: []byte(k), Value: s.overlay[k]}) {
				return
			}
		default:
			si++
			if _, gone := s.deleted[string(snapKey)]; gone {
				continue
			}
			dec, err := s.codec.Decode(snapVal)
			if err != nil {
				continue
			}
			if !fn(Entry{Key: append([]byte(nil), snapKey...), Value: dec}) {
				return
			}
		}
	}
}

// Flush merges the overlay into a new on-disk snapshot and remaps it,
// clearing the overlay. This is the store's only durability boundary.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	type kv struct {
		key, val []byte
	}
	merged := make(map[string][]byte)
	if s.snapshot != nil {
		for i := range s.snapshot.offsets {
			k, v := s.snapshot.entryAt(s.snapshot.offsets[i])
			dec, err := s.codec.Decode(v)
			if err != nil {
				return fmt.Errorf("kvstore: flush: decode existing value: %w", err)
			}
			merged[string(k)] = dec
		}
	}
	for k := range s.deleted {
		delete(merged, k)
	}
	for k, v := range s.overlay {
		merged[k] = v
	}

	items := make([]kv, 0, len(merged))
	for k, v := range merged {
		items = append(items, kv{key: []byte(k), val: v})
	}
	sort.Slice(items, func(i, j int) bool { return bytes.Compare(items[i].key, items[j].key) < 0 })

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("kvstore: create temp file: %w", err)
	}
	w := bufio.NewWriter(f)

	hdr := make([]byte, 12)
	copy(hdr[0:8], magic[:])
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(items)))
	if _, err := w.Write(hdr); err != nil {
		f.Close()
		return err
	}

	offsets := make([]int64, len(items))
	cur := int64(len(hdr))
	var lenBuf [4]byte
	for i, it := range items {
		offsets[i] = cur
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(it.key)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			f.Close()
			return err
		}
		if _, err := w.Write(it.key); err != nil {
			f.Close()
			return err
		}
		enc := s.codec.Encode(it.val)
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(enc)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			f.Close()
			return err
		}
		if _, err := w.Write(enc); err != nil {
			f.Close()
			return err
		}
		cur += 4 + int64(len(it.key)) + 4 + int64(len(enc))
	}

	indexOff := cur
	idxBuf := make([]byte, 8)
	for _, off := range offsets {
		binary.LittleEndian.PutUint64(idxBuf, uint64(off))
		if _, err := w.Write(idxBuf); err != nil {
			f.Close()
			return err
		}
	}
	binary.LittleEndian.PutUint64(idxBuf, uint64(indexOff))
	if _, err := w.Write(idxBuf); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if s.snapshot != nil {
		if err := munmapFile(s.snapshot.data); err != nil {
			return fmt.Errorf("kvstore: unmap old snapshot: %w", err)
		}
		s.snapshot = nil
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("kvstore: rename temp file: %w", err)
	}

	snap, err := loadSnapshot(s.path)
	if err != nil {
		return err
	}
	s.snapshot = snap
	s.overlay = make(map[string][]byte)
	s.deleted = make(map[string]struct{})
	return nil
}

// Close flushes pending writes and releases the underlying mmap.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flushLocked(); err != nil {
		return err
	}
	if s.snapshot != nil {
		err := munmapFile(s.snapshot.data)
		s.snapshot = nil
		return err
	}
	return nil
}

// Key32 encodes a uint32 id as a fixed-width big-endian byte key so that
// byte-lexicographic order matches numeric order — required for id-keyed
// stores (id→bounds, id→profile) whose RangeIter must yield ascending id
// order per spec.md §4.3 ("iter() yields (bytes, id) pairs in id order").
func Key32(id uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], id)
	return b[:]
}

// ParseKey32 decodes a key produced by Key32.
func ParseKey32(k []byte) uint32 {
	return binary.BigEndian.Uint32(k)
}

var _ io.Closer = (*Store)(nil)
