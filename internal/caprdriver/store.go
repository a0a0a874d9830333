package caprdriver

import (
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"

	"aptapool-core/kvstore"
	"aptapool/internal/capr"
)

// ProfileStore persists per-id structural profiles under structuredata/, per
// spec.md §6's optional id_to_profile.store: one packed six-float array per
// base, snappy-compressed like the pool's id_to_seq store.
type ProfileStore struct {
	store *kvstore.Store
}

// OpenProfileStore opens or creates structuredata/id_to_profile.store under
// dir.
func OpenProfileStore(dir string) (*ProfileStore, error) {
	s, err := kvstore.Open(filepath.Join(dir, "id_to_profile.store"), kvstore.SnappyCodec{})
	if err != nil {
		return nil, fmt.Errorf("caprdriver: open id_to_profile: %w", err)
	}
	return &ProfileStore{store: s}, nil
}

// Sink adapts ProfileStore into the callback shape Driver.Run expects.
func (s *ProfileStore) Sink() func(Result) {
	return func(r Result) {
		s.store.Put(kvstore.Key32(r.ID), encodeProfile(r.Profile))
	}
}

// Get returns the decoded profile for id, if one was ever written.
func (s *ProfileStore) Get(id uint32) (*capr.Profile, bool) {
	v, ok := s.store.Get(kvstore.Key32(id))
	if !ok {
		return nil, false
	}
	return decodeProfile(v), true
}

func (s *ProfileStore) Flush() error { return s.store.Flush() }
func (s *ProfileStore) Close() error { return s.store.Close() }

func encodeProfile(p *capr.Profile) []byte {
	buf := make([]byte, 4+p.Length*6*8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(p.Length))
	off := 4
	for k := 0; k < p.Length; k++ {
		for c := 0; c < 6; c++ {
			binary.LittleEndian.PutUint64(buf[off:off+8], math.Float64bits(p.P[k][c]))
			off += 8
		}
	}
	return buf
}

func decodeProfile(buf []byte) *capr.Profile {
	if len(buf) < 4 {
		return &capr.Profile{}
	}
	length := int(binary.LittleEndian.Uint32(buf[0:4]))
	p := &capr.Profile{Length: length, P: make([][6]float64, length)}
	off := 4
	for k := 0; k < length; k++ {
		for c := 0; c < 6; c++ {
			p.P[k][c] = math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8]))
			off += 8
		}
	}
	return p
}
