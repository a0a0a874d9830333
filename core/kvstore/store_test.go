package kvstore

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T, codec Codec) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "store.db")
	s, err := Open(path, codec)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, path
}

func TestPutGetBeforeFlush(t *testing.T) {
	s, _ := newTestStore(t, IdentityCodec{})
	s.Put([]byte("alpha"), []byte("1"))
	s.Put([]byte("beta"), []byte("2"))

	v, ok := s.Get([]byte("alpha"))
	if !ok || string(v) != "1" {
		t.Fatalf("Get(alpha) = %q, %v", v, ok)
	}
	if s.Contains([]byte("gamma")) {
		t.Fatal("Contains(gamma) = true, want false")
	}
}

func TestFlushAndReopen(t *testing.T) {
	s, path := newTestStore(t, SnappyCodec{})
	entries := map[string]string{
		"AAAA": "one",
		"CCCC": "two",
		"GGGG": "three",
		"TTTT": "four",
	}
	for k, v := range entries {
		s.Put([]byte(k), []byte(v))
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path, SnappyCodec{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	for k, want := range entries {
		got, ok := s2.Get([]byte(k))
		if !ok || string(got) != want {
			t.Errorf("Get(%q) = %q, %v; want %q", k, got, ok, want)
		}
	}
	if s2.Size() != len(entries) {
		t.Errorf("Size() = %d, want %d", s2.Size(), len(entries))
	}
}

func TestRangeIterOrder(t *testing.T) {
	s, _ := newTestStore(t, IdentityCodec{})
	keys := []string{"delta", "alpha", "charlie", "bravo"}
	for _, k := range keys {
		s.Put([]byte(k), []byte(k))
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	s.Put([]byte("echo"), []byte("echo"))

	var got []string
	s.RangeIter(func(e Entry) bool {
		got = append(got, string(e.Key))
		return true
	})
	want := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	if len(got) != len(want) {
		t.Fatalf("RangeIter returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RangeIter[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOverwriteAcrossFlush(t *testing.T) {
	s, _ := newTestStore(t, IdentityCodec{})
	s.Put([]byte("k"), []byte("v1"))
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	s.Put([]byte("k"), []byte("v2"))
	v, ok := s.Get([]byte("k"))
	if !ok || string(v) != "v2" {
		t.Fatalf("Get(k) after overwrite = %q, %v", v, ok)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	v, ok = s.Get([]byte("k"))
	if !ok || string(v) != "v2" {
		t.Fatalf("Get(k) after second flush = %q, %v", v, ok)
	}
}

func TestKey32RoundTrip(t *testing.T) {
	for _, id := range []uint32{0, 1, 255, 65536, 4294967295} {
		k := Key32(id)
		if got := ParseKey32(k); got != id {
			t.Errorf("ParseKey32(Key32(%d)) = %d", id, got)
		}
	}
}

func TestKey32PreservesNumericOrder(t *testing.T) {
	ids := []uint32{0, 1, 2, 255, 256, 65535, 65536}
	for i := 0; i+1 < len(ids); i++ {
		a, b := Key32(ids[i]), Key32(ids[i+1])
		if !(string(a) < string(b)) {
			t.Errorf("Key32(%d) >= Key32(%d) in byte order", ids[i], ids[i+1])
		}
	}
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "nope.db"), IdentityCodec{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Size() != 0 {
		t.Fatalf("Size() = %d, want 0", s.Size())
	}
	if _, ok := s.Get([]byte("anything")); ok {
		t.Fatal("Get on empty store returned ok=true")
	}
}

func TestCorruptSnapshotRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.db")
	if err := os.WriteFile(path, []byte("not a kvstore snapshot at all"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Open(path, IdentityCodec{}); err == nil {
		t.Fatal("Open on corrupt file returned nil error")
	}
}
