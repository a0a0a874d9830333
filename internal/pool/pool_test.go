package pool

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegisterIdempotent(t *testing.T) {
	p, err := Open(t.TempDir(), 1000, 0.01)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	id1, err := p.Register([]byte("ACGT"), 0, 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	id2, err := p.Register([]byte("ACGT"), 0, 0)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("Register not idempotent: %d != %d", id1, id2)
	}
}

// TestTinyPoolScenario mirrors spec.md §8 scenario S1.
func TestTinyPoolScenario(t *testing.T) {
	p, err := Open(t.TempDir(), 1000, 0.01)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	var ids []uint32
	for _, seq := range []string{"ACGT", "ACGT", "TGCA"} {
		id, err := p.Register([]byte(seq), 0, 0)
		if err != nil {
			t.Fatalf("Register(%q): %v", seq, err)
		}
		ids = append(ids, id)
	}
	if ids[0] != 0 || ids[1] != 0 || ids[2] != 1 {
		t.Fatalf("ids = %v, want [0 0 1]", ids)
	}
	if p.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", p.Size())
	}
	b, ok := p.BoundsOf(0)
	if !ok || b.Start != 0 || b.End != 4 {
		t.Fatalf("BoundsOf(0) = %+v, %v", b, ok)
	}
}

func TestBoundsFromPrimerTrim(t *testing.T) {
	p, err := Open(t.TempDir(), 100, 0.01)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	id, err := p.Register([]byte("AAACGTCGTTT"), 3, 3)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	b, ok := p.BoundsOf(id)
	if !ok || b.Start != 3 || b.End != 8 {
		t.Fatalf("BoundsOf = %+v, %v, want {3 8}", b, ok)
	}
}

func TestIdentifierOfAbsent(t *testing.T) {
	p, err := Open(t.TempDir(), 100, 0.01)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	if _, ok := p.IdentifierOf([]byte("NEVERSEEN")); ok {
		t.Fatal("IdentifierOf returned ok=true for unregistered sequence")
	}
}

func TestIterAscendingIDOrder(t *testing.T) {
	p, err := Open(t.TempDir(), 100, 0.01)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	for _, seq := range []string{"AAAA", "CCCC", "GGGG"} {
		if _, err := p.Register([]byte(seq), 0, 0); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	var ids []uint32
	p.Iter(func(e Entry) bool {
		ids = append(ids, e.ID)
		return true
	})
	for i := range ids {
		if ids[i] != uint32(i) {
			t.Fatalf("Iter order = %v, want ascending from 0", ids)
		}
	}
}

func TestReopenPreservesSizeAndIDs(t *testing.T) {
	dir := t.TempDir()
	p, err := Open(dir, 100, 0.01)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	knownID, err := p.Register([]byte("PERSISTENT"), 1, 1)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	p2, err := Open(dir, 100, 0.01)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer p2.Close()

	if p2.Size() != 1 {
		t.Fatalf("Size() after reopen = %d, want 1", p2.Size())
	}
	id, ok := p2.IdentifierOf([]byte("PERSISTENT"))
	if !ok || id != knownID {
		t.Fatalf("IdentifierOf after reopen = %d, %v, want %d, true", id, ok, knownID)
	}
}

func TestOpenUsesExpectedFileNames(t *testing.T) {
	dir := t.TempDir()
	p, err := Open(dir, 100, 0.01)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := p.Register([]byte("X"), 0, 0); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, name := range []string{"seq_to_id.store", "id_to_bounds.store", "id_to_seq.store", "pool_bloom.bin"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
}
