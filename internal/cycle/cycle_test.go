package cycle

import (
	"os"
	"path/filepath"
	"testing"

	"aptapool/internal/pool"
)

func newTestCycle(t *testing.T) (*Cycle, *pool.Pool) {
	t.Helper()
	p, err := pool.Open(t.TempDir(), 1000, 0.01)
	if err != nil {
		t.Fatalf("pool.Open: %v", err)
	}
	c, err := Open(filepath.Join(t.TempDir(), "0_R1.store"), 1, "R1", "", "", false, false, p, 1000, 0.01)
	if err != nil {
		t.Fatalf("cycle.Open: %v", err)
	}
	return c, p
}

// TestCycleCounts mirrors spec.md §8 scenario S2.
func TestCycleCounts(t *testing.T) {
	c, p := newTestCycle(t)
	defer p.Close()
	defer c.Close()

	for _, seq := range []string{"AAA", "AAA", "CCC"} {
		if _, err := c.Add([]byte(seq), 0, 0); err != nil {
			t.Fatalf("Add(%q): %v", seq, err)
		}
	}
	if c.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", c.Size())
	}
	if c.UniqueSize() != 2 {
		t.Fatalf("UniqueSize() = %d, want 2", c.UniqueSize())
	}
	if got := c.CountOf([]byte("AAA")); got != 2 {
		t.Fatalf("CountOf(AAA) = %d, want 2", got)
	}
	if got := c.CountOf([]byte("CCC")); got != 1 {
		t.Fatalf("CountOf(CCC) = %d, want 1", got)
	}
	if got := c.CountOf([]byte("GGG")); got != 0 {
		t.Fatalf("CountOf(GGG) = %d, want 0", got)
	}
}

func TestCycleContains(t *testing.T) {
	c, p := newTestCycle(t)
	defer p.Close()
	defer c.Close()

	if _, err := c.Add([]byte("TTTT"), 0, 0); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !c.Contains([]byte("TTTT")) {
		t.Fatal("Contains(TTTT) = false, want true")
	}
	if c.Contains([]byte("GGGG")) {
		t.Fatal("Contains(GGGG) = true, want false")
	}
}

func TestCycleReopenRebuildsTotals(t *testing.T) {
	p, err := pool.Open(t.TempDir(), 1000, 0.01)
	if err != nil {
		t.Fatalf("pool.Open: %v", err)
	}
	defer p.Close()

	path := filepath.Join(t.TempDir(), "0_R1.store")
	c, err := Open(path, 0, "R1", "", "", false, false, p, 1000, 0.01)
	if err != nil {
		t.Fatalf("cycle.Open: %v", err)
	}
	for _, seq := range []string{"AAA", "AAA", "CCC", "GGG"} {
		if _, err := c.Add([]byte(seq), 0, 0); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := Open(path, 0, "R1", "", "", false, false, p, 1000, 0.01)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()
	if c2.Size() != 4 {
		t.Fatalf("Size() after reopen = %d, want 4", c2.Size())
	}
	if c2.UniqueSize() != 3 {
		t.Fatalf("UniqueSize() after reopen = %d, want 3", c2.UniqueSize())
	}
	if got := c2.CountOf([]byte("AAA")); got != 2 {
		t.Fatalf("CountOf(AAA) after reopen = %d, want 2", got)
	}
}

func TestCloseWritesBloomSidecar(t *testing.T) {
	p, err := pool.Open(t.TempDir(), 1000, 0.01)
	if err != nil {
		t.Fatalf("pool.Open: %v", err)
	}
	defer p.Close()

	path := filepath.Join(t.TempDir(), "0_R1.store")
	c, err := Open(path, 0, "R1", "", "", false, false, p, 1000, 0.01)
	if err != nil {
		t.Fatalf("cycle.Open: %v", err)
	}
	if _, err := c.Add([]byte("AAA"), 0, 0); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	sidecar := filepath.Join(filepath.Dir(path), "0_R1.bloom")
	if _, err := os.Stat(sidecar); err != nil {
		t.Fatalf("expected %s sidecar next to the store file: %v", sidecar, err)
	}
}
