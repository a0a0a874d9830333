package caprdriver

import (
	"path/filepath"
	"sync"
	"testing"

	"aptapool/internal/capr"
	"aptapool/internal/pool"
)

func TestDriverComputesAllProfiles(t *testing.T) {
	dir := t.TempDir()
	p, err := pool.Open(filepath.Join(dir, "pool"), 1000, 0.01)
	if err != nil {
		t.Fatalf("pool.Open: %v", err)
	}
	defer p.Close()

	seqs := []string{"GGGAAAUCCC", "ACGTACGTAC", "TTTTTTTTTT"}
	for _, s := range seqs {
		if _, err := p.Register([]byte(s), 0, 0); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	d := New(Config{QueueCapacity: 4, MaxThreads: 3})

	var mu sync.Mutex
	got := map[uint32]*capr.Profile{}
	err = d.Run(p, func(r Result) {
		mu.Lock()
		got[r.ID] = r.Profile
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(got) != len(seqs) {
		t.Fatalf("got %d profiles, want %d", len(got), len(seqs))
	}
	for id, prof := range got {
		if prof.Length == 0 {
			t.Fatalf("id %d: empty profile", id)
		}
	}
	if d.Progress != uint64(len(seqs)) {
		t.Fatalf("Progress = %d, want %d", d.Progress, len(seqs))
	}
}

func TestProfileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ps, err := OpenProfileStore(dir)
	if err != nil {
		t.Fatalf("OpenProfileStore: %v", err)
	}
	defer ps.Close()

	engine := capr.New(capr.DefaultConfig())
	prof, err := engine.Predict([]byte("GGGAAAUCCC"))
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	sink := ps.Sink()
	sink(Result{ID: 7, Profile: prof})
	if err := ps.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	got, ok := ps.Get(7)
	if !ok {
		t.Fatal("Get: not found")
	}
	if got.Length != prof.Length {
		t.Fatalf("Length = %d, want %d", got.Length, prof.Length)
	}
	for k := 0; k < prof.Length; k++ {
		for c := 0; c < 6; c++ {
			if got.P[k][c] != prof.P[k][c] {
				t.Fatalf("position %d context %d: %v != %v", k, c, got.P[k][c], prof.P[k][c])
			}
		}
	}
}
