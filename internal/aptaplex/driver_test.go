package aptaplex

import (
	"os"
	"path/filepath"
	"testing"

	"aptapool/internal/experiment"
	"aptapool/internal/match"
)

func writeFastq(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDriverSingleEndPerFileMode(t *testing.T) {
	dir := t.TempDir()
	reads := "@r1\nAAACGTCGTTT\n+\nIIIIIIIIIII\n@r2\nAAAGGGGGTTT\n+\nIIIIIIIIIII\n"
	path := writeFastq(t, dir, "reads.fastq", reads)

	exp, err := experiment.Open(filepath.Join(dir, "exp"), 1000, 0.01)
	if err != nil {
		t.Fatalf("experiment.Open: %v", err)
	}
	defer exp.Close()
	if _, err := exp.OpenCycle(0, "library", "", "", false, false); err != nil {
		t.Fatalf("OpenCycle: %v", err)
	}

	cfg := Config{
		Kind:          KindFASTQ,
		QueueCapacity: 8,
		MaxThreads:    2,
		IsPerFile:     true,
	}
	d := New(cfg, nil)
	hist, err := d.Run([]FilePair{{Forward: path, Round: 0}}, exp)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap := hist.Snapshot()
	if snap["registered"] != 2 {
		t.Fatalf("registered = %d, want 2", snap["registered"])
	}
	if c, ok := exp.CycleAtRound(0); !ok || c.Size() != 2 {
		t.Fatalf("cycle size after run: ok=%v", ok)
	}
}

func TestDriverPrimerMatchMode(t *testing.T) {
	dir := t.TempDir()
	reads := "@r1\nAAACGTCGTTT\n+\nIIIIIIIIIII\n@r2\nGGGGGGGGGGG\n+\nIIIIIIIIIII\n"
	path := writeFastq(t, dir, "reads.fastq", reads)

	exp, err := experiment.Open(filepath.Join(dir, "exp"), 1000, 0.01)
	if err != nil {
		t.Fatalf("experiment.Open: %v", err)
	}
	defer exp.Close()
	if _, err := exp.OpenCycle(0, "library", "", "", false, false); err != nil {
		t.Fatalf("OpenCycle: %v", err)
	}

	cfg := Config{
		Kind:          KindFASTQ,
		QueueCapacity: 8,
		MaxThreads:    2,
		IsPerFile:     false,
		Match: match.Config{
			Primer5:       []byte("AAA"),
			Primer3:       []byte("TTT"),
			MinRandomized: 1,
			MaxRandomized: 100,
		},
	}
	d := New(cfg, nil)
	hist, err := d.Run([]FilePair{{Forward: path, Round: 0}}, exp)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap := hist.Snapshot()
	if snap["registered"] != 1 {
		t.Fatalf("registered = %d, want 1 (one read lacks primers)", snap["registered"])
	}
	if snap["primer_unmatched"] != 1 {
		t.Fatalf("primer_unmatched = %d, want 1", snap["primer_unmatched"])
	}
}
