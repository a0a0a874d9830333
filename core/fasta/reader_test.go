package fasta

import (
	"compress/gzip"
	"os"
	"testing"
)

const plain = `>seq1
ACGT
>seq2
NNnn
`

func writeTemp(t *testing.T, name, data string) string {
	t.Helper()
	fh, err := os.CreateTemp(t.TempDir(), name)
	if err != nil {
		t.Fatalf("tmp: %v", err)
	}
	if _, err := fh.WriteString(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	fh.Close()
	return fh.Name()
}

func writeGz(t *testing.T, name, data string) string {
	t.Helper()
	fh, err := os.CreateTemp(t.TempDir(), name)
	if err != nil {
		t.Fatalf("tmp: %v", err)
	}
	gw := gzip.NewWriter(fh)
	if _, err := gw.Write([]byte(data)); err != nil {
		t.Fatalf("write gz: %v", err)
	}
	gw.Close()
	fh.Close()
	return fh.Name()
}

func TestStreamPlain(t *testing.T) {
	path := writeTemp(t, "plain*.fa", plain)
	ch, errp, err := Stream(path)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	var recs []Record
	for r := range ch {
		recs = append(recs, r)
	}
	if *errp != nil {
		t.Fatalf("streaming error: %v", *errp)
	}
	if len(recs) != 2 || recs[0].ID != "seq1" || recs[1].ID != "seq2" {
		t.Fatalf("got %+v", recs)
	}
	if string(recs[1].Seq) != "NNNN" {
		t.Errorf("expected upper-cased NNNN, got %q", recs[1].Seq)
	}
}

// TestStreamGzipNoSuffix writes gzip-compressed data to a path that does
// not end in .gz, proving detection happens by magic bytes rather than
// filename.
func TestStreamGzipNoSuffix(t *testing.T) {
	gzPath := writeGz(t, "nogzsuffix*.fa", plain)

	ch, errp, err := Stream(gzPath)
	if err != nil {
		t.Fatalf("stream gz: %v", err)
	}
	var ids []string
	for r := range ch {
		ids = append(ids, r.ID)
	}
	if *errp != nil {
		t.Fatalf("streaming error: %v", *errp)
	}
	if len(ids) != 2 || ids[0] != "seq1" || ids[1] != "seq2" {
		t.Fatalf("gzip parse failed, ids=%v", ids)
	}
}

func TestStreamPlainNamedGz(t *testing.T) {
	// a plain-text file named *.gz must still be read as plain text.
	path := writeTemp(t, "plain*.gz", plain)
	ch, errp, err := Stream(path)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	count := 0
	for range ch {
		count++
	}
	if *errp != nil {
		t.Fatalf("streaming error: %v", *errp)
	}
	if count != 2 {
		t.Fatalf("expected 2 records, got %d", count)
	}
}
