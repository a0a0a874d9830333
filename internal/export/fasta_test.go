package export

import (
	"strings"
	"testing"

	"aptapool/internal/pool"
)

func TestFormatTrimsToBoundsByDefault(t *testing.T) {
	f := FastaFormatter{Name: "library"}
	got := f.Format(3, []byte("AAACGTCGTTT"), pool.Bounds{Start: 3, End: 8})
	want := ">AptaPool_3|library|length=5\nCGTCG\n"
	if got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}

func TestFormatIncludesPrimersWhenConfigured(t *testing.T) {
	f := FastaFormatter{Name: "library", IncludePrimers: true}
	got := f.Format(3, []byte("AAACGTCGTTT"), pool.Bounds{Start: 3, End: 8})
	if !strings.Contains(got, "length=11\nAAACGTCGTTT\n") {
		t.Fatalf("Format = %q, want full sequence", got)
	}
}

func TestFormatWrapsLongSequences(t *testing.T) {
	f := FastaFormatter{Name: "p", IncludePrimers: true, LineWidth: 4}
	got := f.Format(1, []byte("AAAACCCCGGGG"), pool.Bounds{})
	want := ">AptaPool_1|p|length=12\nAAAA\nCCCC\nGGGG\n"
	if got != want {
		t.Fatalf("Format = %q, want %q", got, want)
	}
}
