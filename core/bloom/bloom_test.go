package bloom

import (
	"bytes"
	"testing"
)

func TestAddMaybeContains(t *testing.T) {
	tests := []struct {
		name string
		keys []string
	}{
		{name: "single key", keys: []string{"ACGTACGT"}},
		{name: "many keys", keys: []string{"AAA", "CCC", "GGG", "TTT", "ACGTACGTACGT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(1000, 0.01)
			for _, k := range tt.keys {
				f.Add([]byte(k))
			}
			for _, k := range tt.keys {
				if !f.MaybeContains([]byte(k)) {
					t.Errorf("MaybeContains(%q) = false, want true (no false negatives allowed)", k)
				}
			}
		})
	}
}

func TestMaybeContainsAbsent(t *testing.T) {
	f := New(1000, 0.001)
	f.Add([]byte("AAAA"))
	if f.MaybeContains([]byte("completely-unrelated-key-xyz")) {
		t.Log("false positive observed (acceptable at low probability)")
	}
}

func TestUint32Helpers(t *testing.T) {
	f := New(100, 0.01)
	f.AddUint32(42)
	if !f.MaybeContainsUint32(42) {
		t.Fatal("MaybeContainsUint32(42) = false after AddUint32(42)")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	f := New(500, 0.01)
	for i := uint32(0); i < 50; i++ {
		f.AddUint32(i)
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	f2, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	for i := uint32(0); i < 50; i++ {
		if !f2.MaybeContainsUint32(i) {
			t.Errorf("round-tripped filter missing id %d", i)
		}
	}
}

func TestReadFromCorruptHeader(t *testing.T) {
	_, err := ReadFrom(bytes.NewReader([]byte("not a bloom filter file!!!!")))
	if err == nil {
		t.Fatal("expected error for corrupt header")
	}
}
