// Package read defines the transient Read model produced by the FASTQ/FASTA
// readers and consumed by the AptaPlex pipeline, per spec.md §3.
package read

// Read is one sequencing read (or stitched read pair) in flight through the
// AptaPlex pipeline.
type Read struct {
	Forward     []byte
	ForwardQual []byte

	Reverse     []byte // nil for single-end reads
	ReverseQual []byte

	// CycleRound is set once the read is assigned to a selection cycle
	// (by per-file mode or by barcode match); -1 means unassigned.
	CycleRound int

	// Contaminated is set by downstream stages that detect e.g. vector or
	// adapter contamination; it never influences upstream stages.
	Contaminated bool
}

// IsPaired reports whether the read carries a reverse mate.
func (r Read) IsPaired() bool {
	return r.Reverse != nil
}
