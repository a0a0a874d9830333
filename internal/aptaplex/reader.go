// Package aptaplex implements the AptaPlex driver from spec.md §4.8: a
// single producer plus N-1 consumers over a bounded queue, terminated by a
// poison-pill sentinel rather than a closed channel, matching the original
// AptaplexProducer's queue-termination contract.
package aptaplex

import (
	"fmt"

	"aptapool-core/fasta"
	"aptapool-core/fastq"
)

// Record is the reader-agnostic shape both FASTA and FASTQ streams are
// normalized into before entering the pipeline.
type Record struct {
	ID   string
	Seq  []byte
	Qual []byte // synthesized as max-quality for FASTA, which carries none
}

// Kind selects a concrete reader implementation. The original chose its
// reader class by reflection on a configuration string; here that becomes
// a small factory keyed on the same kind of string (spec.md §9).
type Kind string

const (
	KindFASTA Kind = "fasta"
	KindFASTQ Kind = "fastq"
)

// ReaderFactory opens a Record stream for a configured input kind. It is
// exported so the CapR driver's own file walking can reuse the same seam.
type ReaderFactory struct{}

// Open streams path as kind, normalizing into Record.
func (ReaderFactory) Open(kind Kind, path string) (<-chan Record, *error, error) {
	switch kind {
	case KindFASTA:
		recs, errp, err := fasta.Stream(path)
		if err != nil {
			return nil, nil, err
		}
		out := make(chan Record, 4)
		go func() {
			defer close(out)
			for r := range recs {
				qual := make([]byte, len(r.Seq))
				for i := range qual {
					qual[i] = 'I' // synthesize max-quality; FASTA carries none
				}
				out <- Record{ID: r.ID, Seq: r.Seq, Qual: qual}
			}
		}()
		return out, errp, nil
	case KindFASTQ:
		recs, errp, err := fastq.Stream(path)
		if err != nil {
			return nil, nil, err
		}
		out := make(chan Record, 4)
		go func() {
			defer close(out)
			for r := range recs {
				out <- Record{ID: r.ID, Seq: r.Seq, Qual: r.Qual}
			}
		}()
		return out, errp, nil
	default:
		return nil, nil, fmt.Errorf("aptaplex: unknown reader kind %q", kind)
	}
}
