// Package export formats registered pool entries for external consumption.
// It implements the (id, sequence_bytes) plus optional bounds contract from
// spec.md §6, following the NCBI line-wrapped FASTA convention.
package export

import (
	"bytes"
	"fmt"

	"aptapool/internal/pool"
)

// FastaFormatter renders (id, sequence) pairs as line-wrapped FASTA
// records, grounded on the original FastaExportFormat: a description line
// naming the source (cycle or pool name), followed by the sequence
// wrapped at LineWidth characters.
type FastaFormatter struct {
	// Name identifies the source of the exported data (a cycle name, pool
	// name, etc) and is embedded in every record's description line.
	Name string

	// IncludePrimers controls whether the exported sequence spans the
	// full registered bytes or is trimmed to the randomized region using
	// bounds from the pool.
	IncludePrimers bool

	// LineWidth is the maximum sequence characters per output line; 0
	// selects the NCBI-recommended default of 80.
	LineWidth int
}

// Format renders one record. If f.IncludePrimers is false, bounds must be
// the pool's registered bounds for id; the sequence is passed in full
// regardless, since only the formatter decides how much of it to emit.
func (f FastaFormatter) Format(id uint32, sequence []byte, bounds pool.Bounds) string {
	width := f.LineWidth
	if width <= 0 {
		width = 80
	}

	start, end := 0, len(sequence)
	if !f.IncludePrimers {
		start, end = int(bounds.Start), int(bounds.End)
	}
	body := sequence[start:end]

	var buf bytes.Buffer
	for i := 0; i < len(body); i += width {
		j := i + width
		if j > len(body) {
			j = len(body)
		}
		buf.Write(body[i:j])
		buf.WriteByte('\n')
	}

	return fmt.Sprintf(">AptaPool_%d|%s|length=%d\n%s", id, f.Name, len(body), buf.String())
}
