// Package stitch implements the paired-end overlap stitcher from spec.md
// §4.6: align the 3' end of the forward read against the 5' end of the
// reverse complement of the reverse read, picking the overlap with fewest
// mismatches (ties broken by the longer overlap).
package stitch

import "aptapool-core/primer"

// Result is a successfully stitched read.
type Result struct {
	Sequence   []byte
	Quality    []byte
	OverlapLen int
	Mismatches int
}

// ErrNoOverlap is returned when no overlap satisfies min_overlap and
// max_mismatch_rate; callers should reject the read with reason
// "no_overlap" per spec.md §7.
var ErrNoOverlap = errNoOverlap{}

type errNoOverlap struct{}

func (errNoOverlap) Error() string { return "stitch: no overlap satisfies constraints" }

// Stitch aligns F/Qf against the reverse complement of R/Qr.
func Stitch(f, qf, r, qr []byte, minOverlap int, maxMismatchRate float64) (Result, error) {
	if len(f) == 0 || len(r) == 0 {
		return Result{}, ErrNoOverlap
	}
	rc := primer.RevComp(r)
	rcQual := reverseBytes(qr)

	maxLen := len(f)
	if len(rc) < maxLen {
		maxLen = len(rc)
	}
	if maxLen < minOverlap {
		return Result{}, ErrNoOverlap
	}

	bestLen := -1
	bestMM := -1
	for l := minOverlap; l <= maxLen; l++ {
		fSuf := f[len(f)-l:]
		rPre := rc[:l]
		mm := countMismatches(fSuf, rPre)
		if float64(mm)/float64(l) > maxMismatchRate {
			continue
		}
		if bestLen == -1 || mm < bestMM || (mm == bestMM && l > bestLen) {
			bestLen, bestMM = l, mm
		}
	}
	if bestLen == -1 {
		return Result{}, ErrNoOverlap
	}

	prefix := f[:len(f)-bestLen]
	prefixQual := qf[:len(qf)-bestLen]
	fOverlap := f[len(f)-bestLen:]
	fOverlapQual := qf[len(qf)-bestLen:]
	rOverlap := rc[:bestLen]
	rOverlapQual := rcQual[:bestLen]
	suffix := rc[bestLen:]
	suffixQual := rcQual[bestLen:]

	consensus := make([]byte, bestLen)
	consensusQual := make([]byte, bestLen)
	for i := 0; i < bestLen; i++ {
		if fOverlapQual[i] >= rOverlapQual[i] {
			consensus[i] = fOverlap[i]
			consensusQual[i] = fOverlapQual[i]
		} else {
			consensus[i] = rOverlap[i]
			consensusQual[i] = rOverlapQual[i]
		}
	}

	seq := append(append(append([]byte{}, prefix...), consensus...), suffix...)
	qual := append(append(append([]byte{}, prefixQual...), consensusQual...), suffixQual...)

	return Result{Sequence: seq, Quality: qual, OverlapLen: bestLen, Mismatches: bestMM}, nil
}

func countMismatches(a, b []byte) int {
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}
