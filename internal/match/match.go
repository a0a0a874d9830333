// Package match implements the primer/barcode demultiplexer from spec.md
// §4.7: anchor configured 5'/3' primers in a stitched read, trim them, then
// (if cycles carry barcodes) identify the owning cycle from the flanking
// barcode sequences.
package match

import (
	"aptapool-core/primer"
)

// RejectReason is the typed per-read rejection tag from spec.md §7/§9; the
// driver aggregates these into a histogram rather than raising exceptions.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectPrimerUnmatched
	RejectRandomizedLength
	RejectBarcodeUnmatched
	RejectBarcodeCollision
	RejectQualityTooLow
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectPrimerUnmatched:
		return "primer_unmatched"
	case RejectRandomizedLength:
		return "randomized_length"
	case RejectBarcodeUnmatched:
		return "barcode_unmatched"
	case RejectBarcodeCollision:
		return "barcode_collision"
	case RejectQualityTooLow:
		return "quality_too_low"
	default:
		return "unknown"
	}
}

// Config bundles the thresholds spec.md §6 says a configuration source
// provides for this component.
type Config struct {
	Primer5          []byte
	Primer3          []byte
	Tolerance        int
	MaxLeading       int
	MaxTrailing      int
	MinRandomized    int
	MaxRandomized    int
	MinMeanQuality   float64
	BarcodeTolerance int
}

// CycleBarcode is one cycle's optional 5'/3' barcode pair, keyed by its
// round number so a successful demultiplex can report which cycle owns the
// read.
type CycleBarcode struct {
	Round    int
	Barcode5 []byte
	Barcode3 []byte
}

// Result is a successful primer/barcode match.
type Result struct {
	Start, End int // randomized-region bounds, per spec.md §3
	CycleRound int // -1 if no barcode scheme is configured
}

// Match runs the full §4.7 procedure against one stitched read.
func Match(seq, qual []byte, cfg Config, barcodes []CycleBarcode) (Result, RejectReason) {
	leadWindow := seq
	if cfg.MaxLeading > 0 && cfg.MaxLeading < len(seq) {
		leadWindow = seq[:cfg.MaxLeading]
	}
	p5Hits := primer.FindMatches(leadWindow, cfg.Primer5, cfg.Tolerance, 0, 0)
	p5, ok := primer.Best(p5Hits)
	if !ok {
		return Result{}, RejectPrimerUnmatched
	}

	trailStart := 0
	if cfg.MaxTrailing > 0 && cfg.MaxTrailing < len(seq) {
		trailStart = len(seq) - cfg.MaxTrailing
	}
	trailWindow := seq[trailStart:]
	p3Hits := primer.FindMatches(trailWindow, cfg.Primer3, cfg.Tolerance, 0, 0)
	p3, ok := primer.Best(p3Hits)
	if !ok {
		return Result{}, RejectPrimerUnmatched
	}

	start := p5.Pos + p5.Length
	end := trailStart + p3.Pos

	if end < start || end-start < cfg.MinRandomized || end-start > cfg.MaxRandomized {
		return Result{}, RejectRandomizedLength
	}

	if cfg.MinMeanQuality > 0 && len(qual) >= end {
		if meanPhred(qual[start:end]) < cfg.MinMeanQuality {
			return Result{}, RejectQualityTooLow
		}
	}

	round := -1
	if len(barcodes) > 0 {
		flank5 := seq[:p5.Pos]
		flank3 := seq[trailStart+p3.Pos+p3.Length:]

		matched := -1
		for _, bc := range barcodes {
			if barcodeMatches(flank5, bc.Barcode5, cfg.BarcodeTolerance) &&
				barcodeMatches(flank3, bc.Barcode3, cfg.BarcodeTolerance) {
				if matched != -1 {
					return Result{}, RejectBarcodeCollision
				}
				matched = bc.Round
			}
		}
		if matched == -1 {
			return Result{}, RejectBarcodeUnmatched
		}
		round = matched
	}

	return Result{Start: start, End: end, CycleRound: round}, RejectNone
}

func barcodeMatches(flank, barcode []byte, tolerance int) bool {
	if len(barcode) == 0 {
		return true
	}
	hits := primer.FindMatches(flank, barcode, tolerance, 1, 0)
	return len(hits) > 0
}

func meanPhred(qual []byte) float64 {
	if len(qual) == 0 {
		return 0
	}
	var sum int
	for _, q := range qual {
		sum += int(q) - 33 // Phred+33 encoding
	}
	return float64(sum) / float64(len(qual))
}
