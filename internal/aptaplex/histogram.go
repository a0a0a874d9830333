package aptaplex

import "sync/atomic"

// Histogram is the per-read rejection-reason tally the driver returns,
// per spec.md §7 and §9's "tagged result" redesign note: counters are
// updated atomically rather than via exceptions.
type Histogram struct {
	NoOverlap        uint64
	PrimerUnmatched  uint64
	RandomizedLength uint64
	BarcodeUnmatched uint64
	BarcodeCollision uint64
	QualityTooLow    uint64
	CycleUnresolved  uint64
	RecordMalformed  uint64

	Registered uint64
	TotalReads uint64
}

func (h *Histogram) incNoOverlap()        { atomic.AddUint64(&h.NoOverlap, 1) }
func (h *Histogram) incPrimerUnmatched()  { atomic.AddUint64(&h.PrimerUnmatched, 1) }
func (h *Histogram) incRandomizedLength() { atomic.AddUint64(&h.RandomizedLength, 1) }
func (h *Histogram) incBarcodeUnmatched() { atomic.AddUint64(&h.BarcodeUnmatched, 1) }
func (h *Histogram) incBarcodeCollision() { atomic.AddUint64(&h.BarcodeCollision, 1) }
func (h *Histogram) incQualityTooLow()    { atomic.AddUint64(&h.QualityTooLow, 1) }
func (h *Histogram) incCycleUnresolved()  { atomic.AddUint64(&h.CycleUnresolved, 1) }
func (h *Histogram) incRecordMalformed()  { atomic.AddUint64(&h.RecordMalformed, 1) }
func (h *Histogram) incRegistered()       { atomic.AddUint64(&h.Registered, 1) }
func (h *Histogram) incTotalReads()       { atomic.AddUint64(&h.TotalReads, 1) }

// Snapshot returns a point-in-time copy safe to read after the driver's
// Run has returned.
func (h *Histogram) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"no_overlap":        atomic.LoadUint64(&h.NoOverlap),
		"primer_unmatched":  atomic.LoadUint64(&h.PrimerUnmatched),
		"randomized_length": atomic.LoadUint64(&h.RandomizedLength),
		"barcode_unmatched": atomic.LoadUint64(&h.BarcodeUnmatched),
		"barcode_collision": atomic.LoadUint64(&h.BarcodeCollision),
		"quality_too_low":   atomic.LoadUint64(&h.QualityTooLow),
		"cycle_unresolved":  atomic.LoadUint64(&h.CycleUnresolved),
		"record_malformed":  atomic.LoadUint64(&h.RecordMalformed),
		"registered":        atomic.LoadUint64(&h.Registered),
		"total_reads":       atomic.LoadUint64(&h.TotalReads),
	}
}
