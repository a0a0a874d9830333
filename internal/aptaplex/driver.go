package aptaplex

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"aptapool/internal/experiment"
	"aptapool/internal/match"
	"aptapool/internal/read"
	"aptapool/internal/stitch"
)

// FilePair names one input unit for the producer: a forward file and,
// for paired-end runs, its mate. IsPerFile mode stamps every read from
// this pair with Round directly, bypassing barcode demultiplexing.
type FilePair struct {
	Forward string
	Reverse string // empty for single-end
	Round   int    // default cycle; final in IsPerFile mode, else a barcode match overrides it
}

// Config controls one driver run.
type Config struct {
	Kind          Kind
	QueueCapacity int
	MaxThreads    int
	IsPerFile     bool

	MinOverlap      int
	MaxMismatchRate float64

	Match    match.Config
	Barcodes []match.CycleBarcode
}

// poisonPill is the sentinel spec.md §4.8 says each consumer re-enqueues
// before exiting, propagating termination without a data race on close.
type poisonPill struct{}

// toRead builds the pipeline's Read model from one (or one paired) Record,
// stamping the file's declared round as the default cycle assignment; a
// barcode match downstream may override it to a different cycle.
func toRead(fwd Record, rev *Record, round int) read.Read {
	r := read.Read{Forward: fwd.Seq, ForwardQual: fwd.Qual, CycleRound: round}
	if rev != nil {
		r.Reverse = rev.Seq
		r.ReverseQual = rev.Qual
	}
	return r
}

// Driver runs the 1-producer/N-consumer AptaPlex pipeline over a bounded
// queue of file pairs, registering surviving reads into exp's pool and
// selection cycles.
type Driver struct {
	cfg     Config
	log     *logrus.Logger
	readers ReaderFactory
}

// New constructs a Driver. log may be nil, in which case a discarding
// logger is used (logging never influences control flow, per spec.md §6).
func New(cfg Config, log *logrus.Logger) *Driver {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 256
	}
	if cfg.MaxThreads <= 0 {
		cfg.MaxThreads = runtime.NumCPU()
	}
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Driver{cfg: cfg, log: log}
}

// Run drives files through the pipeline, returning the aggregated
// rejection-reason histogram. The producer stops at the first input file
// that cannot be opened (invalid_input_file); an error while streaming a
// file ends that file but not the run. Reads already queued are still
// processed, and the first recorded error is returned with the histogram.
// Consumers report no errors: a failed cycle add is only logged.
func (d *Driver) Run(files []FilePair, exp *experiment.Experiment) (*Histogram, error) {
	n := d.cfg.MaxThreads
	if n < 1 {
		n = 1
	}
	consumers := n - 1
	if consumers < 1 {
		consumers = 1
	}

	queue := make(chan interface{}, d.cfg.QueueCapacity)
	hist := &Histogram{}

	var (
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(consumers)
	for i := 0; i < consumers; i++ {
		go func() {
			defer wg.Done()
			for job := range queue {
				if _, ok := job.(poisonPill); ok {
					queue <- job
					return
				}
				d.process(job.(read.Read), exp, hist)
			}
		}()
	}

	d.produce(files, queue, hist, setErr)
	queue <- poisonPill{}

	wg.Wait()
	return hist, firstErr
}

func (d *Driver) produce(files []FilePair, queue chan<- interface{}, hist *Histogram, setErr func(error)) {
	for _, fp := range files {
		fwdCh, fwdErrp, err := d.readers.Open(d.cfg.Kind, fp.Forward)
		if err != nil {
			setErr(fmt.Errorf("aptaplex: open %s: %w", fp.Forward, err))
			return
		}

		var revCh <-chan Record
		var revErrp *error
		if fp.Reverse != "" {
			revCh, revErrp, err = d.readers.Open(d.cfg.Kind, fp.Reverse)
			if err != nil {
				setErr(fmt.Errorf("aptaplex: open %s: %w", fp.Reverse, err))
				return
			}
		}

		for {
			fwd, ok := <-fwdCh
			if !ok {
				break
			}
			var rev *Record
			if revCh != nil {
				r, ok := <-revCh
				if !ok {
					hist.incRecordMalformed()
					break
				}
				rev = &r
			}
			hist.incTotalReads()
			queue <- toRead(fwd, rev, fp.Round)
		}

		if fwdErrp != nil && *fwdErrp != nil {
			setErr(fmt.Errorf("aptaplex: reading %s: %w", fp.Forward, *fwdErrp))
		}
		if revErrp != nil && *revErrp != nil {
			setErr(fmt.Errorf("aptaplex: reading %s: %w", fp.Reverse, *revErrp))
		}
	}
}

func (d *Driver) process(r read.Read, exp *experiment.Experiment, hist *Histogram) {
	seq := r.Forward
	qual := r.ForwardQual

	if r.IsPaired() {
		res, err := stitch.Stitch(r.Forward, r.ForwardQual, r.Reverse, r.ReverseQual, d.cfg.MinOverlap, d.cfg.MaxMismatchRate)
		if err != nil {
			hist.incNoOverlap()
			return
		}
		seq, qual = res.Sequence, res.Quality
	}

	round := r.CycleRound
	var primer5Trim, primer3Trim int
	if !d.cfg.IsPerFile {
		res, reason := match.Match(seq, qual, d.cfg.Match, d.cfg.Barcodes)
		switch reason {
		case match.RejectPrimerUnmatched:
			hist.incPrimerUnmatched()
			return
		case match.RejectRandomizedLength:
			hist.incRandomizedLength()
			return
		case match.RejectBarcodeUnmatched:
			hist.incBarcodeUnmatched()
			return
		case match.RejectBarcodeCollision:
			hist.incBarcodeCollision()
			return
		case match.RejectQualityTooLow:
			hist.incQualityTooLow()
			return
		}
		primer5Trim = res.Start
		primer3Trim = len(seq) - res.End
		if res.CycleRound >= 0 {
			round = res.CycleRound
		}
	}

	c, ok := exp.CycleAtRound(round)
	if !ok {
		hist.incCycleUnresolved()
		return
	}
	if _, err := c.Add(seq, primer5Trim, primer3Trim); err != nil {
		d.log.WithError(err).Error("aptaplex: cycle add failed")
		return
	}
	hist.incRegistered()
}
