// Package progress wraps cheggaaa/pb into the small sink both drivers
// report through, so a CLI front end can attach a terminal progress bar
// without either driver depending on pb directly.
package progress

import "github.com/cheggaaa/pb/v3"

// Sink receives incremental progress counts; N is the amount to add, not a
// running total.
type Sink interface {
	Add(n int)
	Finish()
}

// noop discards progress updates; used when a CLI runs non-interactively
// or with progress disabled.
type noop struct{}

func (noop) Add(int) {}
func (noop) Finish() {}

// None is the no-op Sink.
var None Sink = noop{}

// bar adapts a pb.ProgressBar to Sink.
type bar struct {
	b *pb.ProgressBar
}

// NewBar starts a full terminal progress bar over total units of work.
func NewBar(total int64) Sink {
	b := pb.Full.Start64(total)
	b.Set(pb.Bytes, false)
	return &bar{b: b}
}

func (p *bar) Add(n int) { p.b.Add(n) }
func (p *bar) Finish()   { p.b.Finish() }
