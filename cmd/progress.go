package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const progressRedrawInterval = 250 * time.Millisecond

// verifyTally is a point-in-time view of the verifier's progress.
type verifyTally struct {
	ok, failed int
	total      int
	spent      time.Duration
}

func (t verifyTally) settled() int { return t.ok + t.failed }

// line renders e.g. "[verify] 3/10 verified (30%) ok=2 failed=1 avg=0.41s".
// The total grows when more subjects settle than were announced.
func (t verifyTally) line(label string) string {
	settled := t.settled()
	total := max(t.total, settled, 1)
	var avg float64
	if settled > 0 {
		avg = t.spent.Seconds() / float64(settled)
	}
	return fmt.Sprintf("[%s] %d/%d verified (%d%%) ok=%d failed=%d avg=%.2fs",
		label, settled, total, settled*100/total, t.ok, t.failed, avg)
}

// progressPrinter keeps one status line on out, redrawn on a fixed interval
// while verification runs. Increment is safe from any worker goroutine.
type progressPrinter struct {
	out   io.Writer
	label string
	total int

	ok, failed atomic.Int64
	spent      atomic.Int64 // nanoseconds

	started  atomic.Bool
	quit     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
	width    int // length of the last drawn line
}

func newProgressPrinter(out io.Writer, total int, label string) *progressPrinter {
	return &progressPrinter{
		out:    out,
		label:  label,
		total:  max(total, 1),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

func (p *progressPrinter) Start() {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(p.exited)
		tick := time.NewTicker(progressRedrawInterval)
		defer tick.Stop()
		for {
			select {
			case <-tick.C:
				p.draw()
			case <-p.quit:
				return
			}
		}
	}()
}

// Increment counts one classified subject. ok is false for dead URLs and for
// packages that are hijackable or could not be checked.
func (p *progressPrinter) Increment(ok bool, d time.Duration) {
	if ok {
		p.ok.Add(1)
	} else {
		p.failed.Add(1)
	}
	p.spent.Add(int64(d))
}

func (p *progressPrinter) tally() verifyTally {
	return verifyTally{
		ok:     int(p.ok.Load()),
		failed: int(p.failed.Load()),
		total:  p.total,
		spent:  time.Duration(p.spent.Load()),
	}
}

// draw is only called from the redraw goroutine, or from Stop after it exited.
func (p *progressPrinter) draw() {
	s := p.tally().line(p.label)
	pad := ""
	if n := p.width - len(s); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	p.width = len(s)
	fmt.Fprintf(p.out, "\r%s%s", s, pad)
}

// Stop draws the final line and ends it with a newline. Calling it again
// does nothing; calling it before Start is allowed.
func (p *progressPrinter) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		if p.started.Load() {
			<-p.exited
		}
		p.draw()
		fmt.Fprintln(p.out)
	})
}
