package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"snapintake/internal/model"
)

// CoverageEvaluator is the oracle contract the debouncer drives.
type CoverageEvaluator interface {
	Evaluate(ctx context.Context, transcriptText string) (model.SectionCoverage, error)
}

// CoverageDebouncer coalesces rapid transcript changes into at most one
// oracle call per quiet period. While a call is in flight at most one more
// is queued behind it, so a single session never issues unbounded concurrent
// oracle calls no matter how fast events arrive.
//
// States: idle -> timer pending -> evaluating -> (evaluating with rerun
// queued) -> idle.
type CoverageDebouncer struct {
	evaluator CoverageEvaluator
	quiet     time.Duration

	// onResult, when set, is called after every completed evaluation with
	// the fresh coverage and the evaluation error, outside the lock.
	onResult func(coverage model.SectionCoverage, err error)

	mu          sync.Mutex
	timer       *time.Timer
	text        string // latest transcript text
	evaluated   string // text the in-flight/last evaluation used
	latest      *model.SectionCoverage
	lastErr     error
	inFlight    bool
	rerunQueued bool
	closed      bool
}

func NewCoverageDebouncer(evaluator CoverageEvaluator, quiet time.Duration, onResult func(model.SectionCoverage, error)) *CoverageDebouncer {
	if quiet <= 0 {
		quiet = 2 * time.Second
	}
	return &CoverageDebouncer{
		evaluator: evaluator,
		quiet:     quiet,
		onResult:  onResult,
	}
}

// NoteChange records a transcript change and (re)starts the quiet-period
// timer. The in-flight evaluation, if any, is never cancelled.
func (d *CoverageDebouncer) NoteChange(transcriptText string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.text = transcriptText

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.fire)
}

// RefreshNow bypasses the quiet period and evaluates immediately.
func (d *CoverageDebouncer) RefreshNow() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	go d.fire()
}

// Snapshot returns the latest coverage (nil if never evaluated), whether an
// evaluation is in flight, and the error of the most recent evaluation.
func (d *CoverageDebouncer) Snapshot() (*model.SectionCoverage, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.latest == nil {
		return nil, d.inFlight, d.lastErr
	}
	coverage := *d.latest
	return &coverage, d.inFlight, d.lastErr
}

// Close stops the timer. A queued or in-flight evaluation finishes but no
// new ones start.
func (d *CoverageDebouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// fire runs on the timer goroutine (or a RefreshNow goroutine). It must
// never panic outward: a crash here would take down the host process.
func (d *CoverageDebouncer) fire() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("coverage debouncer: recovered from panic: %v", r)
			d.mu.Lock()
			d.inFlight = false
			d.lastErr = fmt.Errorf("coverage evaluation panic: %v", r)
			d.mu.Unlock()
		}
	}()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.inFlight {
		// One rerun at most; further changes collapse into it.
		d.rerunQueued = true
		d.mu.Unlock()
		return
	}
	d.inFlight = true
	text := d.text
	d.evaluated = text
	d.mu.Unlock()

	coverage, err := d.evaluator.Evaluate(context.Background(), text)

	d.mu.Lock()
	d.inFlight = false
	d.lastErr = err
	// Even a degraded evaluation yields a usable (all-false) value, so the
	// UI never wedges on oracle failure.
	d.latest = &coverage
	// Changes that restarted the timer during the flight are handled by
	// that timer; only a fire suppressed by the flight reruns here.
	rerun := d.rerunQueued && d.text != d.evaluated
	d.rerunQueued = false
	closed := d.closed
	d.mu.Unlock()

	if d.onResult != nil {
		d.onResult(coverage, err)
	}

	if rerun && !closed {
		go d.fire()
	}
}
