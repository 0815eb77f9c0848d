package report

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sweeney/aquaponics-monitor/internal/sensor"
)

// Result is the outcome of one dispatched report.
type Result struct {
	Started  time.Time
	Finished time.Time
	Err      error
}

// Dispatcher runs at most one Publish at a time off the main loop and hands
// the outcome back on Results. A report due while another is in flight is
// skipped, not queued.
type Dispatcher struct {
	pub      Publisher
	timeout  time.Duration
	now      func() time.Time
	inflight atomic.Bool
	results  chan Result

	// OnResult, if set, is called from the publishing goroutine after each
	// attempt, before the result is delivered.
	OnResult func(Result, sensor.Snapshot)
}

// NewDispatcher wraps pub. Each attempt is bounded by timeout.
func NewDispatcher(pub Publisher, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		pub:     pub,
		timeout: timeout,
		now:     time.Now,
		results: make(chan Result, 1),
	}
}

// Dispatch starts a report of readings. It returns false without doing
// anything if a report is already in flight.
func (d *Dispatcher) Dispatch(now time.Time, readings sensor.Snapshot) bool {
	if !d.inflight.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		res := Result{Started: now}
		res.Err = d.pub.Publish(ctx, readings)
		res.Finished = d.now()
		if d.OnResult != nil {
			d.OnResult(res, readings)
		}
		d.results <- res
		d.inflight.Store(false)
	}()
	return true
}

// InFlight reports whether a report is currently being sent.
func (d *Dispatcher) InFlight() bool {
	return d.inflight.Load()
}

// Results delivers one Result per dispatched report.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}
