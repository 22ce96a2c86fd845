package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Debouncer runs only the last of a burst of triggers, once the burst has
// been quiet for the configured delay.
type Debouncer struct {
	scheduler *Scheduler
	id        string
	name      string
	delay     time.Duration

	mu      sync.Mutex
	cond    *sync.Cond
	gen     uint64
	pending bool
	running int
}

// NewDebouncer creates a debouncer whose jobs run on s.
func NewDebouncer(s *Scheduler, name string, delay time.Duration) *Debouncer {
	d := &Debouncer{
		scheduler: s,
		id:        "debounce-" + uuid.NewString(),
		name:      name,
		delay:     delay,
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger schedules fn after the delay and cancels any earlier pending trigger.
func (d *Debouncer) Trigger(fn JobFunc) error {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	d.pending = true
	d.mu.Unlock()

	err := d.scheduler.ScheduleOnce(d.id, d.name, d.delay, func(ctx context.Context) error {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			return nil
		}
		d.pending = false
		d.running++
		d.mu.Unlock()

		defer func() {
			d.mu.Lock()
			d.running--
			d.cond.Broadcast()
			d.mu.Unlock()
		}()
		return fn(ctx)
	})
	if err != nil {
		d.mu.Lock()
		if gen == d.gen {
			d.pending = false
			d.cond.Broadcast()
		}
		d.mu.Unlock()
	}
	return err
}

// Cancel drops the pending trigger, if any. A run already in progress completes.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.gen++
	d.pending = false
	d.cond.Broadcast()
	d.mu.Unlock()

	d.scheduler.Cancel(d.id)
}

// Pending reports whether a trigger is waiting for its delay to pass.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Wait blocks until no trigger is pending or running.
func (d *Debouncer) Wait() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.pending || d.running > 0 {
		d.cond.Wait()
	}
}
