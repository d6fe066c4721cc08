// Package debounce defers work until input for a key has been quiet for a
// fixed window.
package debounce

import (
	"sync"
	"time"

	"github.com/vvatanabe/shipcode/internal/clock"
)

type Options struct {
	Clock clock.Clock
}

func WithClock(c clock.Clock) func(*Options) {
	return func(o *Options) {
		if c != nil {
			o.Clock = c
		}
	}
}

// Debouncer holds at most one pending task per id. Scheduling a task for an
// id cancels the task pending for it.
type Debouncer struct {
	mu      sync.Mutex
	clock   clock.Clock
	delay   time.Duration
	tasks   map[string]*task
	gen     uint64
	stopped bool
}

type task struct {
	timer clock.Timer
	gen   uint64
}

func New(delay time.Duration, optFns ...func(*Options)) *Debouncer {
	o := &Options{Clock: clock.RealClock{}}
	for _, opt := range optFns {
		opt(o)
	}
	return &Debouncer{
		clock: o.Clock,
		delay: delay,
		tasks: make(map[string]*task),
	}
}

// Schedule runs fn after the quiet window unless another Schedule or Cancel
// for id comes first. It reports false once the Debouncer is stopped.
func (d *Debouncer) Schedule(id string, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	if prev, ok := d.tasks[id]; ok {
		prev.timer.Stop()
	}
	d.gen++
	gen := d.gen
	t := &task{gen: gen}
	d.tasks[id] = t
	t.timer = d.clock.AfterFunc(d.delay, func() {
		if d.claim(id, gen) {
			fn()
		}
	})
	return true
}

// claim removes the task if it is still the current one for id.
func (d *Debouncer) claim(id string, gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	t, ok := d.tasks[id]
	if !ok || t.gen != gen {
		return false
	}
	delete(d.tasks, id)
	return true
}

func (d *Debouncer) Cancel(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tasks[id]; ok {
		t.timer.Stop()
		delete(d.tasks, id)
	}
}

// Stop cancels every pending task. Later calls to Schedule are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for id, t := range d.tasks {
		t.timer.Stop()
		delete(d.tasks, id)
	}
}

// Pending returns the number of tasks waiting to run.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}
