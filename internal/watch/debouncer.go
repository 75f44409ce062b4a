package watch

import (
	"sync"
	"time"
)

// Op is the kind of change seen on the watched file.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one settled modification of the watched file.
type Change struct {
	Path string
	Op   Op
}

// Debouncer collapses a burst of events into one Change emitted after a
// quiet period. Only the latest operation of the burst is kept, and at most
// one Change waits unread on the output channel.
type Debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	pending  *Change
	timer    *time.Timer
	output   chan Change
}

func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		output:   make(chan Change, 1),
	}
}

func (d *Debouncer) Output() <-chan Change {
	return d.output
}

// Add records an event and restarts the quiet period.
func (d *Debouncer) Add(path string, op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = &Change{Path: path, Op: op}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.flush)
}

// Stop cancels a pending flush.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = nil
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending == nil {
		return
	}
	change := *d.pending
	d.pending = nil
	select {
	case d.output <- change:
	default:
		// A change is already waiting; the reader will reload once for both.
	}
}
