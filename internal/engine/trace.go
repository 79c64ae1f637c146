package engine

import (
	"sync"

	"github.com/roach88/servactory/internal/outcome"
)

// traceLog is the event log of one invocation. Seq is a logical clock
// starting at 1, never wall time, so two runs of the same invocation
// produce identical traces.
//
// Extensions may record from their own goroutines, so appends are
// serialized.
type traceLog struct {
	mu     sync.Mutex
	seq    int64
	events []outcome.Event
}

// append stamps e with the next sequence number and stores it.
func (l *traceLog) append(e outcome.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	e.Seq = l.seq
	l.events = append(l.events, e)
}

// snapshot returns a copy of the events recorded so far.
func (l *traceLog) snapshot() []outcome.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]outcome.Event, len(l.events))
	copy(out, l.events)
	return out
}
