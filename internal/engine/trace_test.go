package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/servactory/internal/outcome"
)

func TestTraceLogStampsFromOne(t *testing.T) {
	var l traceLog
	l.append(outcome.Event{Kind: outcome.EventStarted})
	l.append(outcome.Event{Kind: outcome.EventCompleted, Seq: 99})

	events := l.snapshot()
	assert.Equal(t, int64(1), events[0].Seq)
	assert.Equal(t, int64(2), events[1].Seq, "caller-supplied seq is overwritten")
}

func TestTraceLogSnapshotIsCopy(t *testing.T) {
	var l traceLog
	l.append(outcome.Event{Kind: outcome.EventStarted})
	snap := l.snapshot()
	snap[0].Kind = outcome.EventFailed
	assert.Equal(t, outcome.EventStarted, l.snapshot()[0].Kind)
}

func TestTraceLogConcurrentAppends(t *testing.T) {
	var l traceLog
	const goroutines, calls = 20, 50

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range calls {
				l.append(outcome.Event{Kind: outcome.EventActionCompleted})
			}
		}()
	}
	wg.Wait()

	events := l.snapshot()
	assert.Len(t, events, goroutines*calls)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Seq)
	}
}
