// Package bus is an in-process implementation of the timeline package's
// Bus interface: every Publish fans the given intervals out to every live
// Subscribe channel. There is no cross-process transport here; an
// embedding application that needs one wires its own Bus implementation
// (e.g. over a local socket) and passes it to timeline.New instead.
package bus

import (
	"context"
	"sync"

	"github.com/murmuration/timelinekit/timeline"
)

const subscriberBuffer = 16

// InProcess is a simple mutex-guarded fan-out bus, sufficient for a single
// process with any number of TimelineSegments.
type InProcess struct {
	mu   sync.Mutex
	subs map[int]chan timeline.DateInterval
	next int
}

var _ timeline.Bus = (*InProcess)(nil)

// New returns a ready-to-use InProcess bus.
func New() *InProcess {
	return &InProcess{subs: make(map[int]chan timeline.DateInterval)}
}

// Publish fans intervals out to every live subscriber. A subscriber whose
// buffer is full has its oldest-undelivered guarantee broken silently: the
// send is dropped rather than blocking Publish, since a missed interval
// is superseded by the next commit's event anyway (spec.md §5).
func (b *InProcess) Publish(intervals ...timeline.DateInterval) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		for _, iv := range intervals {
			select {
			case ch <- iv:
			default:
			}
		}
	}
}

// Subscribe registers a new channel and returns it along with a cancel
// func that unregisters it and closes the channel. The channel is also
// closed automatically if ctx is done.
func (b *InProcess) Subscribe(ctx context.Context) (<-chan timeline.DateInterval, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan timeline.DateInterval, subscriberBuffer)
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		<-ctx.Done()
		cancel()
	}()

	return ch, cancel
}
