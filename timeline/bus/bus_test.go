package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/murmuration/timelinekit/timeline"
)

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := New()
	ctx := context.Background()

	ch1, cancel1 := b.Subscribe(ctx)
	defer cancel1()
	ch2, cancel2 := b.Subscribe(ctx)
	defer cancel2()

	iv := timeline.DateInterval{Start: time.Now(), End: time.Now().Add(time.Minute)}
	b.Publish(iv)

	require.Equal(t, iv, <-ch1)
	require.Equal(t, iv, <-ch2)
}

func TestPublishDropsRatherThanBlocksWhenBufferFull(t *testing.T) {
	b := New()
	ctx := context.Background()
	ch, cancel := b.Subscribe(ctx)
	defer cancel()

	iv := timeline.DateInterval{Start: time.Now(), End: time.Now().Add(time.Minute)}
	for i := 0; i < subscriberBuffer+5; i++ {
		b.Publish(iv)
	}

	require.Len(t, ch, subscriberBuffer)
}

func TestCancelUnsubscribesAndClosesChannel(t *testing.T) {
	b := New()
	ctx := context.Background()
	ch, cancel := b.Subscribe(ctx)

	cancel()

	_, ok := <-ch
	require.False(t, ok)

	require.Empty(t, b.subs)
}

func TestContextCancellationAutoUnsubscribes(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx)

	cancel()

	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after context cancellation")
	}
}
