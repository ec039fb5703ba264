package bus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chat-core/internal/models"

	"github.com/stretchr/testify/require"
)

func TestMemoryBusDeliversInPublishOrder(t *testing.T) {
	req := require.New(t)
	b := NewMemoryBus()
	defer b.Close()

	var mu sync.Mutex
	var got []int64
	req.NoError(b.Subscribe(func(env models.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, env.(models.ChatEnvelope).MessageID)
	}))

	for i := int64(1); i <= 5; i++ {
		req.NoError(b.Publish(7, models.ChatEnvelope{MessageID: i, RoomID: 7, SenderID: 1, Body: "hi"}))
	}

	req.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 5
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	req.Equal([]int64{1, 2, 3, 4, 5}, got)
}

func TestMemoryBusFanoutToAllHandlers(t *testing.T) {
	req := require.New(t)
	b := NewMemoryBus()

	var mu sync.Mutex
	counts := make(map[string]int)
	for _, name := range []string{"a", "b"} {
		name := name
		req.NoError(b.Subscribe(func(models.Envelope) {
			mu.Lock()
			defer mu.Unlock()
			counts[name]++
		}))
	}

	req.NoError(b.Publish(7, models.TypingEnvelope{RoomID: 7, SenderID: 1}))
	b.Close() // drains the queue before returning

	mu.Lock()
	defer mu.Unlock()
	req.Equal(1, counts["a"])
	req.Equal(1, counts["b"])
}

func TestMemoryBusRoundTripsEnvelopeTypes(t *testing.T) {
	req := require.New(t)
	b := NewMemoryBus()

	var mu sync.Mutex
	var got models.Envelope
	req.NoError(b.Subscribe(func(env models.Envelope) {
		mu.Lock()
		defer mu.Unlock()
		got = env
	}))

	sent := models.MembershipEnvelope{Event: models.EventLeave, RoomID: 7, UserID: 3, Username: "alice"}
	req.NoError(b.Publish(7, sent))
	b.Close()

	mu.Lock()
	defer mu.Unlock()
	req.Equal(sent, got)
}

func TestMemoryBusConcurrentPublishersDoNotStallDispatch(t *testing.T) {
	req := require.New(t)
	b := NewMemoryBus()

	var delivered atomic.Int64
	req.NoError(b.Subscribe(func(models.Envelope) {
		// A slow handler keeps the queue full while publishers race.
		time.Sleep(time.Millisecond)
		delivered.Add(1)
	}))

	const publishers, perPublisher = 4, 100
	var pubErrs atomic.Int64
	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				if err := b.Publish(7, models.TypingEnvelope{RoomID: 7, SenderID: 1}); err != nil {
					pubErrs.Add(1)
				}
			}
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		t.Fatal("publishers stalled against the dispatch goroutine")
	}

	b.Close() // drains the queue
	req.Zero(pubErrs.Load())
	req.Equal(int64(publishers*perPublisher), delivered.Load())
}

func TestMemoryBusClosed(t *testing.T) {
	req := require.New(t)
	b := NewMemoryBus()
	b.Close()

	err := b.Publish(7, models.TypingEnvelope{RoomID: 7, SenderID: 1})
	req.ErrorIs(err, ErrBusUnavailable)

	err = b.Subscribe(func(models.Envelope) {})
	req.ErrorIs(err, ErrBusUnavailable)

	// Closing twice is safe.
	b.Close()
}
