package ibftevent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestQueueFifo(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	for i := range uint32(3) {
		q.Add(RoundExpiry{Round: messages.NewRoundIdentifier(1, i)})
	}
	require.Equal(t, 3, q.Size())

	for i := range uint32(3) {
		event := q.Poll(context.Background(), time.Millisecond)
		require.Equal(t, RoundExpiry{Round: messages.NewRoundIdentifier(1, i)}, event)
	}
	assert.Zero(t, q.Size())
}

func TestQueuePollTimeout(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	start := time.Now()
	assert.Nil(t, q.Poll(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestQueuePollCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Nil(t, NewQueue().Poll(ctx, time.Hour))
}

func TestQueueWakesConsumer(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	go func() {
		time.Sleep(10 * time.Millisecond)
		q.Add(NewChainHead{})
	}()

	event := q.Poll(context.Background(), time.Minute)
	require.NotNil(t, event)
	assert.Equal(t, NewChainHeadType, event.Type())
}

func TestQueueConcurrentProducers(t *testing.T) {
	t.Parallel()

	const producers, perProducer = 8, 100

	q := NewQueue()
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				q.Add(BlockTimerExpiry{Round: messages.NewRoundIdentifier(uint64(p), uint32(i))})
			}
		}()
	}

	lastRound := make(map[uint64]int)
	for range producers * perProducer {
		event := q.Poll(context.Background(), time.Second)
		require.NotNil(t, event)

		round := event.(BlockTimerExpiry).Round
		prev, seen := lastRound[round.Height]
		if seen {
			require.Equal(t, prev+1, int(round.Round), "events of one producer must stay ordered")
		} else {
			require.Zero(t, round.Round)
		}
		lastRound[round.Height] = int(round.Round)
	}
	wg.Wait()
	assert.Zero(t, q.Size())
}
