package ibft

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NilFoundation/ibft/internal/blockchain"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/ibftevent"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingController struct {
	mu       sync.Mutex
	started  bool
	events   []ibftevent.Event
	failOn   ibftevent.Type
	handled  chan struct{}
	startErr error
}

func newRecordingController() *recordingController {
	return &recordingController{failOn: -1, handled: make(chan struct{}, 100)}
}

func (c *recordingController) record(e ibftevent.Event) error {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
	c.handled <- struct{}{}
	if e.Type() == c.failOn {
		return errors.New("handler failed")
	}
	return nil
}

func (c *recordingController) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return c.startErr
}

func (c *recordingController) HandleMessageEvent(_ context.Context, e ibftevent.MessageReceived) error {
	return c.record(e)
}

func (c *recordingController) HandleNewBlockEvent(_ context.Context, e ibftevent.NewChainHead) error {
	return c.record(e)
}

func (c *recordingController) HandleRoundExpiry(_ context.Context, e ibftevent.RoundExpiry) error {
	return c.record(e)
}

func (c *recordingController) HandleBlockTimerExpiry(_ context.Context, e ibftevent.BlockTimerExpiry) error {
	return c.record(e)
}

func (c *recordingController) recorded() []ibftevent.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ibftevent.Event(nil), c.events...)
}

type countingShutdowner struct {
	mu    sync.Mutex
	count int
}

func (s *countingShutdowner) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
}

func waitHandled(t *testing.T, c *recordingController, n int) {
	t.Helper()
	for range n {
		select {
		case <-c.handled:
		case <-time.After(5 * time.Second):
			t.Fatal("event was not handled")
		}
	}
}

func TestProcessorDispatchesInOrder(t *testing.T) {
	t.Parallel()

	queue := ibftevent.NewQueue()
	controller := newRecordingController()
	timers := &countingShutdowner{}
	processor := NewProcessor(queue, controller, timers)

	round := messages.NewRoundIdentifier(1, 0)
	events := []ibftevent.Event{
		ibftevent.NewChainHead{Header: &types.Header{}},
		ibftevent.BlockTimerExpiry{Round: round},
		ibftevent.MessageReceived{Message: &messages.Message{Code: messages.PrepareCode}},
		ibftevent.RoundExpiry{Round: round},
	}
	for _, e := range events {
		queue.Add(e)
	}

	done := make(chan error)
	go func() {
		done <- processor.Run(context.Background())
	}()

	waitHandled(t, controller, len(events))
	processor.Stop()
	require.NoError(t, <-done)

	assert.Equal(t, events, controller.recorded())
	assert.True(t, controller.started)
	assert.Equal(t, 1, timers.count)
}

func TestProcessorStopsOnHandlerError(t *testing.T) {
	t.Parallel()

	queue := ibftevent.NewQueue()
	controller := newRecordingController()
	controller.failOn = ibftevent.RoundExpiryType
	timers := &countingShutdowner{}

	queue.Add(ibftevent.RoundExpiry{})
	queue.Add(ibftevent.BlockTimerExpiry{})

	err := NewProcessor(queue, controller, timers).Run(context.Background())
	require.Error(t, err)
	assert.Len(t, controller.recorded(), 1)
	assert.Equal(t, 1, queue.Size())
	assert.Equal(t, 1, timers.count)
}

func TestProcessorStartError(t *testing.T) {
	t.Parallel()

	controller := newRecordingController()
	controller.startErr = errors.New("no chain head")
	err := NewProcessor(ibftevent.NewQueue(), controller).Run(context.Background())
	require.ErrorIs(t, err, controller.startErr)
}

func TestProcessorStopsOnContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- NewProcessor(ibftevent.NewQueue(), newRecordingController()).Run(ctx)
	}()

	cancel()
	require.NoError(t, <-done)
}

type fakeObservableChain struct {
	mu       sync.Mutex
	observer blockchain.BlockAddedObserver
}

func (c *fakeObservableChain) Observe(observer blockchain.BlockAddedObserver) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = observer
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.observer = nil
	}
}

func (c *fakeObservableChain) add(block *types.Block) bool {
	c.mu.Lock()
	observer := c.observer
	c.mu.Unlock()
	if observer == nil {
		return false
	}
	observer(blockchain.BlockAddedEvent{Block: block})
	return true
}

func TestCoordinatorEnqueuesChainHeads(t *testing.T) {
	t.Parallel()

	validators := addresses(2)
	candidate := common.HexToAddress("0xcafe")
	tally := NewVoteTally(validators)
	queue := ibftevent.NewQueue()
	controller := newRecordingController()
	chain := &fakeObservableChain{}

	coordinator := NewCoordinator(NewProcessor(queue, controller), queue, chain, NewVoteTallyUpdater(100), tally)

	done := make(chan error)
	go func() {
		done <- coordinator.Run(context.Background())
	}()

	header := makeHeader(t, 1, validators[0], validators, &types.Vote{Recipient: candidate, Type: types.VoteAdd})
	require.Eventually(t, func() bool {
		return chain.add(types.NewBlock(header, nil))
	}, 5*time.Second, time.Millisecond)

	waitHandled(t, controller, 1)
	coordinator.Stop()
	require.NoError(t, <-done)

	assert.Equal(t, []ibftevent.Event{ibftevent.NewChainHead{Header: header}}, controller.recorded())
	assert.False(t, tally.IsValidator(candidate), "one vote of two is not a majority")
	assert.False(t, chain.add(types.NewBlock(header, nil)), "coordinator must unsubscribe on exit")
}
