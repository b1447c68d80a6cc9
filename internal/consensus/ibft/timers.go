package ibft

import (
	"sync"
	"time"

	"github.com/NilFoundation/ibft/internal/consensus/ibft/ibftevent"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/jonboulle/clockwork"
)

// Round timeouts stop growing after this many doublings.
const maxRoundTimeoutExponent = 16

// singleTimer runs at most one outstanding timer. Starting a new one cancels the pending one.
type singleTimer struct {
	clock clockwork.Clock

	mu         sync.Mutex
	current    clockwork.Timer // +checklocks:mu
	generation uint64          // +checklocks:mu
	shutdown   bool            // +checklocks:mu
}

func (t *singleTimer) start(d time.Duration, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	if t.shutdown {
		return
	}

	generation := t.generation
	t.current = t.clock.AfterFunc(d, func() {
		t.mu.Lock()
		stale := t.generation != generation || t.shutdown
		if !stale {
			t.current = nil
		}
		t.mu.Unlock()

		if !stale {
			fire()
		}
	})
}

// +checklocks:t.mu
func (t *singleTimer) cancelLocked() {
	t.generation++
	if t.current != nil {
		t.current.Stop()
		t.current = nil
	}
}

func (t *singleTimer) cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

func (t *singleTimer) isRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current != nil
}

func (t *singleTimer) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.shutdown = true
}

// RoundTimer posts a RoundExpiry when a round lasts longer than base * 2^round.
type RoundTimer struct {
	singleTimer
	queue *ibftevent.Queue
	base  time.Duration
}

func NewRoundTimer(queue *ibftevent.Queue, clock clockwork.Clock, base time.Duration) *RoundTimer {
	return &RoundTimer{
		singleTimer: singleTimer{clock: clock},
		queue:       queue,
		base:        base,
	}
}

func (t *RoundTimer) Timeout(round uint32) time.Duration {
	return t.base << min(round, maxRoundTimeoutExponent)
}

func (t *RoundTimer) StartTimer(round messages.ConsensusRoundIdentifier) {
	t.start(t.Timeout(round.Round), func() {
		t.queue.Add(ibftevent.RoundExpiry{Round: round})
	})
}

func (t *RoundTimer) CancelTimer() {
	t.cancel()
}

func (t *RoundTimer) IsRunning() bool {
	return t.isRunning()
}

// BlockTimer posts a BlockTimerExpiry once the block period since the parent has passed.
type BlockTimer struct {
	singleTimer
	queue  *ibftevent.Queue
	period time.Duration
}

func NewBlockTimer(queue *ibftevent.Queue, clock clockwork.Clock, period time.Duration) *BlockTimer {
	return &BlockTimer{
		singleTimer: singleTimer{clock: clock},
		queue:       queue,
		period:      period,
	}
}

func (t *BlockTimer) StartTimer(round messages.ConsensusRoundIdentifier, parent *types.Header) {
	expiry := time.Unix(int64(parent.Timestamp), 0).Add(t.period)
	fire := func() {
		t.queue.Add(ibftevent.BlockTimerExpiry{Round: round})
	}

	now := t.clock.Now()
	if !now.Before(expiry) {
		t.cancel()
		fire()
		return
	}
	t.start(expiry.Sub(now), fire)
}

func (t *BlockTimer) CancelTimer() {
	t.cancel()
}

func (t *BlockTimer) IsRunning() bool {
	return t.isRunning()
}
