package statemachine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/NilFoundation/ibft/internal/blockchain"
	"github.com/NilFoundation/ibft/internal/consensus/ibft"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/blockcreation"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/ibftevent"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/testaide"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/transport"
	"github.com/NilFoundation/ibft/internal/db"
	"github.com/NilFoundation/ibft/internal/txpool"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type recordingMulticaster struct {
	mu   sync.Mutex
	sent []*messages.Message
}

func (m *recordingMulticaster) Multicast(_ context.Context, msg *messages.Message, _ ...common.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMulticaster) take() []*messages.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := m.sent
	m.sent = nil
	return sent
}

// testContext runs the controller of one validator against a real chain.
// Remote validators are simulated by injecting their signed messages.
type testContext struct {
	t   *testing.T
	ctx context.Context

	validators []*testaide.Validator
	addresses  []common.Address
	local      *testaide.Validator
	genesis    *types.Block

	chain       *blockchain.Blockchain
	queue       *ibftevent.Queue
	clock       *clockwork.FakeClock
	multicaster *recordingMulticaster
	final       *FinalState
	controller  *Controller

	mined []*types.Block
}

// newTestContext creates a network of n validators in which the local node is validators[localIndex].
// The proposer of round r at height h is validators[(h + r) % n].
func newTestContext(t *testing.T, n int, localIndex int) *testContext {
	t.Helper()

	c := &testContext{
		t:           t,
		ctx:         context.Background(),
		validators:  testaide.NewValidators(t, n),
		queue:       ibftevent.NewQueue(),
		clock:       clockwork.NewFakeClockAt(time.Unix(testaide.GenesisTimestamp+testaide.BlockPeriodSeconds, 0)),
		multicaster: &recordingMulticaster{},
	}
	c.addresses = testaide.Addresses(c.validators)
	c.local = c.validators[localIndex]
	c.genesis = testaide.NewGenesis(t, c.addresses)

	database, err := db.NewBadgerDbInMemory()
	require.NoError(t, err)
	t.Cleanup(database.Close)
	c.chain, err = blockchain.NewBlockchain(c.ctx, database, c.genesis)
	require.NoError(t, err)

	cfg := ibft.NewDefaultConfig()
	cfg.BlockPeriodSeconds = testaide.BlockPeriodSeconds

	gossiper, err := transport.NewGossiper(c.multicaster, cfg.GossipedHistoryLimit)
	require.NoError(t, err)
	metrics, err := ibft.NewMetricsHandler("test", c.clock)
	require.NoError(t, err)

	tally := ibft.NewVoteTally(c.addresses)
	pool := txpool.New(*txpool.NewDefaultConfig())

	roundTimer := ibft.NewRoundTimer(c.queue, c.clock, cfg.RequestTimeout())
	blockTimer := ibft.NewBlockTimer(c.queue, c.clock, cfg.BlockPeriod())
	t.Cleanup(roundTimer.Shutdown)
	t.Cleanup(blockTimer.Shutdown)

	c.final = &FinalState{
		Config:         cfg,
		Validators:     tally,
		MessageFactory: c.local.Factory,
		Transmitter:    transport.NewTransmitter(c.multicaster, gossiper),
		Gossiper:       gossiper,
		RoundTimer:     roundTimer,
		BlockTimer:     blockTimer,
		BlockCreator: blockcreation.NewBlockCreator(
			c.local.Address, tally, blockcreation.NewVoteProposer(), pool, cfg.EpochLength, nil),
		BlockImporter: c.chain,
		Observers: []MinedBlockObserver{func(event blockchain.BlockAddedEvent) {
			c.mined = append(c.mined, event.Block)
		}},
		Clock:   c.clock,
		Metrics: metrics,
	}
	c.controller = NewController(c.final, c.chain)
	return c
}

func (c *testContext) start() {
	c.t.Helper()
	require.NoError(c.t, c.controller.Start(c.ctx))
}

func (c *testContext) validator(index int) *testaide.Validator {
	return c.validators[index]
}

func (c *testContext) heightManager() *BlockHeightManager {
	return c.controller.HeightManager()
}

// newBlock builds the block the given validator proposes on top of parent.
func (c *testContext) newBlock(parent *types.Header, proposer int, round uint32) *types.Block {
	c.t.Helper()
	return testaide.NewBlock(c.t, parent, c.validator(proposer).Address, c.addresses, round, nil)
}

func inject[P messages.Payload](c *testContext, signed *messages.SignedData[P]) {
	c.t.Helper()

	msg, err := messages.NewMessage(signed)
	require.NoError(c.t, err)
	require.NoError(c.t, c.controller.HandleMessageEvent(c.ctx, ibftevent.MessageReceived{Message: msg}))
}

func (c *testContext) injectProposal(from int, round messages.ConsensusRoundIdentifier, block *types.Block) {
	c.t.Helper()

	proposal, err := c.validator(from).Factory.CreateProposal(round, block)
	require.NoError(c.t, err)
	inject(c, proposal)
}

func (c *testContext) injectPrepare(from int, round messages.ConsensusRoundIdentifier, block *types.Block) {
	c.t.Helper()

	prepare, err := c.validator(from).Factory.CreatePrepare(round, block.SealHash())
	require.NoError(c.t, err)
	inject(c, prepare)
}

func (c *testContext) injectCommit(from int, round messages.ConsensusRoundIdentifier, block *types.Block) {
	c.t.Helper()
	inject(c, c.commit(from, round, block))
}

func (c *testContext) commit(from int, round messages.ConsensusRoundIdentifier, block *types.Block) *messages.Commit {
	c.t.Helper()

	factory := c.validator(from).Factory
	seal, err := factory.CreateCommitSeal(block.SealHash())
	require.NoError(c.t, err)
	commit, err := factory.CreateCommit(round, block.SealHash(), seal)
	require.NoError(c.t, err)
	return commit
}

func (c *testContext) roundChange(
	from int, round messages.ConsensusRoundIdentifier, pc *messages.PreparedCertificate,
) *messages.RoundChange {
	c.t.Helper()

	rc, err := c.validator(from).Factory.CreateRoundChange(round, pc)
	require.NoError(c.t, err)
	return rc
}

func (c *testContext) injectRoundChange(from int, round messages.ConsensusRoundIdentifier) {
	c.t.Helper()
	inject(c, c.roundChange(from, round, nil))
}

func (c *testContext) expireRound(round messages.ConsensusRoundIdentifier) {
	c.t.Helper()
	require.NoError(c.t, c.controller.HandleRoundExpiry(c.ctx, ibftevent.RoundExpiry{Round: round}))
}

func (c *testContext) newChainHead(header *types.Header) {
	c.t.Helper()
	require.NoError(c.t, c.controller.HandleNewBlockEvent(c.ctx, ibftevent.NewChainHead{Header: header}))
}

// sentByLocal returns the messages multicast by the local node since the last call.
// Messages gossiped on behalf of other validators are skipped.
func (c *testContext) sentByLocal() []*messages.Message {
	c.t.Helper()

	var res []*messages.Message
	for _, msg := range c.multicaster.take() {
		if authorOf(c.t, msg) == c.local.Address {
			res = append(res, msg)
		}
	}
	return res
}

func authorOf(t *testing.T, msg *messages.Message) common.Address {
	t.Helper()

	switch msg.Code {
	case messages.ProposalCode:
		return decode[messages.ProposalPayload](t, msg).Author()
	case messages.PrepareCode:
		return decode[messages.PreparePayload](t, msg).Author()
	case messages.CommitCode:
		return decode[messages.CommitPayload](t, msg).Author()
	case messages.RoundChangeCode:
		return decode[messages.RoundChangePayload](t, msg).Author()
	case messages.NewRoundCode:
		return decode[messages.NewRoundPayload](t, msg).Author()
	}
	require.FailNow(t, "unexpected message code", "%s", msg.Code)
	return common.Address{}
}

func decode[P messages.Payload](t *testing.T, msg *messages.Message) *messages.SignedData[P] {
	t.Helper()

	signed, err := messages.Decode[P](msg)
	require.NoError(t, err)
	return signed
}

// requireSingle asserts that exactly one message was sent and decodes it.
func requireSingle[P messages.Payload](t *testing.T, sent []*messages.Message) *messages.SignedData[P] {
	t.Helper()

	require.Len(t, sent, 1)
	return decode[P](t, sent[0])
}
