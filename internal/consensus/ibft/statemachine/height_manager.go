package statemachine

import (
	"context"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/validation"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

type messageAge int

const (
	priorRound messageAge = iota
	currentRound
	futureRound
)

// BlockHeightManager runs consensus for the height following its parent block.
// It owns the current round, the votes buffered for future rounds and the
// latest prepared certificate of the local node.
type BlockHeightManager struct {
	final  *FinalState
	height *heightContext

	roundChangeManager *RoundChangeManager
	newRoundValidator  *validation.NewRoundMessageValidator

	futureRounds              map[uint32]*RoundState
	latestPreparedCertificate *messages.PreparedCertificate
	currentRound              *IbftRound

	logger zerolog.Logger
}

func NewBlockHeightManager(final *FinalState, parent *types.Header) *BlockHeightManager {
	height := newHeightContext(final, parent)
	return &BlockHeightManager{
		final:  final,
		height: height,
		roundChangeManager: NewRoundChangeManager(
			height.quorum, height.validatorFactory.CreateRoundChangeMessageValidator(parent)),
		newRoundValidator: height.validatorFactory.CreateNewRoundMessageValidator(parent),
		futureRounds:      make(map[uint32]*RoundState),
		logger: logging.NewLogger("ibft-height").With().
			Uint64(logging.FieldHeight, height.height()).
			Logger(),
	}
}

func (m *BlockHeightManager) Height() uint64 {
	return m.height.height()
}

func (m *BlockHeightManager) Parent() *types.Header {
	return m.height.parent
}

func (m *BlockHeightManager) IsValidator(address common.Address) bool {
	return m.height.validators.Contains(address)
}

func (m *BlockHeightManager) RoundIdentifier() messages.ConsensusRoundIdentifier {
	return m.currentRound.RoundIdentifier()
}

// Start enters round 0. The proposer of the round waits for the block timer.
func (m *BlockHeightManager) Start(ctx context.Context) {
	m.final.Metrics.StartHeight(ctx, m.Height(), len(m.height.validators))
	m.startNewRound(ctx, 0)

	round := m.RoundIdentifier()
	if m.height.isLocalProposer(m.final, round) {
		m.final.BlockTimer.StartTimer(round, m.height.parent)
	}
}

func (m *BlockHeightManager) HandleBlockTimerExpiry(ctx context.Context, round messages.ConsensusRoundIdentifier) error {
	if round != m.RoundIdentifier() {
		m.logger.Info().
			Stringer(logging.FieldRound, round).
			Msg("Block timer expired for a round other than the current one")
		return nil
	}
	return m.currentRound.CreateAndSendProposal(ctx, m.height.blockTimestamp(m.final))
}

// RoundExpired moves to the next round and asks the validators to follow.
func (m *BlockHeightManager) RoundExpired(ctx context.Context, round messages.ConsensusRoundIdentifier) error {
	if round != m.RoundIdentifier() {
		m.logger.Info().
			Stringer(logging.FieldRound, round).
			Msg("Ignoring round timer expiry which does not match the current round")
		return nil
	}

	m.logger.Info().Stringer(logging.FieldRound, round).Msg("Round has expired")
	if pc := m.currentRound.CreatePreparedCertificate(); pc != nil {
		m.latestPreparedCertificate = pc
	}

	m.startNewRound(ctx, round.Round+1)

	if !m.height.isValidator {
		return nil
	}
	roundChange, err := m.final.MessageFactory.CreateRoundChange(m.RoundIdentifier(), m.latestPreparedCertificate)
	if err != nil {
		return err
	}
	m.final.Transmitter.MulticastRoundChange(ctx, roundChange)

	// The local round change may complete the certificate.
	return m.HandleRoundChange(ctx, roundChange)
}

func (m *BlockHeightManager) HandleProposal(ctx context.Context, msg *messages.Proposal) error {
	return actionOrBufferMessage(ctx, m, msg, m.currentRound.HandleProposal, m.dropFutureProposal)
}

// dropFutureProposal discards a bare Proposal for a later round. Rounds after
// the first take their proposal from a NewRound message only.
func (m *BlockHeightManager) dropFutureProposal(_ *RoundState, msg *messages.Proposal) {
	m.logger.Info().
		Stringer(logging.FieldAuthor, msg.Author()).
		Stringer(logging.FieldRound, msg.RoundIdentifier()).
		Msg("Illegally received a Proposal message for a future round")
}

func (m *BlockHeightManager) HandlePrepare(ctx context.Context, msg *messages.Prepare) error {
	return actionOrBufferMessage(ctx, m, msg, m.currentRound.HandlePrepare, (*RoundState).AddPrepare)
}

func (m *BlockHeightManager) HandleCommit(ctx context.Context, msg *messages.Commit) error {
	return actionOrBufferMessage(ctx, m, msg, m.currentRound.HandleCommit, (*RoundState).AddCommit)
}

func actionOrBufferMessage[P messages.Payload](
	ctx context.Context,
	m *BlockHeightManager,
	msg *messages.SignedData[P],
	inRoundHandler func(context.Context, *messages.SignedData[P]) error,
	buffer func(*RoundState, *messages.SignedData[P]),
) error {
	round := msg.RoundIdentifier()
	switch m.determineAge(round) {
	case currentRound:
		return inRoundHandler(ctx, msg)
	case futureRound:
		if !m.isWithinFutureRoundDistance(round) {
			m.logger.Debug().
				Stringer(logging.FieldType, msg.MessageCode()).
				Stringer(logging.FieldRound, round).
				Msg("Dropping message for a round too far ahead")
			return nil
		}
		state, ok := m.futureRounds[round.Round]
		if !ok {
			state = m.newRoundState(round)
			m.futureRounds[round.Round] = state
		}
		buffer(state, msg)
	default:
		m.final.Metrics.MessageStale(ctx, msg.MessageCode())
		m.logger.Trace().
			Stringer(logging.FieldType, msg.MessageCode()).
			Stringer(logging.FieldRound, round).
			Msg("Dropping message for a prior round")
	}
	return nil
}

// HandleRoundChange collects the round change and, on a completed certificate,
// enters its round and proposes there if the local node is its proposer.
func (m *BlockHeightManager) HandleRoundChange(ctx context.Context, msg *messages.RoundChange) error {
	target := msg.RoundIdentifier()
	age := m.determineAge(target)
	if age == priorRound {
		m.final.Metrics.MessageStale(ctx, msg.MessageCode())
		m.logger.Debug().Stringer(logging.FieldRound, target).Msg("Received RoundChange for a prior round")
		return nil
	}
	if !m.isWithinFutureRoundDistance(target) {
		m.logger.Debug().Stringer(logging.FieldRound, target).Msg("Dropping RoundChange for a round too far ahead")
		return nil
	}

	rcc := m.roundChangeManager.AppendRoundChangeMessage(msg)
	if rcc == nil {
		return nil
	}

	m.logger.Info().
		Stringer(logging.FieldRound, target).
		Int(logging.FieldCount, len(rcc.RoundChanges)).
		Msg("Round change certificate collected")
	if age == futureRound {
		m.startNewRound(ctx, target.Round)
	}
	if m.height.isLocalProposer(m.final, target) {
		return m.currentRound.StartRoundWith(ctx, rcc, m.height.blockTimestamp(m.final))
	}
	return nil
}

func (m *BlockHeightManager) HandleNewRound(ctx context.Context, msg *messages.NewRound) error {
	target := msg.RoundIdentifier()
	age := m.determineAge(target)
	if age == priorRound {
		m.final.Metrics.MessageStale(ctx, msg.MessageCode())
		m.logger.Info().Stringer(logging.FieldRound, target).Msg("Received NewRound for a prior round")
		return nil
	}

	if !m.newRoundValidator.ValidateNewRoundMessage(msg) {
		m.final.Metrics.MessageInvalid(ctx, msg.MessageCode())
		return nil
	}
	if age == futureRound {
		m.startNewRound(ctx, target.Round)
	}
	return m.currentRound.HandleProposalFromNewRound(ctx, msg)
}

// startNewRound makes the round current, reusing the votes buffered for it.
func (m *BlockHeightManager) startNewRound(ctx context.Context, round uint32) {
	id := messages.NewRoundIdentifier(m.Height(), round)
	m.logger.Info().Uint32(logging.FieldRound, round).Msg("Starting new round")

	state, ok := m.futureRounds[round]
	if !ok {
		state = m.newRoundState(id)
	}
	for r := range m.futureRounds {
		if r <= round {
			delete(m.futureRounds, r)
		}
	}

	m.currentRound = newIbftRound(state, m.final, m.height, m.logger)
	m.roundChangeManager.DiscardRoundsPriorTo(id)
	m.final.RoundTimer.StartTimer(id)
	m.final.Metrics.RoundStarted(ctx, id)
}

func (m *BlockHeightManager) newRoundState(round messages.ConsensusRoundIdentifier) *RoundState {
	return NewRoundState(
		round,
		m.height.quorum,
		m.height.validatorFactory.CreateMessageValidator(round, m.height.parent),
	)
}

func (m *BlockHeightManager) determineAge(round messages.ConsensusRoundIdentifier) messageAge {
	current := m.RoundIdentifier().Round
	switch {
	case round.Round > current:
		return futureRound
	case round.Round == current:
		return currentRound
	}
	return priorRound
}

func (m *BlockHeightManager) isWithinFutureRoundDistance(round messages.ConsensusRoundIdentifier) bool {
	return uint64(round.Round) <= uint64(m.RoundIdentifier().Round)+uint64(m.final.Config.MaxFutureRoundDistance)
}
