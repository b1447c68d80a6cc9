package statemachine

import (
	"context"
	"fmt"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/blockchain"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/blockcreation"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/rs/zerolog"
)

// IbftRound drives one round: it proposes, prepares, commits and imports the block.
type IbftRound struct {
	state  *RoundState
	final  *FinalState
	height *heightContext
	logger zerolog.Logger
}

func newIbftRound(state *RoundState, final *FinalState, height *heightContext, logger zerolog.Logger) *IbftRound {
	return &IbftRound{
		state:  state,
		final:  final,
		height: height,
		logger: logger.With().Uint32(logging.FieldRound, state.RoundIdentifier().Round).Logger(),
	}
}

func (r *IbftRound) RoundIdentifier() messages.ConsensusRoundIdentifier {
	return r.state.RoundIdentifier()
}

// CreateAndSendProposal proposes a new block for the round.
func (r *IbftRound) CreateAndSendProposal(ctx context.Context, timestamp uint64) error {
	block, err := r.final.BlockCreator.CreateBlock(r.height.parent, r.RoundIdentifier(), timestamp)
	if err != nil {
		return fmt.Errorf("failed to create block for round %s: %w", r.RoundIdentifier(), err)
	}

	r.logger.Debug().
		Stringer(logging.FieldBlockHash, block.Hash()).
		Msg("Creating proposed block")
	return r.propose(ctx, block, nil)
}

// StartRoundWith proposes after a round change. The block of the latest prepared
// certificate in the round change certificate is proposed again if there is one.
func (r *IbftRound) StartRoundWith(
	ctx context.Context, rcc *messages.RoundChangeCertificate, timestamp uint64,
) error {
	var block *types.Block
	if pc := rcc.LatestPreparedCertificate(); pc != nil {
		var err error
		if block, err = types.ReplaceRound(pc.Block(), r.RoundIdentifier().Round); err != nil {
			return fmt.Errorf("failed to re-propose block of round %s: %w", pc.Round(), err)
		}
		r.logger.Debug().
			Stringer(logging.FieldBlockHash, block.Hash()).
			Uint32("preparedRound", pc.Round().Round).
			Msg("Re-proposing block of the latest prepared certificate")
	} else {
		var err error
		if block, err = r.final.BlockCreator.CreateBlock(r.height.parent, r.RoundIdentifier(), timestamp); err != nil {
			return fmt.Errorf("failed to create block for round %s: %w", r.RoundIdentifier(), err)
		}
		r.logger.Debug().
			Stringer(logging.FieldBlockHash, block.Hash()).
			Msg("No prepared certificate, creating a new block")
	}
	return r.propose(ctx, block, rcc)
}

func (r *IbftRound) propose(ctx context.Context, block *types.Block, rcc *messages.RoundChangeCertificate) error {
	factory := r.final.MessageFactory
	proposal, err := factory.CreateProposal(r.RoundIdentifier(), block)
	if err != nil {
		return err
	}

	if rcc == nil {
		r.final.Transmitter.MulticastProposal(ctx, proposal)
	} else {
		newRound, err := factory.CreateNewRound(r.RoundIdentifier(), rcc, proposal)
		if err != nil {
			return err
		}
		r.final.Transmitter.MulticastNewRound(ctx, newRound)
	}

	return r.updateStateWithProposal(ctx, proposal)
}

// HandleProposal accepts a proposal sent outside of a NewRound, which is only
// legal in the first round of a height.
func (r *IbftRound) HandleProposal(ctx context.Context, msg *messages.Proposal) error {
	if r.RoundIdentifier().Round != 0 {
		r.logger.Info().
			Stringer(logging.FieldAuthor, msg.Author()).
			Msg("Illegally received a Proposal message when not in round 0")
		return nil
	}
	return r.updateStateWithProposal(ctx, msg)
}

// HandleProposalFromNewRound accepts the proposal of a validated NewRound message.
func (r *IbftRound) HandleProposalFromNewRound(ctx context.Context, msg *messages.NewRound) error {
	return r.updateStateWithProposal(ctx, msg.Payload().Proposal)
}

func (r *IbftRound) updateStateWithProposal(ctx context.Context, msg *messages.Proposal) error {
	wasPrepared, wasCommitted := r.state.IsPrepared(), r.state.IsCommitted()

	if !r.state.SetProposal(msg) {
		return nil
	}
	block := msg.Payload().Block
	r.logger.Debug().
		Stringer(logging.FieldAuthor, msg.Author()).
		Stringer(logging.FieldBlockHash, block.Hash()).
		Msg("Accepted proposal")

	if r.height.isValidator && msg.Author() != r.final.LocalAddress() {
		prepare, err := r.final.MessageFactory.CreatePrepare(r.RoundIdentifier(), block.SealHash())
		if err != nil {
			return err
		}
		r.final.Transmitter.MulticastPrepare(ctx, prepare)
		r.state.AddPrepare(prepare)
	}

	return r.updateState(ctx, wasPrepared, wasCommitted)
}

func (r *IbftRound) HandlePrepare(ctx context.Context, msg *messages.Prepare) error {
	wasPrepared, wasCommitted := r.state.IsPrepared(), r.state.IsCommitted()
	r.state.AddPrepare(msg)
	return r.updateState(ctx, wasPrepared, wasCommitted)
}

func (r *IbftRound) HandleCommit(ctx context.Context, msg *messages.Commit) error {
	wasPrepared, wasCommitted := r.state.IsPrepared(), r.state.IsCommitted()
	r.state.AddCommit(msg)
	return r.updateState(ctx, wasPrepared, wasCommitted)
}

// CreatePreparedCertificate is called once, when the round expires.
func (r *IbftRound) CreatePreparedCertificate() *messages.PreparedCertificate {
	return r.state.ConstructPreparedCertificate()
}

// updateState reacts to the round becoming prepared or committed. The local
// commit sent on prepare may itself complete the commit quorum.
func (r *IbftRound) updateState(ctx context.Context, wasPrepared, wasCommitted bool) error {
	if !wasPrepared && r.state.IsPrepared() {
		if err := r.peerIsPrepared(ctx); err != nil {
			return err
		}
	}
	if !wasCommitted && r.state.IsCommitted() {
		return r.importBlock(ctx)
	}
	return nil
}

// peerIsPrepared sends the local commit once a quorum prepared the proposal.
func (r *IbftRound) peerIsPrepared(ctx context.Context) error {
	r.logger.Debug().Int(logging.FieldCount, r.state.PrepareCount()).Msg("Round is prepared")
	if !r.height.isValidator {
		return nil
	}

	factory := r.final.MessageFactory
	digest := r.state.ProposedBlock().SealHash()
	seal, err := factory.CreateCommitSeal(digest)
	if err != nil {
		return err
	}
	commit, err := factory.CreateCommit(r.RoundIdentifier(), digest, seal)
	if err != nil {
		return err
	}
	r.final.Transmitter.MulticastCommit(ctx, commit)
	r.state.AddCommit(commit)
	return nil
}

func (r *IbftRound) importBlock(ctx context.Context) error {
	block, err := types.SealBlock(r.state.ProposedBlock(), r.state.CommitSeals())
	if err != nil {
		return err
	}
	receipts := blockcreation.ReceiptsFor(block)

	r.logger.Info().
		Uint64(logging.FieldBlockNumber, block.Number()).
		Stringer(logging.FieldBlockHash, block.Hash()).
		Int(logging.FieldCount, len(block.Body.Transactions)).
		Msg("Importing committed block")

	if err := r.final.BlockImporter.AppendBlock(ctx, block, receipts); err != nil {
		return fmt.Errorf("failed to import committed block %d: %w", block.Number(), err)
	}
	r.final.Metrics.BlockCommitted(ctx, r.RoundIdentifier())

	event := blockchain.BlockAddedEvent{Block: block, Receipts: receipts}
	for _, observer := range r.final.Observers {
		observer(event)
	}
	return nil
}
