package validation

import (
	"slices"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/consensus/ibft"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

type NewRoundMessageValidator struct {
	validators           []common.Address
	proposerSelector     *ibft.ProposerSelector
	validatorForRound    MessageValidatorForRound
	roundChangeValidator *RoundChangeMessageValidator
	quorum               int
	chainHeight          uint64
	logger               zerolog.Logger
}

func NewNewRoundMessageValidator(
	validators []common.Address,
	proposerSelector *ibft.ProposerSelector,
	validatorForRound MessageValidatorForRound,
	roundChangeValidator *RoundChangeMessageValidator,
	quorum int,
	chainHeight uint64,
	logger zerolog.Logger,
) *NewRoundMessageValidator {
	return &NewRoundMessageValidator{
		validators:           validators,
		proposerSelector:     proposerSelector,
		validatorForRound:    validatorForRound,
		roundChangeValidator: roundChangeValidator,
		quorum:               quorum,
		chainHeight:          chainHeight,
		logger:               logger,
	}
}

func (v *NewRoundMessageValidator) invalid(msg *messages.NewRound, reason string) bool {
	v.logger.Info().
		Stringer(logging.FieldAuthor, msg.Author()).
		Stringer(logging.FieldRound, msg.RoundIdentifier()).
		Msgf("Invalid NewRound message: %s", reason)
	return false
}

func (v *NewRoundMessageValidator) ValidateNewRoundMessage(msg *messages.NewRound) bool {
	payload := msg.Payload()
	root := payload.Round

	if !slices.Contains(v.validators, msg.Author()) {
		return v.invalid(msg, "sender is not a validator")
	}
	if root.Height != v.chainHeight {
		return v.invalid(msg, "not for the current height")
	}
	if msg.Author() != v.proposerSelector.SelectProposerForRound(root) {
		return v.invalid(msg, "not from the round's proposer")
	}
	if root.Round == 0 {
		return v.invalid(msg, "targets round 0")
	}

	proposal := payload.Proposal
	if proposal == nil || payload.RoundChangeCertificate == nil {
		return v.invalid(msg, "incomplete payload")
	}
	if proposal.Author() != msg.Author() {
		return v.invalid(msg, "embedded proposal is not from the sender")
	}
	if proposal.RoundIdentifier() != root {
		return v.invalid(msg, "embedded proposal is for another round")
	}
	if !v.validatorForRound(root).AddSignedProposalPayload(proposal) {
		return v.invalid(msg, "invalid embedded proposal")
	}
	if !v.validateRoundChangeCertificate(msg, root, payload.RoundChangeCertificate) {
		return false
	}
	return v.proposalMatchesLatestPreparedCertificate(msg)
}

func (v *NewRoundMessageValidator) validateRoundChangeCertificate(
	msg *messages.NewRound, root messages.ConsensusRoundIdentifier, rcc *messages.RoundChangeCertificate,
) bool {
	if len(rcc.RoundChanges) < v.quorum {
		return v.invalid(msg, "round change certificate has no quorum")
	}

	authors := make(map[common.Address]struct{}, len(rcc.RoundChanges))
	for _, rc := range rcc.RoundChanges {
		if rc.RoundIdentifier() != root {
			return v.invalid(msg, "round change certificate targets another round")
		}
		if _, ok := authors[rc.Author()]; ok {
			return v.invalid(msg, "round change certificate has duplicate senders")
		}
		authors[rc.Author()] = struct{}{}

		if !v.roundChangeValidator.ValidateMessage(rc) {
			return v.invalid(msg, "round change certificate contains an invalid round change")
		}
	}
	return true
}

// A block prepared in an earlier round must be re-proposed unchanged apart from its round.
func (v *NewRoundMessageValidator) proposalMatchesLatestPreparedCertificate(msg *messages.NewRound) bool {
	payload := msg.Payload()
	latest := payload.RoundChangeCertificate.LatestPreparedCertificate()
	if latest == nil {
		return true
	}

	withPreparedRound, err := types.ReplaceRound(payload.Proposal.Payload().Block, latest.Round().Round)
	if err != nil {
		return v.invalid(msg, err.Error())
	}
	if withPreparedRound.SealHash() != latest.Block().SealHash() {
		return v.invalid(msg, "proposal does not re-propose the latest prepared block")
	}
	return true
}
