package validation

import (
	"slices"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// MessageValidatorForRound builds a fresh MessageValidator for a round of the current height.
type MessageValidatorForRound func(round messages.ConsensusRoundIdentifier) *MessageValidator

type RoundChangeMessageValidator struct {
	validatorForRound      MessageValidatorForRound
	validators             []common.Address
	minimumPrepareMessages int
	chainHeight            uint64
	logger                 zerolog.Logger
}

func NewRoundChangeMessageValidator(
	validatorForRound MessageValidatorForRound,
	validators []common.Address,
	minimumPrepareMessages int,
	chainHeight uint64,
	logger zerolog.Logger,
) *RoundChangeMessageValidator {
	return &RoundChangeMessageValidator{
		validatorForRound:      validatorForRound,
		validators:             validators,
		minimumPrepareMessages: minimumPrepareMessages,
		chainHeight:            chainHeight,
		logger:                 logger,
	}
}

func (v *RoundChangeMessageValidator) invalid(msg *messages.RoundChange, reason string) bool {
	v.logger.Info().
		Stringer(logging.FieldAuthor, msg.Author()).
		Stringer(logging.FieldRound, msg.RoundIdentifier()).
		Msgf("Invalid RoundChange message: %s", reason)
	return false
}

func (v *RoundChangeMessageValidator) ValidateMessage(msg *messages.RoundChange) bool {
	if !slices.Contains(v.validators, msg.Author()) {
		return v.invalid(msg, "sender is not a validator")
	}

	target := msg.RoundIdentifier()
	if target.Height != v.chainHeight {
		return v.invalid(msg, "not for the current height")
	}

	pc := msg.Payload().PreparedCertificate
	if pc == nil {
		return true
	}
	if pc.Proposal == nil {
		return v.invalid(msg, "prepared certificate without a proposal")
	}
	if pc.Round().Height != target.Height || pc.Round().Round >= target.Round {
		return v.invalid(msg, "prepared certificate is not from an earlier round")
	}
	if !v.validateCertificate(pc) {
		return v.invalid(msg, "invalid prepared certificate")
	}
	return true
}

func (v *RoundChangeMessageValidator) validateCertificate(pc *messages.PreparedCertificate) bool {
	validator := v.validatorForRound(pc.Round())
	if !validator.AddSignedProposalPayload(pc.Proposal) {
		return false
	}
	if len(pc.Prepares) < v.minimumPrepareMessages {
		return false
	}

	authors := make(map[common.Address]struct{}, len(pc.Prepares))
	for _, prepare := range pc.Prepares {
		if _, ok := authors[prepare.Author()]; ok {
			return false
		}
		authors[prepare.Author()] = struct{}{}

		if !validator.ValidatePrepareMessage(prepare) {
			return false
		}
	}
	return true
}
