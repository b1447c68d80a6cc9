package validation

import (
	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/consensus/ibft"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/rs/zerolog"
)

type MessageValidatorFactory struct {
	proposerSelector *ibft.ProposerSelector
	validators       ibft.ValidatorProvider
	blockValidator   BlockValidator
	logger           zerolog.Logger
}

func NewMessageValidatorFactory(
	proposerSelector *ibft.ProposerSelector,
	validators ibft.ValidatorProvider,
	blockValidator BlockValidator,
) *MessageValidatorFactory {
	return &MessageValidatorFactory{
		proposerSelector: proposerSelector,
		validators:       validators,
		blockValidator:   blockValidator,
		logger:           logging.NewLogger("ibft-validation"),
	}
}

func (f *MessageValidatorFactory) CreateMessageValidator(
	round messages.ConsensusRoundIdentifier, parent *types.Header,
) *MessageValidator {
	return NewMessageValidator(
		round,
		f.validators.Validators(),
		f.proposerSelector.SelectProposerForRound(round),
		parent,
		f.blockValidator,
		f.logger,
	)
}

func (f *MessageValidatorFactory) CreateRoundChangeMessageValidator(parent *types.Header) *RoundChangeMessageValidator {
	validators := f.validators.Validators()
	return NewRoundChangeMessageValidator(
		func(round messages.ConsensusRoundIdentifier) *MessageValidator {
			return f.CreateMessageValidator(round, parent)
		},
		validators,
		ibft.PrepareMessageCountForQuorum(ibft.CalculateRequiredValidatorQuorum(len(validators))),
		parent.Number+1,
		f.logger,
	)
}

func (f *MessageValidatorFactory) CreateNewRoundMessageValidator(parent *types.Header) *NewRoundMessageValidator {
	validators := f.validators.Validators()
	return NewNewRoundMessageValidator(
		validators,
		f.proposerSelector,
		func(round messages.ConsensusRoundIdentifier) *MessageValidator {
			return f.CreateMessageValidator(round, parent)
		},
		f.CreateRoundChangeMessageValidator(parent),
		ibft.CalculateRequiredValidatorQuorum(len(validators)),
		parent.Number+1,
		f.logger,
	)
}
