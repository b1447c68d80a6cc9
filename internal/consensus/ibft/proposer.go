package ibft

import (
	"slices"

	"github.com/NilFoundation/ibft/common/check"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/ethereum/go-ethereum/common"
)

// ValidatorProvider returns the validators of the height under consensus in canonical order.
type ValidatorProvider interface {
	Validators() []common.Address
}

// ValidatorList is a fixed validator set, used to pin the validators of one height.
type ValidatorList []common.Address

func (l ValidatorList) Validators() []common.Address {
	return l
}

func (l ValidatorList) Contains(address common.Address) bool {
	return slices.Contains(l, address)
}

type ProposerSelector struct {
	validators ValidatorProvider
}

func NewProposerSelector(validators ValidatorProvider) *ProposerSelector {
	return &ProposerSelector{validators: validators}
}

func (s *ProposerSelector) SelectProposerForRound(round messages.ConsensusRoundIdentifier) common.Address {
	return SelectProposer(round, s.validators.Validators())
}

// SelectProposer picks validators[(height + round) mod N].
func SelectProposer(round messages.ConsensusRoundIdentifier, validators []common.Address) common.Address {
	check.PanicIfNotf(len(validators) > 0, "no validators for round %s", round)

	n := uint64(len(validators))
	index := (round.Height%n + uint64(round.Round)%n) % n
	return validators[index]
}
