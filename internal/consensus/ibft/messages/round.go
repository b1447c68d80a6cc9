package messages

import "fmt"

// ConsensusRoundIdentifier addresses one consensus attempt: a round at a chain height.
type ConsensusRoundIdentifier struct {
	Height uint64
	Round  uint32
}

func NewRoundIdentifier(height uint64, round uint32) ConsensusRoundIdentifier {
	return ConsensusRoundIdentifier{Height: height, Round: round}
}

// Cmp orders identifiers by height, then round.
func (r ConsensusRoundIdentifier) Cmp(other ConsensusRoundIdentifier) int {
	switch {
	case r.Height < other.Height:
		return -1
	case r.Height > other.Height:
		return 1
	case r.Round < other.Round:
		return -1
	case r.Round > other.Round:
		return 1
	}
	return 0
}

func (r ConsensusRoundIdentifier) Less(other ConsensusRoundIdentifier) bool {
	return r.Cmp(other) < 0
}

func (r ConsensusRoundIdentifier) NextRound() ConsensusRoundIdentifier {
	return ConsensusRoundIdentifier{Height: r.Height, Round: r.Round + 1}
}

func (r ConsensusRoundIdentifier) String() string {
	return fmt.Sprintf("%d/%d", r.Height, r.Round)
}
