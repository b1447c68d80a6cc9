package ibftevent

import (
	"fmt"

	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/libp2p/go-libp2p/core/peer"
)

type Type int

const (
	NewChainHeadType Type = iota
	RoundExpiryType
	BlockTimerExpiryType
	MessageReceivedType
)

func (t Type) String() string {
	switch t {
	case NewChainHeadType:
		return "NewChainHead"
	case RoundExpiryType:
		return "RoundExpiry"
	case BlockTimerExpiryType:
		return "BlockTimerExpiry"
	case MessageReceivedType:
		return "MessageReceived"
	}
	return fmt.Sprintf("Unknown(%d)", int(t))
}

// Event is anything the consensus event loop reacts to.
type Event interface {
	Type() Type
}

// NewChainHead reports a block appended to the local chain.
type NewChainHead struct {
	Header *types.Header
}

func (NewChainHead) Type() Type { return NewChainHeadType }

type RoundExpiry struct {
	Round messages.ConsensusRoundIdentifier
}

func (RoundExpiry) Type() Type { return RoundExpiryType }

type BlockTimerExpiry struct {
	Round messages.ConsensusRoundIdentifier
}

func (BlockTimerExpiry) Type() Type { return BlockTimerExpiryType }

// MessageReceived carries a consensus message from the network.
// From is empty for messages that did not come from a peer.
type MessageReceived struct {
	Message *messages.Message
	From    peer.ID
}

func (MessageReceived) Type() Type { return MessageReceivedType }
