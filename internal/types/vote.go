package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type VoteType uint8

const (
	VoteDrop VoteType = 0x00
	VoteAdd  VoteType = 0xff
)

func (t VoteType) String() string {
	switch t {
	case VoteAdd:
		return "add"
	case VoteDrop:
		return "drop"
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

func (t VoteType) Valid() bool {
	return t == VoteAdd || t == VoteDrop
}

// Vote is an attestation, embedded by the block proposer, to add or remove a validator.
type Vote struct {
	Recipient common.Address
	Type      VoteType
}

func (v *Vote) String() string {
	return fmt.Sprintf("%s %s", v.Type, v.Recipient.Hex())
}
