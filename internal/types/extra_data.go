package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

const ExtraVanityLength = 32

var ErrInvalidExtraData = errors.New("invalid extra data")

// ExtraData is the consensus-specific content of Header.Extra.
type ExtraData struct {
	Vanity     [ExtraVanityLength]byte
	Validators []common.Address
	Vote       *Vote `rlp:"nil"`
	Round      uint32
	Seals      [][]byte
}

func DecodeExtraData(data []byte) (*ExtraData, error) {
	var extra ExtraData
	if err := rlp.DecodeBytes(data, &extra); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExtraData, err)
	}
	if extra.Vote != nil && !extra.Vote.Type.Valid() {
		return nil, fmt.Errorf("%w: vote type %d", ErrInvalidExtraData, extra.Vote.Type)
	}
	return &extra, nil
}

func (e *ExtraData) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(e)
}

func (e *ExtraData) Copy() *ExtraData {
	cpy := *e
	cpy.Validators = append([]common.Address(nil), e.Validators...)
	if e.Vote != nil {
		vote := *e.Vote
		cpy.Vote = &vote
	}
	cpy.Seals = make([][]byte, len(e.Seals))
	for i, seal := range e.Seals {
		cpy.Seals[i] = common.CopyBytes(seal)
	}
	return &cpy
}

func (e *ExtraData) String() string {
	return fmt.Sprintf("ExtraData{validators: %d, vote: %v, round: %d, seals: %d}",
		len(e.Validators), e.Vote, e.Round, len(e.Seals))
}
