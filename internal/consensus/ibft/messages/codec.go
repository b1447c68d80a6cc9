package messages

import (
	"errors"
	"fmt"

	"github.com/NilFoundation/ibft/internal/crypto"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	ErrUnknownMessageCode = errors.New("unknown message code")
	ErrUnexpectedCode     = errors.New("unexpected message code")
)

// Message is the wire envelope of a signed consensus payload.
type Message struct {
	Code MessageCode
	Data []byte
}

func NewMessage[P Payload](signed *SignedData[P]) (*Message, error) {
	data, err := rlp.EncodeToBytes(signed)
	if err != nil {
		return nil, err
	}
	return &Message{Code: signed.MessageCode(), Data: data}, nil
}

// Identity distinguishes messages on the wire. Equal signed data has equal identities.
func (m *Message) Identity() common.Hash {
	return crypto.Keccak256Hash(m.Data)
}

func (m *Message) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(m)
}

func DecodeMessage(data []byte) (*Message, error) {
	var m Message
	if err := rlp.DecodeBytes(data, &m); err != nil {
		return nil, err
	}
	if m.Code > NewRoundCode {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageCode, m.Code)
	}
	return &m, nil
}

// Decode decodes the envelope contents as signed data with payload P.
func Decode[P Payload](m *Message) (*SignedData[P], error) {
	var expected P
	if m.Code != expected.MessageCode() {
		return nil, fmt.Errorf("%w: %s, expected %s", ErrUnexpectedCode, m.Code, expected.MessageCode())
	}
	var signed SignedData[P]
	if err := rlp.DecodeBytes(m.Data, &signed); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", m.Code, err)
	}
	return &signed, nil
}
