package messages

import (
	"errors"
	"fmt"
	"io"

	"github.com/NilFoundation/ibft/internal/crypto"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

var ErrNilSignedData = errors.New("nil signed data")

// SignedData is a payload together with its author's signature.
// The author is never transmitted: it is recovered from the signature.
type SignedData[P Payload] struct {
	payload   P
	author    common.Address
	signature []byte
}

type signedDataRLP[P Payload] struct {
	Payload   P
	Signature []byte
}

// Sign signs the payload with the key.
func Sign[P Payload](payload P, key crypto.PrivateKey) (*SignedData[P], error) {
	hash, err := signingHash(payload)
	if err != nil {
		return nil, err
	}
	signature, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s: %w", payload.MessageCode(), err)
	}
	return &SignedData[P]{
		payload:   payload,
		author:    crypto.PubkeyToAddress(key),
		signature: signature,
	}, nil
}

// Recover rebuilds signed data from a payload and a signature, recovering its author.
func Recover[P Payload](payload P, signature []byte) (*SignedData[P], error) {
	hash, err := signingHash(payload)
	if err != nil {
		return nil, err
	}
	author, err := crypto.RecoverAddress(hash, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to recover %s author: %w", payload.MessageCode(), err)
	}
	return &SignedData[P]{
		payload:   payload,
		author:    author,
		signature: signature,
	}, nil
}

func signingHash[P Payload](payload P) (common.Hash, error) {
	data, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode %s: %w", payload.MessageCode(), err)
	}
	return crypto.Keccak256Hash([]byte{byte(payload.MessageCode())}, data), nil
}

func (s *SignedData[P]) Payload() P {
	return s.payload
}

func (s *SignedData[P]) Author() common.Address {
	return s.author
}

func (s *SignedData[P]) Signature() []byte {
	return s.signature
}

func (s *SignedData[P]) RoundIdentifier() ConsensusRoundIdentifier {
	return s.payload.RoundIdentifier()
}

func (s *SignedData[P]) MessageCode() MessageCode {
	return s.payload.MessageCode()
}

// Identity is the key used to recognise the same message arriving twice.
func (s *SignedData[P]) Identity() common.Hash {
	return crypto.Keccak256Hash(s.signature)
}

func (s *SignedData[P]) String() string {
	return fmt.Sprintf("%s{round: %s, author: %s}", s.MessageCode(), s.RoundIdentifier(), s.author.Hex())
}

func (s *SignedData[P]) EncodeRLP(w io.Writer) error {
	if s == nil {
		return ErrNilSignedData
	}
	return rlp.Encode(w, &signedDataRLP[P]{Payload: s.payload, Signature: s.signature})
}

func (s *SignedData[P]) DecodeRLP(stream *rlp.Stream) error {
	var dec signedDataRLP[P]
	if err := stream.Decode(&dec); err != nil {
		return err
	}
	recovered, err := Recover(dec.Payload, dec.Signature)
	if err != nil {
		return err
	}
	*s = *recovered
	return nil
}
