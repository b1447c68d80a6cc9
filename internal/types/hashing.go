package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

func rlpHash(x any) common.Hash {
	data, err := rlp.EncodeToBytes(x)
	if err != nil {
		// All hashed values are plain structs of RLP-friendly fields.
		panic(err)
	}
	return crypto.Keccak256Hash(data)
}
