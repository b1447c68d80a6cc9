package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidSignature = errors.New("invalid signature")

type PrivateKey = *ecdsa.PrivateKey

func GenerateKey() (PrivateKey, error) {
	return gethcrypto.GenerateKey()
}

func PubkeyToAddress(key PrivateKey) common.Address {
	return gethcrypto.PubkeyToAddress(key.PublicKey)
}

func Keccak256Hash(data ...[]byte) common.Hash {
	return gethcrypto.Keccak256Hash(data...)
}

// Sign produces a 65-byte recoverable signature over the hash.
func Sign(hash common.Hash, key PrivateKey) ([]byte, error) {
	return gethcrypto.Sign(hash[:], key)
}

// RecoverAddress returns the address of the key that produced the signature over the hash.
func RecoverAddress(hash common.Hash, signature []byte) (common.Address, error) {
	if !SignatureIsValidBytes(signature) {
		return common.Address{}, ErrInvalidSignature
	}
	pub, err := gethcrypto.SigToPub(hash[:], signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return gethcrypto.PubkeyToAddress(*pub), nil
}

func PrivateKeyToHex(key PrivateKey) string {
	return common.Bytes2Hex(gethcrypto.FromECDSA(key))
}

func HexToPrivateKey(hexKey string) (PrivateKey, error) {
	return gethcrypto.HexToECDSA(hexKey)
}
