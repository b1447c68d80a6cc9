package network

import (
	"crypto/rand"
	"fmt"

	"github.com/NilFoundation/ibft/internal/crypto"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	libp2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	pb "github.com/libp2p/go-libp2p/core/crypto/pb"
	"github.com/libp2p/go-libp2p/core/peer"
)

type PrivateKey = libp2pcrypto.PrivKey

// PrivateKeyFromNodeKey reuses the validator key as the libp2p identity,
// so a peer id always belongs to exactly one validator address.
func PrivateKeyFromNodeKey(key crypto.PrivateKey) (PrivateKey, error) {
	return libp2pcrypto.UnmarshalSecp256k1PrivateKey(gethcrypto.FromECDSA(key))
}

func GeneratePrivateKey() (PrivateKey, error) {
	res, _, err := libp2pcrypto.GenerateSecp256k1Key(rand.Reader)
	return res, err
}

func PeerIDFromPrivateKey(key PrivateKey) (PeerID, error) {
	return peer.IDFromPrivateKey(key)
}

func PeerIDFromNodeKey(key crypto.PrivateKey) (PeerID, error) {
	privateKey, err := PrivateKeyFromNodeKey(key)
	if err != nil {
		return "", err
	}
	return PeerIDFromPrivateKey(privateKey)
}

// AddressFromPeerID returns the validator address of a peer whose identity is a node key.
func AddressFromPeerID(id PeerID) (common.Address, error) {
	pub, err := id.ExtractPublicKey()
	if err != nil {
		return common.Address{}, err
	}
	if pub.Type() != pb.KeyType_Secp256k1 {
		return common.Address{}, fmt.Errorf("%w: %s", ErrUnexpectedKeyType, pub.Type())
	}
	raw, err := pub.Raw()
	if err != nil {
		return common.Address{}, err
	}
	ecdsaPub, err := gethcrypto.DecompressPubkey(raw)
	if err != nil {
		return common.Address{}, err
	}
	return gethcrypto.PubkeyToAddress(*ecdsaPub), nil
}
