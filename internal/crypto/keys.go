package crypto

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"
)

var ErrAddressMismatch = errors.New("address does not match the private key")

type dumpedNodeKey struct {
	PrivateKey hexutil.Bytes  `yaml:"privateKey"`
	Address    common.Address `yaml:"address"`
}

// LoadOrGenerateNodeKey loads the validator key from the file if it exists,
// otherwise generates a new key and saves it to the file.
// If the file exists but the key is invalid, an error is returned.
func LoadOrGenerateNodeKey(fileName string) (PrivateKey, error) {
	key, err := LoadNodeKey(fileName)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	key, err = GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := DumpNodeKey(fileName, key); err != nil {
		return nil, err
	}
	return key, nil
}

func LoadNodeKey(fileName string) (PrivateKey, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	var dumped dumpedNodeKey
	if err := yaml.Unmarshal(data, &dumped); err != nil {
		return nil, fmt.Errorf("can't parse node key %s: %w", fileName, err)
	}

	key, err := gethcrypto.ToECDSA(dumped.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("can't parse node key %s: %w", fileName, err)
	}
	if PubkeyToAddress(key) != dumped.Address {
		return nil, ErrAddressMismatch
	}
	return key, nil
}

func DumpNodeKey(fileName string, key PrivateKey) error {
	data, err := yaml.Marshal(dumpedNodeKey{
		PrivateKey: gethcrypto.FromECDSA(key),
		Address:    PubkeyToAddress(key),
	})
	if err != nil {
		return err
	}
	return os.WriteFile(fileName, data, 0o600)
}
