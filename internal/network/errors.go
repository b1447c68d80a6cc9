package network

import "errors"

var (
	// ErrNetworkDisabled is returned when no listen port is configured.
	ErrNetworkDisabled = errors.New("network is disabled in config")
	// ErrPrivateKeyMissing is returned when the private key is missing in the config.
	ErrPrivateKeyMissing = errors.New("private key is missing in config")
	// ErrUnexpectedKeyType is returned for peer identities that are not secp256k1 keys.
	ErrUnexpectedKeyType = errors.New("unexpected peer key type")
)
