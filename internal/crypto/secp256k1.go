package crypto

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

const SignatureLength = 65

var secp256k1N = new(uint256.Int).SetBytes(hexutil.MustDecode("0xfffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"))

// SignatureValuesAreValid checks the r, s, v ranges of a recoverable signature.
// See Appendix F "Signing Transactions" of the Yellow Paper.
func SignatureValuesAreValid(v byte, r, s *uint256.Int) bool {
	if r.IsZero() || s.IsZero() {
		return false
	}

	return r.Lt(secp256k1N) && s.Lt(secp256k1N) && (v == 0 || v == 1)
}

func SignatureIsValidBytes(sign []byte) bool {
	if len(sign) != SignatureLength {
		return false
	}

	var r, s uint256.Int
	r.SetBytes(sign[:32])
	s.SetBytes(sign[32:64])

	return SignatureValuesAreValid(sign[64], &r, &s)
}
