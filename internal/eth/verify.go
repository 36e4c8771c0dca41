// Package eth wraps the go-ethereum primitives this service needs: EIP-191
// personal_sign verification by public key recovery, signing for tests and
// tooling, and EIP-55 address normalization.
package eth

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the wire length of a personal_sign signature:
// 32-byte R, 32-byte S, one recovery byte.
const SignatureLength = 65

// PersonalSignVerifier verifies EIP-191 personal_sign signatures by
// recovering the signer's public key. The zero value is ready to use.
type PersonalSignVerifier struct{}

// Verify reports whether signature was produced over exactly message by the
// key behind address. The address comparison is case-insensitive. Malformed
// input of any kind verifies as false; it never panics and never errors.
func (PersonalSignVerifier) Verify(message []byte, signature string, address string) bool {
	if !common.IsHexAddress(address) {
		return false
	}
	sig, err := hexutil.Decode(signature)
	if err != nil || len(sig) != SignatureLength {
		return false
	}
	// Wallets emit the recovery byte as 27/28; secp256k1 recovery wants 0/1.
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return false
	}
	pub, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == common.HexToAddress(address)
}

// SignPersonal signs message with key in the personal_sign format wallets
// produce: EIP-191 prefixed digest, recovery byte offset to 27, hex encoded.
func SignPersonal(message []byte, key *ecdsa.PrivateKey) (string, error) {
	sig, err := crypto.Sign(accounts.TextHash(message), key)
	if err != nil {
		return "", fmt.Errorf("signing message: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

// ChecksumAddress validates that address is a well-formed hex account
// identifier and returns its EIP-55 checksummed form.
func ChecksumAddress(address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("not a hex address: %q", address)
	}
	return common.HexToAddress(address).Hex(), nil
}
