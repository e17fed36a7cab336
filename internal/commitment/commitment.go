// Package commitment implements the hiding/binding commitments used for
// donor anonymity and for proof submissions. A commitment is
// keccak256(nonce || identity || payload); revealing the nonce lets the
// chain re-derive and compare it.
package commitment

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const NonceSize = 32

var ErrNonceSource = errors.New("cannot read random nonce")

type Nonce [NonceSize]byte

// NewNonce draws a fresh random nonce. The nonce is the secret: whoever can
// present it (together with identity and payload) owns the commitment
func NewNonce() (Nonce, error) {
	var n Nonce
	if _, err := rand.Read(n[:]); err != nil {
		return Nonce{}, ErrNonceSource
	}
	return n, nil
}

func NonceFromHex(s string) (Nonce, error) {
	var n Nonce
	b, err := hexutil.Decode(s)
	if err != nil {
		return Nonce{}, err
	}
	if len(b) != NonceSize {
		return Nonce{}, errors.New("nonce must be 32 bytes")
	}
	copy(n[:], b)
	return n, nil
}

func (n Nonce) Hex() string {
	return hexutil.Encode(n[:])
}

// Commit produces the commitment hash over the nonce, the committing
// identity and the payload bytes
func Commit(nonce Nonce, identity common.Address, payload []byte) common.Hash {
	data := make([]byte, 0, NonceSize+common.AddressLength+len(payload))
	data = append(data, nonce[:]...)
	data = append(data, identity.Bytes()...)
	data = append(data, payload...)
	return crypto.Keccak256Hash(data)
}

// Verify recomputes the commitment and compares in constant time
func Verify(c common.Hash, nonce Nonce, identity common.Address, payload []byte) bool {
	expected := Commit(nonce, identity, payload)
	return subtle.ConstantTimeCompare(c.Bytes(), expected.Bytes()) == 1
}

// AmountPayload encodes a donation amount canonically as 32 big-endian
// bytes, so the same amount always commits to the same bytes
func AmountPayload(amount *big.Int) []byte {
	return common.LeftPadBytes(amount.Bytes(), 32)
}

// ProofPayload hashes the raw proof media so commitments stay fixed-size
// regardless of the payload. Only this digest ever reaches the chain
func ProofPayload(raw []byte) []byte {
	return crypto.Keccak256(raw)
}
