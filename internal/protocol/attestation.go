package protocol

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const attestationPrefix = "pifp/attestation/v1"

// AttestationDigest is the message an oracle signs: (project id, proof
// commitment, verdict) under a fixed domain prefix. Both the oracle service
// and the on-chain check derive it from this single definition
func AttestationDigest(projectID uint64, proofCommitment common.Hash, verdict Verdict) common.Hash {
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], projectID)

	data := make([]byte, 0, len(attestationPrefix)+8+common.HashLength+1)
	data = append(data, attestationPrefix...)
	data = append(data, idBytes[:]...)
	data = append(data, proofCommitment.Bytes()...)
	data = append(data, byte(verdict))
	return crypto.Keccak256Hash(data)
}

// RecoverAttestor recovers the signer address of an attestation signature
func RecoverAttestor(digest common.Hash, signature []byte) (common.Address, error) {
	pubKey, err := crypto.SigToPub(digest.Bytes(), signature)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}
