package protocol

import (
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pifp-labs/funding-node/internal/commitment"
	"github.com/pifp-labs/funding-node/internal/lib"
	"github.com/stretchr/testify/require"
)

var (
	adminAddr   = common.HexToAddress("0xAd31111111111111111111111111111111111111")
	creatorAddr = common.HexToAddress("0xC0e1111111111111111111111111111111111111")
	donor1Addr  = common.HexToAddress("0xD011111111111111111111111111111111111111")
	donor2Addr  = common.HexToAddress("0xD021111111111111111111111111111111111111")
	schemaHash  = crypto.Keccak256Hash([]byte("impact-report-v1"))
)

type testFixture struct {
	chain     *Chain
	bank      *Bank
	oracleKey *ecdsa.PrivateKey
	oracle    common.Address
}

func newTestFixture(t *testing.T, feeBps int, feeRecipient common.Address) *testFixture {
	t.Helper()

	oracleKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	oracleAddr := crypto.PubkeyToAddress(oracleKey.PublicKey)

	bank := NewBank()
	chain, err := NewChain(Params{
		Admin:        adminAddr,
		Oracles:      []common.Address{oracleAddr},
		FeeBps:       feeBps,
		FeeRecipient: feeRecipient,
	}, bank, lib.NewTestLogger())
	require.NoError(t, err)

	for _, addr := range []common.Address{donor1Addr, donor2Addr} {
		require.NoError(t, bank.Mint(addr, big.NewInt(1_000_000)))
	}

	return &testFixture{
		chain:     chain,
		bank:      bank,
		oracleKey: oracleKey,
		oracle:    oracleAddr,
	}
}

func (f *testFixture) register(t *testing.T, target int64, deadline time.Time) Project {
	t.Helper()
	project, err := f.chain.Register(creatorAddr, common.Address{}, big.NewInt(target), deadline, schemaHash)
	require.NoError(t, err)
	return project
}

func (f *testFixture) deposit(t *testing.T, projectID uint64, donor common.Address, amount int64) (Donation, commitment.Nonce) {
	t.Helper()

	nonce, err := commitment.NewNonce()
	require.NoError(t, err)

	c := commitment.Commit(nonce, donor, commitment.AmountPayload(big.NewInt(amount)))
	donation, err := f.chain.Deposit(projectID, donor, big.NewInt(amount), c)
	require.NoError(t, err)
	return donation, nonce
}

func (f *testFixture) submitProof(t *testing.T, projectID uint64, payload []byte) (ProofSubmission, commitment.Nonce) {
	t.Helper()

	nonce, err := commitment.NewNonce()
	require.NoError(t, err)

	c := commitment.Commit(nonce, creatorAddr, commitment.ProofPayload(payload))
	submission, err := f.chain.SubmitProof(projectID, creatorAddr, c)
	require.NoError(t, err)
	return submission, nonce
}

func (f *testFixture) sign(t *testing.T, key *ecdsa.PrivateKey, projectID uint64, proofCommitment common.Hash, verdict Verdict) []byte {
	t.Helper()

	digest := AttestationDigest(projectID, proofCommitment, verdict)
	sig, err := crypto.Sign(digest.Bytes(), key)
	require.NoError(t, err)
	return sig
}

// timeTravel shifts the chain clock forward
func (f *testFixture) timeTravel(d time.Duration) {
	now := f.chain.now
	f.chain.now = func() time.Time {
		return now().Add(d)
	}
}

func deadlineIn(d time.Duration) time.Time {
	return time.Now().Add(d)
}
