package protocol

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pifp-labs/funding-node/internal/commitment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositAccumulatesFunded(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))

	f.deposit(t, p.ID, donor1Addr, 600)
	f.deposit(t, p.ID, donor2Addr, 300)

	got, err := f.chain.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "900", got.Funded.String())
	assert.Equal(t, StatusFunding, got.Status)

	donations, err := f.chain.GetDonations(p.ID)
	require.NoError(t, err)
	require.Len(t, donations, 2)

	sum := new(big.Int)
	for _, d := range donations {
		sum.Add(sum, d.Amount)
	}
	assert.Equal(t, got.Funded.String(), sum.String())
}

func TestDepositMovesEscrowBalance(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))

	before := f.bank.Balance(donor1Addr)
	f.deposit(t, p.ID, donor1Addr, 400)

	assert.Equal(t, new(big.Int).Sub(before, big.NewInt(400)).String(), f.bank.Balance(donor1Addr).String())
	assert.Equal(t, "400", f.bank.Balance(EscrowAddress).String())
}

func TestDepositExactTargetActivates(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))

	f.deposit(t, p.ID, donor1Addr, 1000)

	got, err := f.chain.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
}

func TestDepositOverTargetRejected(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))
	f.deposit(t, p.ID, donor1Addr, 900)

	nonce, err := commitment.NewNonce()
	require.NoError(t, err)
	c := commitment.Commit(nonce, donor2Addr, commitment.AmountPayload(big.NewInt(200)))

	_, err = f.chain.Deposit(p.ID, donor2Addr, big.NewInt(200), c)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// the rejected deposit left no trace
	got, gerr := f.chain.GetProject(p.ID)
	require.NoError(t, gerr)
	assert.Equal(t, "900", got.Funded.String())
	assert.Equal(t, "1000000", f.bank.Balance(donor2Addr).String())
}

func TestDepositNonPositiveAmount(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))

	_, err := f.chain.Deposit(p.ID, donor1Addr, big.NewInt(0), schemaHash)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.chain.Deposit(p.ID, donor1Addr, big.NewInt(-1), schemaHash)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestDepositRequiresCommitment(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))

	_, err := f.chain.Deposit(p.ID, donor1Addr, big.NewInt(100), common.Hash{})
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestDepositInsufficientFunds(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 5_000_000, deadlineIn(time.Hour))

	nonce, err := commitment.NewNonce()
	require.NoError(t, err)
	c := commitment.Commit(nonce, donor1Addr, commitment.AmountPayload(big.NewInt(2_000_000)))

	_, err = f.chain.Deposit(p.ID, donor1Addr, big.NewInt(2_000_000), c)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestRefundHappyPath(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))
	donation, nonce := f.deposit(t, p.ID, donor1Addr, 300)

	f.timeTravel(2 * time.Hour)
	_, err := f.chain.CheckExpiry(p.ID)
	require.NoError(t, err)

	amount, err := f.chain.Refund(p.ID, donation.ID, donor1Addr, nonce)
	require.NoError(t, err)
	assert.Equal(t, "300", amount.String())
	assert.Equal(t, "1000000", f.bank.Balance(donor1Addr).String())
	assert.Equal(t, "0", f.bank.Balance(EscrowAddress).String())

	got, err := f.chain.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunding, got.Status)
}

func TestRefundDoubleClaim(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))
	donation, nonce := f.deposit(t, p.ID, donor1Addr, 300)

	f.timeTravel(2 * time.Hour)
	_, err := f.chain.CheckExpiry(p.ID)
	require.NoError(t, err)

	_, err = f.chain.Refund(p.ID, donation.ID, donor1Addr, nonce)
	require.NoError(t, err)

	_, err = f.chain.Refund(p.ID, donation.ID, donor1Addr, nonce)
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestRefundWrongSecret(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))
	donation, _ := f.deposit(t, p.ID, donor1Addr, 300)

	f.timeTravel(2 * time.Hour)
	_, err := f.chain.CheckExpiry(p.ID)
	require.NoError(t, err)

	wrongNonce, err := commitment.NewNonce()
	require.NoError(t, err)

	_, err = f.chain.Refund(p.ID, donation.ID, donor1Addr, wrongNonce)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefundWrongCaller(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))
	donation, nonce := f.deposit(t, p.ID, donor1Addr, 300)

	f.timeTravel(2 * time.Hour)
	_, err := f.chain.CheckExpiry(p.ID)
	require.NoError(t, err)

	// the right secret bound to the wrong identity does not open
	_, err = f.chain.Refund(p.ID, donation.ID, donor2Addr, nonce)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefundBeforeExpiry(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))
	donation, nonce := f.deposit(t, p.ID, donor1Addr, 300)

	_, err := f.chain.Refund(p.ID, donation.ID, donor1Addr, nonce)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRefundUnknownDonation(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))
	_, nonce := f.deposit(t, p.ID, donor1Addr, 300)

	f.timeTravel(2 * time.Hour)
	_, err := f.chain.CheckExpiry(p.ID)
	require.NoError(t, err)

	_, err = f.chain.Refund(p.ID, "no-such-donation", donor1Addr, nonce)
	assert.ErrorIs(t, err, ErrDonationNotFound)
}

func TestRefundContinuesInRefundingState(t *testing.T) {
	f := newTestFixture(t, 0, common.Address{})
	p := f.register(t, 1000, deadlineIn(time.Hour))
	d1, n1 := f.deposit(t, p.ID, donor1Addr, 300)
	d2, n2 := f.deposit(t, p.ID, donor2Addr, 500)

	f.timeTravel(2 * time.Hour)
	_, err := f.chain.CheckExpiry(p.ID)
	require.NoError(t, err)

	_, err = f.chain.Refund(p.ID, d1.ID, donor1Addr, n1)
	require.NoError(t, err)

	// a second donor claims after the project already moved to Refunding
	_, err = f.chain.Refund(p.ID, d2.ID, donor2Addr, n2)
	require.NoError(t, err)

	assert.Equal(t, "0", f.bank.Balance(EscrowAddress).String())
	assert.Equal(t, "1000000", f.bank.Balance(donor1Addr).String())
	assert.Equal(t, "1000000", f.bank.Balance(donor2Addr).String())
}
