package protocol

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pifp-labs/funding-node/internal/commitment"
	"github.com/pifp-labs/funding-node/internal/lib"
)

// Deposit locks funds against a project and records the donor commitment.
// Deposits beyond the target are rejected, not capped, so the payout amount
// stays predictable for the implementer
func (c *Chain) Deposit(projectID uint64, donor common.Address, amount *big.Int, donorCommitment common.Hash) (Donation, error) {
	state, err := c.loadProject(projectID)
	if err != nil {
		return Donation{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.project.Status != StatusFunding && state.project.Status != StatusActive {
		return Donation{}, lib.WrapError(ErrInvalidState, errStatus(state.project.Status, "deposit"))
	}
	if amount == nil || amount.Sign() <= 0 {
		return Donation{}, ErrInvalidAmount
	}
	if donorCommitment == (common.Hash{}) {
		return Donation{}, lib.WrapError(ErrInvalidParameters, errInvalid("donor commitment is required"))
	}

	newFunded := new(big.Int).Add(state.project.Funded, amount)
	if newFunded.Cmp(state.project.Target) > 0 {
		return Donation{}, lib.WrapError(ErrInvalidAmount, errInvalid("deposit exceeds funding target"))
	}

	if err := c.bank.Transfer(donor, EscrowAddress, amount); err != nil {
		return Donation{}, err
	}

	donation := &Donation{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Commitment: donorCommitment,
		Amount:     new(big.Int).Set(amount),
		CreatedAt:  c.now(),
	}
	state.donations = append(state.donations, donation)
	state.project.Funded = newFunded

	c.log.Infof("project %d donation of %s recorded, funded %s/%s", projectID, amount, newFunded, state.project.Target)
	c.emit(EventDonationReceived{
		ProjectID:  projectID,
		DonationID: donation.ID,
		Amount:     new(big.Int).Set(amount),
	})

	if state.project.Status == StatusFunding && newFunded.Cmp(state.project.Target) == 0 {
		state.project.Status = StatusActive
		c.log.Infof("project %d fully funded", projectID)
	}

	return *donation, nil
}

// Refund releases a single expired-project donation back to its donor. The
// caller proves ownership by revealing the commitment secret. Refunds are
// per-donation so one failing donor cannot block the others
func (c *Chain) Refund(projectID uint64, donationID string, caller common.Address, secret commitment.Nonce) (*big.Int, error) {
	state, err := c.loadProject(projectID)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.project.Status != StatusExpired && state.project.Status != StatusRefunding {
		return nil, lib.WrapError(ErrInvalidState, errStatus(state.project.Status, "refund"))
	}

	donation := state.donation(donationID)
	if donation == nil {
		return nil, ErrDonationNotFound
	}
	if donation.Refunded {
		return nil, ErrAlreadySettled
	}

	payload := commitment.AmountPayload(donation.Amount)
	if !commitment.Verify(donation.Commitment, secret, caller, payload) {
		return nil, ErrUnauthorized
	}

	if err := c.bank.Transfer(EscrowAddress, caller, donation.Amount); err != nil {
		return nil, err
	}
	donation.Refunded = true
	state.project.Status = StatusRefunding

	c.log.Infof("project %d donation %s refunded, amount %s", projectID, donationID, donation.Amount)
	c.emit(EventRefunded{
		ProjectID:  projectID,
		DonationID: donationID,
		Amount:     new(big.Int).Set(donation.Amount),
	})

	return new(big.Int).Set(donation.Amount), nil
}
