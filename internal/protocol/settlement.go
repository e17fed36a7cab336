package protocol

import (
	"math/big"

	"github.com/pifp-labs/funding-node/internal/lib"
)

// Release pays out a completed project. It runs automatically on the
// Completed transition; calling it again is a no-op, guarded by the settled
// flag rather than the status
func (c *Chain) Release(projectID uint64) error {
	state, err := c.loadProject(projectID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.project.Status != StatusCompleted {
		return lib.WrapError(ErrInvalidState, errStatus(state.project.Status, "release"))
	}
	return c.release(state)
}

// release assumes the project lock is held
func (c *Chain) release(state *projectState) error {
	if state.project.Settled {
		return nil
	}

	payable := new(big.Int).Set(state.project.Funded)
	fee := c.protocolFee(payable)
	payable.Sub(payable, fee)

	if fee.Sign() > 0 {
		if err := c.bank.Transfer(EscrowAddress, c.params.FeeRecipient, fee); err != nil {
			return err
		}
	}
	if payable.Sign() > 0 {
		if err := c.bank.Transfer(EscrowAddress, state.project.Payout, payable); err != nil {
			return err
		}
	}
	state.project.Settled = true

	c.log.Infof("project %d released %s to %s (fee %s)", state.project.ID, payable, state.project.Payout, fee)
	c.emit(EventFundsReleased{
		ProjectID: state.project.ID,
		Amount:    new(big.Int).Set(payable),
	})

	return nil
}

func (c *Chain) protocolFee(amount *big.Int) *big.Int {
	if c.params.FeeBps == 0 {
		return new(big.Int)
	}
	fee := new(big.Int).Mul(amount, big.NewInt(int64(c.params.FeeBps)))
	return fee.Div(fee, big.NewInt(10000))
}
