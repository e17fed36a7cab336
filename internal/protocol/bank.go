package protocol

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EscrowAddress holds locked donations until settlement. Derived from a
// fixed label so it cannot collide with a user key
var EscrowAddress = common.BytesToAddress(crypto.Keccak256([]byte("funding-node/escrow"))[12:])

// Bank is the single backing asset of the protocol: a minimal account
// ledger standing in for the host chain's native token
type Bank struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
}

func NewBank() *Bank {
	return &Bank{
		balances: make(map[common.Address]*big.Int),
	}
}

func (b *Bank) Mint(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.credit(to, amount)
	return nil
}

func (b *Bank) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	balance, ok := b.balances[from]
	if !ok || balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}

	balance.Sub(balance, amount)
	b.credit(to, amount)
	return nil
}

func (b *Bank) Balance(addr common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()

	balance, ok := b.balances[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(balance)
}

func (b *Bank) credit(to common.Address, amount *big.Int) {
	balance, ok := b.balances[to]
	if !ok {
		balance = new(big.Int)
		b.balances[to] = balance
	}
	balance.Add(balance, amount)
}
