package protocol

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pifp-labs/funding-node/internal/lib"
)

// Events emitted for off-chain indexing. The oracle service consumes
// ProofSubmitted; everything else is for the excluded presentation layer

type EventProjectRegistered struct {
	ProjectID uint64
	Creator   common.Address
	Target    *big.Int
	Deadline  time.Time
}

type EventDonationReceived struct {
	ProjectID  uint64
	DonationID string
	Amount     *big.Int
}

type EventProofSubmitted struct {
	ProjectID    uint64
	SubmissionID string
	Commitment   common.Hash
}

type EventProofVerified struct {
	ProjectID    uint64
	SubmissionID string
	Verdict      Verdict
}

type EventFundsReleased struct {
	ProjectID uint64
	Amount    *big.Int
}

type EventRefunded struct {
	ProjectID  uint64
	DonationID string
	Amount     *big.Int
}

type EventProjectExpired struct {
	ProjectID uint64
	Deadline  time.Time
}

const eventBufferSize = 256

// eventBus fans emitted events out to subscribers. Slow subscribers drop
// events rather than block a transaction
type eventBus struct {
	mu   sync.Mutex
	subs map[chan interface{}]struct{}
}

func newEventBus() *eventBus {
	return &eventBus{
		subs: make(map[chan interface{}]struct{}),
	}
}

func (b *eventBus) Subscribe() *lib.Subscription {
	ch := make(chan interface{}, eventBufferSize)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return lib.NewSubscription(func(quit <-chan struct{}) error {
		<-quit

		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		return nil
	}, ch)
}

func (b *eventBus) Publish(event interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			// subscriber buffer full
		}
	}
}
