// Package protocol implements the ledger-hosted contract module of the
// funding protocol: the project registry state machine, the funding ledger,
// and the release/refund engine. Every entry point is atomic and serialized
// per project, mirroring the host ledger's transaction model.
package protocol

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pifp-labs/funding-node/internal/interfaces"
	"github.com/pifp-labs/funding-node/internal/lib"
	"go.uber.org/atomic"
	"golang.org/x/exp/slices"
)

type Chain struct {
	// deployment params
	params Params

	// authority state, admin-mutated only
	oraclesMu sync.RWMutex
	oracles   lib.AddressSet

	// storage, keyed by project id
	projects *lib.Collection[*projectState]
	nextID   *atomic.Uint64

	// deps
	bank *Bank
	bus  *eventBus
	now  func() time.Time
	log  interfaces.ILogger
}

func NewChain(params Params, bank *Bank, log interfaces.ILogger) (*Chain, error) {
	if params.Admin == (common.Address{}) {
		return nil, lib.WrapError(ErrInvalidParameters, errInvalid("admin address is required"))
	}
	if len(params.Oracles) == 0 {
		return nil, lib.WrapError(ErrInvalidParameters, errInvalid("at least one oracle is required"))
	}
	if params.FeeBps < 0 || params.FeeBps > 10000 {
		return nil, lib.WrapError(ErrInvalidParameters, errInvalid("fee bps out of range"))
	}
	if params.FeeBps > 0 && params.FeeRecipient == (common.Address{}) {
		return nil, lib.WrapError(ErrInvalidParameters, errInvalid("fee recipient is required when fee is set"))
	}

	return &Chain{
		params:   params,
		oracles:  lib.NewAddressSet(params.Oracles...),
		projects: lib.NewCollection[*projectState](),
		nextID:   atomic.NewUint64(0),
		bank:     bank,
		bus:      newEventBus(),
		now:      time.Now,
		log:      log,
	}, nil
}

func (c *Chain) Bank() *Bank {
	return c.bank
}

// SubscribeEvents returns a subscription to all emitted contract events
func (c *Chain) SubscribeEvents() *lib.Subscription {
	return c.bus.Subscribe()
}

// SetOracles replaces the authorized oracle allowlist. Only the admin
// configured at deployment may call it
func (c *Chain) SetOracles(caller common.Address, oracles []common.Address) error {
	if caller != c.params.Admin {
		return ErrUnauthorized
	}
	if len(oracles) == 0 {
		return lib.WrapError(ErrInvalidParameters, errInvalid("oracle set cannot be empty"))
	}

	c.oraclesMu.Lock()
	c.oracles = lib.NewAddressSet(oracles...)
	c.oraclesMu.Unlock()

	c.log.Infof("oracle allowlist updated, %d entries", len(oracles))
	return nil
}

func (c *Chain) IsAuthorizedOracle(addr common.Address) bool {
	c.oraclesMu.RLock()
	defer c.oraclesMu.RUnlock()
	return c.oracles.Contains(addr)
}

func (c *Chain) Oracles() []common.Address {
	c.oraclesMu.RLock()
	defer c.oraclesMu.RUnlock()
	return c.oracles.Copy().ToSlice()
}

//
// Views
//

func (c *Chain) GetProject(projectID uint64) (Project, error) {
	state, err := c.loadProject(projectID)
	if err != nil {
		return Project{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return c.snapshotProject(state), nil
}

func (c *Chain) GetProjects() []Project {
	out := make([]Project, 0, c.projects.Len())
	c.projects.Range(func(state *projectState) bool {
		state.mu.Lock()
		out = append(out, c.snapshotProject(state))
		state.mu.Unlock()
		return true
	})

	slices.SortFunc(out, func(a, b Project) bool {
		return a.ID < b.ID
	})
	return out
}

func (c *Chain) GetDonations(projectID uint64) ([]Donation, error) {
	state, err := c.loadProject(projectID)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	out := make([]Donation, 0, len(state.donations))
	for _, d := range state.donations {
		out = append(out, *d)
	}
	return out, nil
}

func (c *Chain) GetSubmissions(projectID uint64) ([]ProofSubmission, error) {
	state, err := c.loadProject(projectID)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	out := make([]ProofSubmission, 0, len(state.submissions))
	for _, s := range state.submissions {
		out = append(out, *s)
	}
	return out, nil
}

func (c *Chain) GetAttestations(projectID uint64) ([]OracleAttestation, error) {
	state, err := c.loadProject(projectID)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	out := make([]OracleAttestation, 0, len(state.attestations))
	for _, a := range state.attestations {
		out = append(out, *a)
	}
	slices.SortFunc(out, func(a, b OracleAttestation) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

//
// internals
//

func (c *Chain) loadProject(projectID uint64) (*projectState, error) {
	state, ok := c.projects.Load(projectKey(projectID))
	if !ok {
		return nil, ErrProjectNotFound
	}
	return state, nil
}

func (c *Chain) snapshotProject(state *projectState) Project {
	p := state.project
	p.Target = cloneBig(state.project.Target)
	p.Funded = cloneBig(state.project.Funded)
	return p
}

func (c *Chain) emit(event interface{}) {
	c.bus.Publish(event)
}
