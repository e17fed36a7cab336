package oracle

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pifp-labs/funding-node/internal/protocol"
)

// Validator runs the domain-specific checks on a raw proof payload. The
// returned verdict is final for this payload; an error marks a transient
// failure worth retrying
type Validator interface {
	Validate(ctx context.Context, payload []byte) (protocol.Verdict, error)
}

// ValidatorFunc adapts a function to the Validator interface
type ValidatorFunc func(ctx context.Context, payload []byte) (protocol.Verdict, error)

func (f ValidatorFunc) Validate(ctx context.Context, payload []byte) (protocol.Verdict, error) {
	return f(ctx, payload)
}

// ValidatorRegistry selects validators by the project's proof schema hash
type ValidatorRegistry struct {
	mu         sync.RWMutex
	bySchema   map[common.Hash]Validator
	defaultVal Validator
}

func NewValidatorRegistry(defaultVal Validator) *ValidatorRegistry {
	return &ValidatorRegistry{
		bySchema:   make(map[common.Hash]Validator),
		defaultVal: defaultVal,
	}
}

func (r *ValidatorRegistry) Register(schemaHash common.Hash, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bySchema[schemaHash] = v
}

// Resolve returns the validator for a schema, falling back to the default.
// A nil result means the schema is unknown and the proof must be rejected
func (r *ValidatorRegistry) Resolve(schemaHash common.Hash) Validator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if v, ok := r.bySchema[schemaHash]; ok {
		return v
	}
	return r.defaultVal
}

// AcceptingValidator verifies any structurally sound payload. It mirrors
// the mocked verification of the first protocol deployment and is the
// placeholder until schema-specific validators are registered
func AcceptingValidator() Validator {
	return ValidatorFunc(func(ctx context.Context, payload []byte) (protocol.Verdict, error) {
		if len(payload) == 0 {
			return protocol.VerdictRejected, nil
		}
		return protocol.VerdictVerified, nil
	})
}
