// Package oracle implements the off-chain verifier: it receives raw proof
// payloads out of band, validates them, and bridges the verdict back to the
// contract module as a signed attestation.
package oracle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gammazero/deque"
	"github.com/pifp-labs/funding-node/internal/commitment"
	"github.com/pifp-labs/funding-node/internal/interfaces"
	"github.com/pifp-labs/funding-node/internal/lib"
	"github.com/pifp-labs/funding-node/internal/protocol"
	"go.uber.org/atomic"
)

// ContractGateway is the authenticated attestation boundary between the
// oracle process and the ledger
type ContractGateway interface {
	SubscribeEvents() *lib.Subscription
	GetProject(projectID uint64) (protocol.Project, error)
	ApplyVerification(projectID uint64, submissionID string, verdict protocol.Verdict, signature []byte) error
}

// ProofEnvelope is the out-of-band submission handed to the oracle: the raw
// payload plus the secret needed to re-derive the on-chain commitment
type ProofEnvelope struct {
	ProjectID uint64
	Submitter common.Address
	Nonce     commitment.Nonce
	Payload   []byte
}

type pendingProof struct {
	envelope   ProofEnvelope
	commitment common.Hash
	receivedAt time.Time
}

type Verifier struct {
	// config
	submitRetries int
	retryInterval time.Duration

	// state
	mu        sync.Mutex
	pending   *deque.Deque[*pendingProof]
	isRunning *atomic.Bool

	// deps
	gateway    ContractGateway
	wallet     *Wallet
	validators *ValidatorRegistry
	log        interfaces.ILogger
}

func NewVerifier(gateway ContractGateway, wallet *Wallet, validators *ValidatorRegistry, submitRetries int, retryInterval time.Duration, log interfaces.ILogger) *Verifier {
	return &Verifier{
		submitRetries: submitRetries,
		retryInterval: retryInterval,
		pending:       deque.New[*pendingProof](),
		isRunning:     atomic.NewBool(false),
		gateway:       gateway,
		wallet:        wallet,
		validators:    validators,
		log:           log,
	}
}

func (v *Verifier) Address() common.Address {
	return v.wallet.Address()
}

// Enqueue stores a proof payload until its on-chain submission event
// arrives, and returns the commitment the submitter should put on chain
func (v *Verifier) Enqueue(envelope ProofEnvelope) common.Hash {
	proofCommitment := commitment.Commit(
		envelope.Nonce,
		envelope.Submitter,
		commitment.ProofPayload(envelope.Payload),
	)

	v.mu.Lock()
	v.pending.PushBack(&pendingProof{
		envelope:   envelope,
		commitment: proofCommitment,
		receivedAt: time.Now(),
	})
	v.mu.Unlock()

	v.log.Debugf("proof payload for project %d enqueued, commitment %s", envelope.ProjectID, proofCommitment)
	return proofCommitment
}

// Run subscribes to contract events and verifies each proof submission.
// Safe to restart: replayed submissions are rejected by the chain with
// ErrAlreadySettled, which is treated as success
func (v *Verifier) Run(ctx context.Context) error {
	if !v.isRunning.CAS(false, true) {
		return errors.New("verifier already running")
	}
	defer v.isRunning.Store(false)

	sub := v.gateway.SubscribeEvents()
	defer sub.Unsubscribe()

	v.log.Infof("oracle %s watching for proof submissions", v.wallet.Address())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-sub.Events():
			if ev, ok := event.(protocol.EventProofSubmitted); ok {
				v.handleSubmission(ctx, ev)
			}
		case err := <-sub.Err():
			return err
		}
	}
}

func (v *Verifier) handleSubmission(ctx context.Context, ev protocol.EventProofSubmitted) {
	proof := v.takePending(ev.ProjectID, ev.Commitment)
	if proof == nil {
		v.log.Warnf("no payload for submission %s of project %d, leaving it pending", ev.SubmissionID, ev.ProjectID)
		return
	}

	verdict, err := v.evaluate(ctx, proof)
	if err != nil {
		// transient validation failure: leave the submission pending
		// on-chain for manual follow-up
		v.log.Errorf("validation of submission %s gave up: %s", ev.SubmissionID, err)
		return
	}

	digest := protocol.AttestationDigest(ev.ProjectID, proof.commitment, verdict)
	signature, err := v.wallet.Sign(digest)
	if err != nil {
		v.log.Errorf("cannot sign attestation for submission %s: %s", ev.SubmissionID, err)
		return
	}

	v.submitAttestation(ctx, ev, verdict, signature)
}

// evaluate runs the structural check and the schema-specific validator
func (v *Verifier) evaluate(ctx context.Context, proof *pendingProof) (protocol.Verdict, error) {
	env := proof.envelope

	// binding check: the payload must re-derive the on-chain commitment
	if !commitment.Verify(proof.commitment, env.Nonce, env.Submitter, commitment.ProofPayload(env.Payload)) {
		v.log.Warnf("payload for project %d does not match its commitment", env.ProjectID)
		return protocol.VerdictRejected, nil
	}

	project, err := v.gateway.GetProject(env.ProjectID)
	if err != nil {
		return 0, err
	}

	validator := v.validators.Resolve(project.ProofSchemaHash)
	if validator == nil {
		v.log.Warnf("no validator for schema %s, rejecting submission", project.ProofSchemaHash)
		return protocol.VerdictRejected, nil
	}

	return v.validateRetry(ctx, validator, env.Payload)
}

func (v *Verifier) validateRetry(ctx context.Context, validator Validator, payload []byte) (protocol.Verdict, error) {
	var lastErr error

	for attempt := 0; attempt < v.submitRetries; attempt++ {
		verdict, err := validator.Validate(ctx, payload)
		if err == nil {
			if attempt > 0 {
				v.log.Warnf("validation recovered after error: %s", lastErr)
			}
			return verdict, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(v.retryInterval):
		}
	}

	return 0, lastErr
}

func (v *Verifier) submitAttestation(ctx context.Context, ev protocol.EventProofSubmitted, verdict protocol.Verdict, signature []byte) {
	var lastErr error

	for attempt := 0; attempt < v.submitRetries; attempt++ {
		err := v.gateway.ApplyVerification(ev.ProjectID, ev.SubmissionID, verdict, signature)
		if err == nil {
			v.log.Infof("attested submission %s of project %d: %s", ev.SubmissionID, ev.ProjectID, verdict)
			return
		}
		if errors.Is(err, protocol.ErrAlreadySettled) {
			// a previous run of this oracle got there first
			v.log.Infof("submission %s already attested", ev.SubmissionID)
			return
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return
		case <-time.After(v.retryInterval):
		}
	}

	v.log.Errorf("giving up on submission %s after %d attempts: %s", ev.SubmissionID, v.submitRetries, lastErr)
}

func (v *Verifier) takePending(projectID uint64, proofCommitment common.Hash) *pendingProof {
	v.mu.Lock()
	defer v.mu.Unlock()

	idx := v.pending.Index(func(p *pendingProof) bool {
		return p.envelope.ProjectID == projectID && p.commitment == proofCommitment
	})
	if idx < 0 {
		return nil
	}
	return v.pending.Remove(idx)
}

// PendingCount reports payloads waiting for their on-chain submission event
func (v *Verifier) PendingCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pending.Len()
}
