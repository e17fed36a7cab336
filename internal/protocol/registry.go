package protocol

import (
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/pifp-labs/funding-node/internal/lib"
)

// Register creates a project in Funding state. The payout address receives
// released funds; a zero payout defaults to the creator
func (c *Chain) Register(creator, payout common.Address, target *big.Int, deadline time.Time, proofSchemaHash common.Hash) (Project, error) {
	if creator == (common.Address{}) {
		return Project{}, lib.WrapError(ErrInvalidParameters, errInvalid("creator is required"))
	}
	if target == nil || target.Sign() <= 0 {
		return Project{}, lib.WrapError(ErrInvalidParameters, errInvalid("target must be positive"))
	}
	if !deadline.After(c.now()) {
		return Project{}, lib.WrapError(ErrInvalidParameters, errInvalid("deadline must be in the future"))
	}
	if payout == (common.Address{}) {
		payout = creator
	}

	state := &projectState{
		project: Project{
			ID:              c.nextID.Inc(),
			Creator:         creator,
			Payout:          payout,
			Target:          new(big.Int).Set(target),
			Funded:          new(big.Int),
			Deadline:        deadline,
			ProofSchemaHash: proofSchemaHash,
			Status:          StatusFunding,
		},
		attestations: make(map[string]*OracleAttestation),
	}
	c.projects.Store(state)

	c.log.Infof("project %d registered, target %s, deadline %s", state.project.ID, target, deadline)
	c.emit(EventProjectRegistered{
		ProjectID: state.project.ID,
		Creator:   creator,
		Target:    new(big.Int).Set(target),
		Deadline:  deadline,
	})

	return c.snapshotProject(state), nil
}

// SubmitProof records a proof commitment for a fully funded project and
// moves it to ProofSubmitted. A new submission after a rejection supersedes
// the old one logically; the record stays as audit trail
func (c *Chain) SubmitProof(projectID uint64, submitter common.Address, proofCommitment common.Hash) (ProofSubmission, error) {
	state, err := c.loadProject(projectID)
	if err != nil {
		return ProofSubmission{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.project.Status != StatusActive {
		return ProofSubmission{}, lib.WrapError(ErrInvalidState, errStatus(state.project.Status, "submit_proof"))
	}
	if proofCommitment == (common.Hash{}) {
		return ProofSubmission{}, lib.WrapError(ErrInvalidParameters, errInvalid("proof commitment is required"))
	}

	submission := &ProofSubmission{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Commitment: proofCommitment,
		Submitter:  submitter,
		CreatedAt:  c.now(),
		Result:     VerdictPending,
	}
	state.submissions = append(state.submissions, submission)
	state.project.Status = StatusProofSubmitted

	c.log.Infof("project %d proof submitted, submission %s", projectID, submission.ID)
	c.emit(EventProofSubmitted{
		ProjectID:    projectID,
		SubmissionID: submission.ID,
		Commitment:   proofCommitment,
	})

	return *submission, nil
}

// ApplyVerification accepts a signed oracle attestation for a submission.
// Verified completes the project and releases funds; Rejected returns it to
// Active so the implementer can resubmit, unless the deadline has passed
func (c *Chain) ApplyVerification(projectID uint64, submissionID string, verdict Verdict, signature []byte) error {
	if verdict != VerdictVerified && verdict != VerdictRejected {
		return lib.WrapError(ErrInvalidParameters, errInvalid("verdict must be verified or rejected"))
	}

	state, err := c.loadProject(projectID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	submission := state.submission(submissionID)
	if submission == nil {
		return ErrSubmissionNotFound
	}
	if _, ok := state.attestations[submissionID]; ok {
		return ErrAlreadySettled
	}
	if state.project.Status != StatusProofSubmitted || submission.Result != VerdictPending {
		return lib.WrapError(ErrInvalidState, errStatus(state.project.Status, "apply_verification"))
	}

	digest := AttestationDigest(projectID, submission.Commitment, verdict)
	signer, err := RecoverAttestor(digest, signature)
	if err != nil {
		return lib.WrapError(ErrUnauthorizedOracle, err)
	}
	if !c.IsAuthorizedOracle(signer) {
		return ErrUnauthorizedOracle
	}

	state.attestations[submissionID] = &OracleAttestation{
		SubmissionID: submissionID,
		ProjectID:    projectID,
		Oracle:       signer,
		Verdict:      verdict,
		Signature:    append([]byte(nil), signature...),
		CreatedAt:    c.now(),
	}
	submission.Result = verdict

	c.log.Infof("project %d submission %s attested %s by %s", projectID, submissionID, verdict, signer)
	c.emit(EventProofVerified{
		ProjectID:    projectID,
		SubmissionID: submissionID,
		Verdict:      verdict,
	})

	if verdict == VerdictVerified {
		state.project.Status = StatusCompleted
		return c.release(state)
	}

	// rejected: resubmission window stays open until the deadline
	if c.now().After(state.project.Deadline) {
		c.expire(state)
		return nil
	}
	state.project.Status = StatusActive
	return nil
}

// CheckExpiry may be invoked by anyone. Past the deadline any non-terminal
// project transitions to Expired, which enables refunds
func (c *Chain) CheckExpiry(projectID uint64) (ProjectStatus, error) {
	state, err := c.loadProject(projectID)
	if err != nil {
		return 0, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	if state.project.Status.IsTerminal() {
		return state.project.Status, nil
	}
	if !c.now().After(state.project.Deadline) {
		return state.project.Status, nil
	}

	c.expire(state)
	return state.project.Status, nil
}

// expire assumes the project lock is held
func (c *Chain) expire(state *projectState) {
	state.project.Status = StatusExpired

	c.log.Infof("project %d expired, deadline was %s", state.project.ID, state.project.Deadline)
	c.emit(EventProjectExpired{
		ProjectID: state.project.ID,
		Deadline:  state.project.Deadline,
	})
}

func projectKey(projectID uint64) string {
	return strconv.FormatUint(projectID, 10)
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func errInvalid(msg string) error {
	return errors.New(msg)
}

func errStatus(s ProjectStatus, op string) error {
	return errors.New(op + " not allowed in status " + s.String())
}
