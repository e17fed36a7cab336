package protocol

import (
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type ProjectStatus uint8

const (
	StatusFunding ProjectStatus = iota
	StatusActive
	StatusProofSubmitted
	StatusCompleted
	StatusExpired
	StatusRefunding
)

func (s ProjectStatus) String() string {
	switch s {
	case StatusFunding:
		return "funding"
	case StatusActive:
		return "active"
	case StatusProofSubmitted:
		return "proof_submitted"
	case StatusCompleted:
		return "completed"
	case StatusExpired:
		return "expired"
	case StatusRefunding:
		return "refunding"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no lifecycle operation can leave the status.
// Refunding only drains donations, it never re-enters the lifecycle
func (s ProjectStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusExpired || s == StatusRefunding
}

type Verdict uint8

const (
	VerdictPending Verdict = iota
	VerdictVerified
	VerdictRejected
)

func (v Verdict) String() string {
	switch v {
	case VerdictPending:
		return "pending"
	case VerdictVerified:
		return "verified"
	case VerdictRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Project is the on-chain record of a funding project
type Project struct {
	ID              uint64
	Creator         common.Address
	Payout          common.Address
	Target          *big.Int
	Funded          *big.Int
	Deadline        time.Time
	ProofSchemaHash common.Hash
	Status          ProjectStatus
	Settled         bool
}

// Donation binds locked funds to a donor commitment. The donor identity is
// never stored; only the commitment can tie a refund back to its donor
type Donation struct {
	ID         string
	ProjectID  uint64
	Commitment common.Hash
	Amount     *big.Int
	CreatedAt  time.Time
	Refunded   bool
}

// ProofSubmission is an audit-trail record. Result is mutated exactly once,
// by the oracle attestation; records are never deleted
type ProofSubmission struct {
	ID         string
	ProjectID  uint64
	Commitment common.Hash
	Submitter  common.Address
	CreatedAt  time.Time
	Result     Verdict
}

// OracleAttestation is the signed verdict accepted for a submission.
// At most one exists per submission
type OracleAttestation struct {
	SubmissionID string
	ProjectID    uint64
	Oracle       common.Address
	Verdict      Verdict
	Signature    []byte
	CreatedAt    time.Time
}

// Params are fixed at deployment. The oracle allowlist is the only part
// that can change later, through the explicit admin transition
type Params struct {
	Admin        common.Address
	Oracles      []common.Address
	FeeBps       int
	FeeRecipient common.Address
}

// projectState is the unit of transaction serialization: every
// state-mutating call locks exactly one of these
type projectState struct {
	mu sync.Mutex

	project      Project
	donations    []*Donation
	submissions  []*ProofSubmission
	attestations map[string]*OracleAttestation // keyed by submission id
}

func (p *projectState) ID() string {
	return strconv.FormatUint(p.project.ID, 10)
}

func (p *projectState) donation(id string) *Donation {
	for _, d := range p.donations {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (p *projectState) submission(id string) *ProofSubmission {
	for _, s := range p.submissions {
		if s.ID == id {
			return s
		}
	}
	return nil
}
