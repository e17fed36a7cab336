package httphandlers

import (
	"errors"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/pifp-labs/funding-node/internal/config"
	"github.com/pifp-labs/funding-node/internal/interfaces"
	"github.com/pifp-labs/funding-node/internal/oracle"
	"github.com/pifp-labs/funding-node/internal/protocol"
)

type HTTPHandler struct {
	chain     *protocol.Chain
	verifier  *oracle.Verifier
	publicUrl *url.URL
	log       interfaces.ILogger
}

func NewHTTPHandler(chain *protocol.Chain, verifier *oracle.Verifier, publicUrl *url.URL, log interfaces.ILogger) *gin.Engine {
	handl := &HTTPHandler{
		chain:     chain,
		verifier:  verifier,
		publicUrl: publicUrl,
		log:       log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthcheck", handl.HealthCheck)

	r.GET("/projects", handl.GetProjects)
	r.GET("/projects/:id", handl.GetProject)
	r.GET("/projects/:id/donations", handl.GetDonations)
	r.GET("/projects/:id/submissions", handl.GetSubmissions)
	r.GET("/projects/:id/attestations", handl.GetAttestations)

	r.POST("/projects", handl.RegisterProject)
	r.POST("/projects/:id/donations", handl.Deposit)
	r.POST("/projects/:id/proofs", handl.SubmitProof)
	r.POST("/projects/:id/refunds", handl.Refund)
	r.POST("/projects/:id/check-expiry", handl.CheckExpiry)

	r.GET("/oracles", handl.GetOracles)
	r.POST("/oracles", handl.SetOracles)

	r.GET("/accounts/:address/balance", handl.GetBalance)
	r.POST("/accounts/:address/mint", handl.Mint)

	err := r.SetTrustedProxies(nil)
	if err != nil {
		panic(err)
	}

	return r
}

func (h *HTTPHandler) HealthCheck(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"status":  "healthy",
		"version": config.BuildVersion,
	})
}

type registerRequest struct {
	Creator    string `json:"creator" binding:"required"`
	Payout     string `json:"payout"`
	Target     string `json:"target" binding:"required"`
	Deadline   string `json:"deadline" binding:"required"`
	SchemaHash string `json:"schemaHash" binding:"required"`
}

func (h *HTTPHandler) RegisterProject(ctx *gin.Context) {
	var req registerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	target, ok := new(big.Int).SetString(req.Target, 10)
	if !ok {
		ctx.JSON(400, gin.H{"error": "target must be a decimal integer"})
		return
	}
	deadline, err := time.Parse(time.RFC3339, req.Deadline)
	if err != nil {
		ctx.JSON(400, gin.H{"error": "deadline must be RFC3339"})
		return
	}

	project, err := h.chain.Register(
		common.HexToAddress(req.Creator),
		common.HexToAddress(req.Payout),
		target,
		deadline,
		common.HexToHash(req.SchemaHash),
	)
	if err != nil {
		ctx.JSON(mapError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(201, mapProject(project))
}

func (h *HTTPHandler) GetProjects(ctx *gin.Context) {
	projects := h.chain.GetProjects()

	out := make([]gin.H, 0, len(projects))
	for _, p := range projects {
		out = append(out, mapProject(p))
	}
	ctx.JSON(200, out)
}

func (h *HTTPHandler) GetProject(ctx *gin.Context) {
	projectID, ok := h.projectID(ctx)
	if !ok {
		return
	}

	project, err := h.chain.GetProject(projectID)
	if err != nil {
		ctx.JSON(mapError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(200, mapProject(project))
}

func (h *HTTPHandler) GetDonations(ctx *gin.Context) {
	projectID, ok := h.projectID(ctx)
	if !ok {
		return
	}

	donations, err := h.chain.GetDonations(projectID)
	if err != nil {
		ctx.JSON(mapError(err), gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(donations))
	for _, d := range donations {
		out = append(out, gin.H{
			"id":         d.ID,
			"projectId":  d.ProjectID,
			"commitment": d.Commitment.Hex(),
			"amount":     d.Amount.String(),
			"createdAt":  d.CreatedAt.Format(time.RFC3339),
			"refunded":   d.Refunded,
		})
	}
	ctx.JSON(200, out)
}

func (h *HTTPHandler) GetSubmissions(ctx *gin.Context) {
	projectID, ok := h.projectID(ctx)
	if !ok {
		return
	}

	submissions, err := h.chain.GetSubmissions(projectID)
	if err != nil {
		ctx.JSON(mapError(err), gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(submissions))
	for _, s := range submissions {
		out = append(out, gin.H{
			"id":         s.ID,
			"projectId":  s.ProjectID,
			"commitment": s.Commitment.Hex(),
			"submitter":  s.Submitter.Hex(),
			"createdAt":  s.CreatedAt.Format(time.RFC3339),
			"result":     s.Result.String(),
		})
	}
	ctx.JSON(200, out)
}

func (h *HTTPHandler) GetAttestations(ctx *gin.Context) {
	projectID, ok := h.projectID(ctx)
	if !ok {
		return
	}

	attestations, err := h.chain.GetAttestations(projectID)
	if err != nil {
		ctx.JSON(mapError(err), gin.H{"error": err.Error()})
		return
	}

	out := make([]gin.H, 0, len(attestations))
	for _, a := range attestations {
		out = append(out, gin.H{
			"submissionId": a.SubmissionID,
			"projectId":    a.ProjectID,
			"oracle":       a.Oracle.Hex(),
			"verdict":      a.Verdict.String(),
			"createdAt":    a.CreatedAt.Format(time.RFC3339),
		})
	}
	ctx.JSON(200, out)
}

func (h *HTTPHandler) projectID(ctx *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(400, gin.H{"error": "invalid project id"})
		return 0, false
	}
	return id, true
}

func mapProject(p protocol.Project) gin.H {
	return gin.H{
		"id":         p.ID,
		"creator":    p.Creator.Hex(),
		"payout":     p.Payout.Hex(),
		"target":     p.Target.String(),
		"funded":     p.Funded.String(),
		"deadline":   p.Deadline.Format(time.RFC3339),
		"schemaHash": p.ProofSchemaHash.Hex(),
		"status":     p.Status.String(),
		"settled":    p.Settled,
	}
}

func mapError(err error) int {
	switch {
	case errors.Is(err, protocol.ErrProjectNotFound),
		errors.Is(err, protocol.ErrDonationNotFound),
		errors.Is(err, protocol.ErrSubmissionNotFound):
		return 404
	case errors.Is(err, protocol.ErrUnauthorized), errors.Is(err, protocol.ErrUnauthorizedOracle):
		return 403
	case errors.Is(err, protocol.ErrAlreadySettled):
		return 409
	default:
		return 400
	}
}
