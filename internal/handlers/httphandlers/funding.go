package httphandlers

import (
	"encoding/base64"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/pifp-labs/funding-node/internal/commitment"
	"github.com/pifp-labs/funding-node/internal/oracle"
)

type depositRequest struct {
	Donor  string `json:"donor" binding:"required"`
	Amount string `json:"amount" binding:"required"`
	// optional client-side nonce; generated here when omitted and
	// returned so the donor can claim a refund later
	Nonce string `json:"nonce"`
}

func (h *HTTPHandler) Deposit(ctx *gin.Context) {
	projectID, ok := h.projectID(ctx)
	if !ok {
		return
	}

	var req depositRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		ctx.JSON(400, gin.H{"error": "amount must be a decimal integer"})
		return
	}

	nonce, err := h.nonceFromRequest(req.Nonce)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	donor := common.HexToAddress(req.Donor)
	donorCommitment := commitment.Commit(nonce, donor, commitment.AmountPayload(amount))

	donation, err := h.chain.Deposit(projectID, donor, amount, donorCommitment)
	if err != nil {
		ctx.JSON(mapError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(201, gin.H{
		"donationId": donation.ID,
		"commitment": donation.Commitment.Hex(),
		"nonce":      nonce.Hex(),
	})
}

type submitProofRequest struct {
	Submitter string `json:"submitter" binding:"required"`
	Payload   string `json:"payload" binding:"required"` // base64 raw proof
	Nonce     string `json:"nonce"`
}

// SubmitProof records the proof commitment on chain and hands the raw
// payload to the oracle; only the commitment ever touches the ledger
func (h *HTTPHandler) SubmitProof(ctx *gin.Context) {
	projectID, ok := h.projectID(ctx)
	if !ok {
		return
	}

	var req submitProofRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	payload, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		ctx.JSON(400, gin.H{"error": "payload must be base64"})
		return
	}

	nonce, err := h.nonceFromRequest(req.Nonce)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	// payload goes to the oracle first so the submission event always
	// finds it waiting
	proofCommitment := h.verifier.Enqueue(oracle.ProofEnvelope{
		ProjectID: projectID,
		Submitter: common.HexToAddress(req.Submitter),
		Nonce:     nonce,
		Payload:   payload,
	})

	submission, err := h.chain.SubmitProof(projectID, common.HexToAddress(req.Submitter), proofCommitment)
	if err != nil {
		ctx.JSON(mapError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(201, gin.H{
		"submissionId": submission.ID,
		"commitment":   submission.Commitment.Hex(),
		"nonce":        nonce.Hex(),
	})
}

type refundRequest struct {
	DonationID string `json:"donationId" binding:"required"`
	Caller     string `json:"caller" binding:"required"`
	Nonce      string `json:"nonce" binding:"required"`
}

func (h *HTTPHandler) Refund(ctx *gin.Context) {
	projectID, ok := h.projectID(ctx)
	if !ok {
		return
	}

	var req refundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	nonce, err := commitment.NonceFromHex(req.Nonce)
	if err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	amount, err := h.chain.Refund(projectID, req.DonationID, common.HexToAddress(req.Caller), nonce)
	if err != nil {
		ctx.JSON(mapError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{
		"donationId": req.DonationID,
		"amount":     amount.String(),
	})
}

func (h *HTTPHandler) CheckExpiry(ctx *gin.Context) {
	projectID, ok := h.projectID(ctx)
	if !ok {
		return
	}

	status, err := h.chain.CheckExpiry(projectID)
	if err != nil {
		ctx.JSON(mapError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{"status": status.String()})
}

type setOraclesRequest struct {
	Caller  string   `json:"caller" binding:"required"`
	Oracles []string `json:"oracles" binding:"required,min=1"`
}

func (h *HTTPHandler) SetOracles(ctx *gin.Context) {
	var req setOraclesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	oracles := make([]common.Address, 0, len(req.Oracles))
	for _, o := range req.Oracles {
		oracles = append(oracles, common.HexToAddress(o))
	}

	err := h.chain.SetOracles(common.HexToAddress(req.Caller), oracles)
	if err != nil {
		ctx.JSON(mapError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{"status": "ok"})
}

func (h *HTTPHandler) GetOracles(ctx *gin.Context) {
	oracles := h.chain.Oracles()

	out := make([]string, 0, len(oracles))
	for _, o := range oracles {
		out = append(out, o.Hex())
	}
	ctx.JSON(200, gin.H{"oracles": out})
}

type mintRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// Mint is an ops/testnet faucet for the backing asset
func (h *HTTPHandler) Mint(ctx *gin.Context) {
	var req mintRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(400, gin.H{"error": err.Error()})
		return
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok {
		ctx.JSON(400, gin.H{"error": "amount must be a decimal integer"})
		return
	}

	err := h.chain.Bank().Mint(common.HexToAddress(ctx.Param("address")), amount)
	if err != nil {
		ctx.JSON(mapError(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(200, gin.H{"status": "ok"})
}

func (h *HTTPHandler) GetBalance(ctx *gin.Context) {
	balance := h.chain.Bank().Balance(common.HexToAddress(ctx.Param("address")))
	ctx.JSON(200, gin.H{"balance": balance.String()})
}

func (h *HTTPHandler) nonceFromRequest(hexNonce string) (commitment.Nonce, error) {
	if hexNonce == "" {
		return commitment.NewNonce()
	}
	return commitment.NonceFromHex(hexNonce)
}
