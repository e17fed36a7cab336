package httphandlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/pifp-labs/funding-node/internal/lib"
	"github.com/pifp-labs/funding-node/internal/oracle"
	"github.com/pifp-labs/funding-node/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	adminAddr   = common.HexToAddress("0xAd31111111111111111111111111111111111111")
	creatorAddr = common.HexToAddress("0xC0e1111111111111111111111111111111111111")
	donorAddr   = common.HexToAddress("0xD011111111111111111111111111111111111111")
	schemaHash  = crypto.Keccak256Hash([]byte("impact-report-v1"))
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	bank := protocol.NewBank()
	chain, err := protocol.NewChain(protocol.Params{
		Admin:   adminAddr,
		Oracles: []common.Address{crypto.PubkeyToAddress(key.PublicKey)},
	}, bank, lib.NewTestLogger())
	require.NoError(t, err)

	wallet, err := oracle.NewWalletFromPrivateKey(common.Bytes2Hex(crypto.FromECDSA(key)))
	require.NoError(t, err)

	verifier := oracle.NewVerifier(chain, wallet, oracle.NewValidatorRegistry(oracle.AcceptingValidator()), 3, time.Millisecond, lib.NewTestLogger())

	publicUrl, err := url.Parse("http://localhost:8080")
	require.NoError(t, err)

	return NewHTTPHandler(chain, verifier, publicUrl, lib.NewTestLogger())
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	if len(w.Body.Bytes()) > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func registerProject(t *testing.T, r *gin.Engine, target string) float64 {
	t.Helper()

	w, resp := doJSON(t, r, http.MethodPost, "/projects", gin.H{
		"creator":    creatorAddr.Hex(),
		"target":     target,
		"deadline":   time.Now().Add(time.Hour).Format(time.RFC3339),
		"schemaHash": schemaHash.Hex(),
	})
	require.Equal(t, 201, w.Code, w.Body.String())
	return resp["id"].(float64)
}

func mint(t *testing.T, r *gin.Engine, addr common.Address, amount string) {
	t.Helper()
	w, _ := doJSON(t, r, http.MethodPost, "/accounts/"+addr.Hex()+"/mint", gin.H{"amount": amount})
	require.Equal(t, 200, w.Code, w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	r := newTestServer(t)

	w, resp := doJSON(t, r, http.MethodGet, "/healthcheck", nil)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "healthy", resp["status"])
}

func TestRegisterProjectEndpoint(t *testing.T) {
	r := newTestServer(t)

	w, resp := doJSON(t, r, http.MethodPost, "/projects", gin.H{
		"creator":    creatorAddr.Hex(),
		"target":     "1000",
		"deadline":   time.Now().Add(time.Hour).Format(time.RFC3339),
		"schemaHash": schemaHash.Hex(),
	})
	require.Equal(t, 201, w.Code, w.Body.String())
	assert.Equal(t, "Funding", resp["status"])
	assert.Equal(t, "1000", resp["target"])
	assert.Equal(t, creatorAddr.Hex(), resp["payout"])
}

func TestRegisterProjectValidation(t *testing.T) {
	r := newTestServer(t)

	// missing required fields
	w, _ := doJSON(t, r, http.MethodPost, "/projects", gin.H{"creator": creatorAddr.Hex()})
	assert.Equal(t, 400, w.Code)

	// malformed target
	w, _ = doJSON(t, r, http.MethodPost, "/projects", gin.H{
		"creator":    creatorAddr.Hex(),
		"target":     "one thousand",
		"deadline":   time.Now().Add(time.Hour).Format(time.RFC3339),
		"schemaHash": schemaHash.Hex(),
	})
	assert.Equal(t, 400, w.Code)

	// past deadline
	w, _ = doJSON(t, r, http.MethodPost, "/projects", gin.H{
		"creator":    creatorAddr.Hex(),
		"target":     "1000",
		"deadline":   time.Now().Add(-time.Hour).Format(time.RFC3339),
		"schemaHash": schemaHash.Hex(),
	})
	assert.Equal(t, 400, w.Code)
}

func TestGetProjectNotFound(t *testing.T) {
	r := newTestServer(t)

	w, _ := doJSON(t, r, http.MethodGet, "/projects/42", nil)
	assert.Equal(t, 404, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/projects/not-a-number", nil)
	assert.Equal(t, 400, w.Code)
}

func TestDepositEndpoint(t *testing.T) {
	r := newTestServer(t)
	id := registerProject(t, r, "1000")
	mint(t, r, donorAddr, "5000")

	w, resp := doJSON(t, r, http.MethodPost, fmt.Sprintf("/projects/%.0f/donations", id), gin.H{
		"donor":  donorAddr.Hex(),
		"amount": "600",
	})
	require.Equal(t, 201, w.Code, w.Body.String())
	assert.NotEmpty(t, resp["donationId"])
	assert.NotEmpty(t, resp["commitment"])
	// server generated nonce comes back for the refund claim
	assert.NotEmpty(t, resp["nonce"])

	w, resp = doJSON(t, r, http.MethodGet, fmt.Sprintf("/projects/%.0f", id), nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "600", resp["funded"])

	w, resp = doJSON(t, r, http.MethodGet, "/accounts/"+donorAddr.Hex()+"/balance", nil)
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "4400", resp["balance"])
}

func TestDepositOverTarget(t *testing.T) {
	r := newTestServer(t)
	id := registerProject(t, r, "1000")
	mint(t, r, donorAddr, "5000")

	w, _ := doJSON(t, r, http.MethodPost, fmt.Sprintf("/projects/%.0f/donations", id), gin.H{
		"donor":  donorAddr.Hex(),
		"amount": "1200",
	})
	assert.Equal(t, 400, w.Code)
}

func TestSetOraclesEndpoint(t *testing.T) {
	r := newTestServer(t)

	w, _ := doJSON(t, r, http.MethodPost, "/oracles", gin.H{
		"caller":  donorAddr.Hex(),
		"oracles": []string{donorAddr.Hex()},
	})
	assert.Equal(t, 403, w.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/oracles", gin.H{
		"caller":  adminAddr.Hex(),
		"oracles": []string{donorAddr.Hex()},
	})
	assert.Equal(t, 200, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/oracles", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp struct {
		Oracles []string `json:"oracles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{donorAddr.Hex()}, resp.Oracles)
}

func TestRefundEndpointBadNonce(t *testing.T) {
	r := newTestServer(t)
	id := registerProject(t, r, "1000")

	w, _ := doJSON(t, r, http.MethodPost, fmt.Sprintf("/projects/%.0f/refunds", id), gin.H{
		"donationId": "some-id",
		"caller":     donorAddr.Hex(),
		"nonce":      "not-hex",
	})
	assert.Equal(t, 400, w.Code)
}
