package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/solcloak/solcloak/internal/logging"
	"github.com/solcloak/solcloak/internal/validation"
)

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	healthy, statuses := s.checks.CheckAll(c.Request.Context())

	checks := make(map[string]string, len(statuses))
	for _, st := range statuses {
		if st.Healthy {
			checks[st.Name] = "healthy"
		} else {
			checks[st.Name] = "unhealthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "1.0.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "solcloak",
		"description": "Privacy-risk analysis for Solana wallets, transactions, and programs",
		"version":     "1.0.0",
		"chain":       "solana-mainnet",
	})
}

func (s *Server) streamStatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.hub.Stats())
}

// scanWalletHandler handles POST /v1/scan/wallet
func (s *Server) scanWalletHandler(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain an address",
		})
		return
	}

	if !validation.IsValidAddress(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a base58-encoded 32-byte Solana public key",
		})
		return
	}

	report, err := s.scanner.ScanWallet(c.Request.Context(), req.Address)
	if err != nil {
		logging.L(c.Request.Context()).Error("wallet scan failed", "address", req.Address, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "scan_failed",
			"message": "Could not collect activity for this wallet",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// scanTransactionHandler handles POST /v1/scan/transaction
func (s *Server) scanTransactionHandler(c *gin.Context) {
	var req struct {
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain a signature",
		})
		return
	}

	if !validation.IsValidSignature(req.Signature) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_signature",
			"message": "signature must be a base58-encoded 64-byte transaction signature",
		})
		return
	}

	report, err := s.scanner.ScanTransaction(c.Request.Context(), req.Signature)
	if err != nil {
		logging.L(c.Request.Context()).Error("transaction scan failed", "signature", req.Signature, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "scan_failed",
			"message": "Could not fetch this transaction",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// scanProgramHandler handles POST /v1/scan/program
func (s *Server) scanProgramHandler(c *gin.Context) {
	var req struct {
		ProgramID string `json:"programId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Request body must contain a programId",
		})
		return
	}

	if !validation.IsValidAddress(req.ProgramID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "programId must be a base58-encoded 32-byte Solana public key",
		})
		return
	}

	report, err := s.scanner.ScanProgram(c.Request.Context(), req.ProgramID)
	if err != nil {
		logging.L(c.Request.Context()).Error("program scan failed", "program", req.ProgramID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "scan_failed",
			"message": "Could not collect activity for this program",
		})
		return
	}

	c.JSON(http.StatusOK, report)
}

// labelHandler handles GET /v1/labels/:address
func (s *Server) labelHandler(c *gin.Context) {
	address := c.Param("address")
	if !validation.IsValidAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_address",
			"message": "address must be a base58-encoded 32-byte Solana public key",
		})
		return
	}

	label, err := s.labels.Lookup(c.Request.Context(), address)
	if err != nil {
		logging.L(c.Request.Context()).Error("label lookup failed", "address", address, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "lookup_failed",
			"message": "Label store is unavailable",
		})
		return
	}
	if label == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No label known for this address",
		})
		return
	}

	c.JSON(http.StatusOK, label)
}
