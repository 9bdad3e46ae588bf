package api

import (
	"errors"
	"net/http"
	"time"

	"vertx-trading/internal/auth"
	"vertx-trading/internal/database"
	"vertx-trading/internal/history"
	"vertx-trading/internal/logging"
	"vertx-trading/internal/redemption"
	"vertx-trading/internal/scheduler"
	"vertx-trading/internal/subscription"

	"github.com/gin-gonic/gin"
)

// writeError maps domain errors onto the HTTP error taxonomy. Local
// validation and state errors keep their precise status; remote persistence
// failures surface as 502 so clients know a retry may help.
func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, subscription.ErrInsufficientCredits):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "INSUFFICIENT_CREDITS", "message": "no analysis credits remaining in this window"})
	case errors.Is(err, subscription.ErrAssetLocked):
		c.JSON(http.StatusConflict, gin.H{"error": "ASSET_LOCKED", "message": "this asset requires a premium plan"})
	case errors.Is(err, subscription.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "profile not found"})
	case errors.Is(err, redemption.ErrInvalidFormat):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "INVALID_CODE_FORMAT", "message": "the code format is invalid"})
	case errors.Is(err, redemption.ErrCodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "CODE_NOT_FOUND", "message": "the code does not exist"})
	case errors.Is(err, redemption.ErrCodeAlreadyUsed):
		c.JSON(http.StatusConflict, gin.H{"error": "CODE_ALREADY_USED", "message": "the code has already been redeemed"})
	case errors.Is(err, scheduler.ErrAnalysisInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "ANALYSIS_IN_PROGRESS", "message": "an analysis is already running"})
	case errors.Is(err, scheduler.ErrCooldownActive):
		c.JSON(http.StatusConflict, gin.H{"error": "COOLDOWN_ACTIVE", "message": "wait for the cooldown to finish"})
	case errors.Is(err, scheduler.ErrTamperLocked):
		c.JSON(http.StatusLocked, gin.H{"error": "TAMPER_LOCKED", "message": "time integrity check failed, operations suspended"})
	case errors.Is(err, scheduler.ErrUnknownAsset):
		c.JSON(http.StatusNotFound, gin.H{"error": "UNKNOWN_ASSET", "message": "the selected asset is not available"})
	case errors.Is(err, history.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "history item not found"})
	case errors.Is(err, history.ErrOutcomeRecorded):
		c.JSON(http.StatusConflict, gin.H{"error": "OUTCOME_RECORDED", "message": "outcome already recorded for this result"})
	case errors.Is(err, history.ErrInvalidOutcome):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "INVALID_OUTCOME", "message": "outcome must be WIN or LOSS"})
	case subscription.IsSyncError(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": "SYNC_ERROR", "message": "failed to sync with the data store"})
	default:
		logging.FromContext(c.Request.Context()).WithComponent("api").WithError(err).Error("Unhandled API error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "INTERNAL_ERROR", "message": "something went wrong"})
	}
}

// --- Integrity ---

type integrityCheckRequest struct {
	DeviceTime time.Time `json:"device_time" binding:"required"`
}

// handleIntegrityCheck handles POST /api/integrity/check
func (s *Server) handleIntegrityCheck(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	var req integrityCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "VALIDATION_ERROR", "message": "device_time must be an RFC 3339 timestamp"})
		return
	}

	result := s.monitor.Check(c.Request.Context(), userID, req.DeviceTime)
	c.JSON(http.StatusOK, result)
}

// handleIntegrityStatus handles GET /api/integrity/status
func (s *Server) handleIntegrityStatus(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tampered":    s.monitor.IsTampered(c.Request.Context(), userID),
		"server_time": time.Now().Format(time.RFC3339),
	})
}

// --- Analysis ---

// handleStartAnalysis handles POST /api/analysis/start
func (s *Server) handleStartAnalysis(c *gin.Context) {
	profile, ok := s.loadProfile(c)
	if !ok {
		return
	}

	snap, err := s.scheduler.Start(c.Request.Context(), profile)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, snap)
}

// handleAnalysisStatus handles GET /api/analysis/status
func (s *Server) handleAnalysisStatus(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, s.scheduler.State(userID))
}

// handleCancelAnalysis handles POST /api/analysis/cancel
func (s *Server) handleCancelAnalysis(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	s.scheduler.Cancel(userID)
	c.JSON(http.StatusOK, gin.H{"canceled": true})
}

// --- Subscription ---

// handleGetSubscription handles GET /api/subscription
func (s *Server) handleGetSubscription(c *gin.Context) {
	profile, ok := s.loadProfile(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": auth.NewProfileResponse(profile)})
}

type redeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// handleRedeemCode handles POST /api/subscription/redeem
func (s *Server) handleRedeemCode(c *gin.Context) {
	profile, ok := s.loadProfile(c)
	if !ok {
		return
	}

	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "VALIDATION_ERROR", "message": "code is required"})
		return
	}

	updated, err := s.redemption.Redeem(c.Request.Context(), req.Code, profile)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": auth.NewProfileResponse(updated)})
}

type selectAssetRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// handleSelectAsset handles POST /api/subscription/asset
func (s *Server) handleSelectAsset(c *gin.Context) {
	profile, ok := s.loadProfile(c)
	if !ok {
		return
	}

	var req selectAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "VALIDATION_ERROR", "message": "symbol is required"})
		return
	}

	if _, err := s.feed.Snapshot(req.Symbol); err != nil {
		s.writeError(c, scheduler.ErrUnknownAsset)
		return
	}

	updated, err := s.ledger.SelectAsset(c.Request.Context(), profile, req.Symbol)
	if err != nil {
		s.writeError(c, err)
		return
	}

	// Switching assets abandons any in-flight run. The spent credit stays
	// spent.
	s.scheduler.Cancel(profile.ID)

	c.JSON(http.StatusOK, gin.H{"user": auth.NewProfileResponse(updated)})
}

// --- Market ---

// handleGetAssets handles GET /api/market/assets
func (s *Server) handleGetAssets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"assets":     s.feed.Assets(),
		"free_asset": s.ledger.FreeAsset(),
	})
}

// handleGetSeries handles GET /api/market/:symbol/series
func (s *Server) handleGetSeries(c *gin.Context) {
	points, err := s.feed.Snapshot(c.Param("symbol"))
	if err != nil {
		s.writeError(c, scheduler.ErrUnknownAsset)
		return
	}

	c.JSON(http.StatusOK, gin.H{"series": points})
}

// handleGetStats handles GET /api/market/:symbol/stats
func (s *Server) handleGetStats(c *gin.Context) {
	stats, err := s.feed.Stats(c.Param("symbol"))
	if err != nil {
		s.writeError(c, scheduler.ErrUnknownAsset)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// --- History ---

// handleListHistory handles GET /api/history
func (s *Server) handleListHistory(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	items, err := s.historySvc.List(c.Request.Context(), userID, c.Query("symbol"), c.Query("outcome"), 0)
	if err != nil {
		s.writeError(c, err)
		return
	}

	if items == nil {
		items = []*database.HistoryItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// handleHistoryStats handles GET /api/history/stats
func (s *Server) handleHistoryStats(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	stats, err := s.historySvc.Stats(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleExportHistory handles GET /api/history/export
func (s *Server) handleExportHistory(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="trade-history.csv"`)

	if err := s.historySvc.ExportCSV(c.Request.Context(), userID, c.Writer); err != nil {
		logging.FromContext(c.Request.Context()).WithComponent("api").WithError(err).Error("History export failed")
	}
}

type outcomeRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

// handleRecordOutcome handles POST /api/history/:id/outcome
func (s *Server) handleRecordOutcome(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "VALIDATION_ERROR", "message": "outcome is required"})
		return
	}

	err := s.historySvc.RecordOutcome(c.Request.Context(), userID, c.Param("id"), database.TradeOutcome(req.Outcome))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recorded": true})
}

// handleDeleteHistoryItem handles DELETE /api/history/:id
func (s *Server) handleDeleteHistoryItem(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	if err := s.historySvc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// handleClearHistory handles DELETE /api/history
func (s *Server) handleClearHistory(c *gin.Context) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return
	}

	deleted, err := s.historySvc.Clear(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
