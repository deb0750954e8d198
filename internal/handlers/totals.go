package handlers

import (
	"github.com/gin-gonic/gin"
)

// TotalsRequest is the body of the totals recalculation endpoints.
type TotalsRequest struct {
	ModelID    string `json:"modelId"`
	PeriodDate string `json:"periodDate"`
}

// GetTotals returns the consolidated totals of a model
// Query parameters: modelId (required), periodDate (default: current period)
func (h *Handler) GetTotals(c *gin.Context) {
	modelID := c.Query("modelId")
	if modelID == "" {
		respondBadRequest(c, "modelId is required")
		return
	}
	if !authorizeModel(c, modelID) {
		return
	}

	totals, err := h.Totals.Get(c.Request.Context(), modelID, c.Query("periodDate"), h.clockNow())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, totals)
}

// SaveTotals recomputes and stores the totals of a model. Totals are always
// derived from live values; client-supplied amounts are not accepted.
func (h *Handler) SaveTotals(c *gin.Context) {
	var req TotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.ModelID == "" {
		respondBadRequest(c, "modelId is required")
		return
	}
	if !authorizeModel(c, req.ModelID) {
		return
	}

	comp, err := h.Totals.Recalculate(c.Request.Context(), req.ModelID, req.PeriodDate, h.clockNow())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, comp)
}

// RecalculateTotals recomputes one model when modelId is given, otherwise
// every active model (admin only)
func (h *Handler) RecalculateTotals(c *gin.Context) {
	var req TotalsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	if req.ModelID != "" {
		if !authorizeModel(c, req.ModelID) {
			return
		}
		comp, err := h.Totals.Recalculate(c.Request.Context(), req.ModelID, req.PeriodDate, h.clockNow())
		if err != nil {
			respondError(c, h.Log, err)
			return
		}
		respondOK(c, comp)
		return
	}

	if !requireAdmin(c) {
		return
	}
	result, err := h.Totals.RecalculateAll(c.Request.Context(), req.PeriodDate, h.clockNow())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, result)
}

// SyncMissingTotals rebuilds totals for models that have values but no cache
func (h *Handler) SyncMissingTotals(c *gin.Context) {
	result, err := h.Totals.SyncMissing(c.Request.Context(), h.clockNow())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, result)
}
