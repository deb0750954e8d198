package handlers

import (
	"github.com/gin-gonic/gin"

	"gestioncalc/internal/handlers/business"
)

// LiveValuesRequest is the body of POST /calculator/live-values.
type LiveValuesRequest struct {
	ModelID    string             `json:"modelId"`
	PeriodDate string             `json:"periodDate"`
	Values     map[string]float64 `json:"values"`
}

// GetLiveValues returns the reconciled live values of a model
// Query parameters: modelId (required), periodDate (default: current period)
func (h *Handler) GetLiveValues(c *gin.Context) {
	modelID := c.Query("modelId")
	if modelID == "" {
		respondBadRequest(c, "modelId is required")
		return
	}
	if !authorizeModel(c, modelID) {
		return
	}

	values, err := h.Values.Get(c.Request.Context(), modelID, c.Query("periodDate"), h.clockNow())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, values)
}

// SaveLiveValues stores live values after the freeze check
func (h *Handler) SaveLiveValues(c *gin.Context) {
	var req LiveValuesRequest
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

	saved, err := h.Values.Save(c.Request.Context(), business.SaveRequest{
		ModelID:    req.ModelID,
		PeriodDate: req.PeriodDate,
		Values:     req.Values,
	}, h.clockNow())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, saved)
}
