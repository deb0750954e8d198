package handlers

import (
	"github.com/gin-gonic/gin"
)

// GetHistory returns the archived values of a model for a closed period
// Query parameters: modelId (required), periodDate (required, any date of the period)
func (h *Handler) GetHistory(c *gin.Context) {
	modelID := c.Query("modelId")
	if modelID == "" {
		respondBadRequest(c, "modelId is required")
		return
	}
	if !authorizeModel(c, modelID) {
		return
	}
	bucket, err := h.Clock.Normalize(c.Query("periodDate"))
	if err != nil {
		respondBadRequest(c, "periodDate is required as YYYY-MM-DD")
		return
	}

	records, err := h.History.List(c.Request.Context(), modelID, bucket)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, gin.H{"model_id": modelID, "period_date": bucket, "records": records})
}
