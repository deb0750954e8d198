package handlers

import (
	"github.com/gin-gonic/gin"

	"gestioncalc/internal/models"
)

// SetRateRequest is the body of POST /rates.
type SetRateRequest struct {
	Kind  models.RateKind `json:"kind"`
	Value float64         `json:"value"`
}

// GetCurrentRates returns the rates the calculator uses right now
func (h *Handler) GetCurrentRates(c *gin.Context) {
	respondOK(c, h.Rates.Current(c.Request.Context()))
}

// SetRate stores a manual rate snapshot (admin only)
func (h *Handler) SetRate(c *gin.Context) {
	var req SetRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if !validKind(req.Kind) {
		respondBadRequest(c, "kind must be one of USD_COP, EUR_USD, GBP_USD")
		return
	}
	if req.Value <= 0 {
		respondBadRequest(c, "value must be positive")
		return
	}

	rate, err := h.Rates.Set(c.Request.Context(), req.Kind, req.Value, "manual")
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, rate)
}

// RefreshRates pulls rates from the upstream source
func (h *Handler) RefreshRates(c *gin.Context) {
	values, err := h.Rates.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, gin.H{"rates": values})
}

func validKind(kind models.RateKind) bool {
	for _, k := range models.RateKinds {
		if k == kind {
			return true
		}
	}
	return false
}
