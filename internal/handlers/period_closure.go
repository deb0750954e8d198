package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"gestioncalc/internal/handlers/business"
)

// FrozenPlatformsRequest is the body of POST frozen-platforms.
type FrozenPlatformsRequest struct {
	Action      string   `json:"action"`
	ModelID     string   `json:"modelId"`
	PeriodDate  string   `json:"periodDate"`
	PlatformIDs []string `json:"platformIds"`
}

// FrozenPlatformsResp describes the frozen platforms of a model.
type FrozenPlatformsResp struct {
	ModelID        string            `json:"model_id"`
	PeriodDate     string            `json:"period_date"`
	PeriodType     string            `json:"period_type"`
	Cutoff         time.Time         `json:"cutoff"`
	CutoffPassed   bool              `json:"cutoff_passed"`
	EarlyPlatforms []string          `json:"early_platforms"`
	Frozen         map[string]string `json:"frozen"`
}

// CheckClosureStatus returns the clock snapshot and the closure state of the
// previous period
func (h *Handler) CheckClosureStatus(c *gin.Context) {
	report, err := h.Closure.Status(c.Request.Context(), h.clockNow())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, report)
}

// FullClose runs the period closure
// Body (optional): {"periodDate": "YYYY-MM-DD", "force": bool}
func (h *Handler) FullClose(c *gin.Context) {
	var req business.CloseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	result, err := h.Closure.Close(c.Request.Context(), req, h.clockNow())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, result)
}

// EarlyFreeze writes the automatic markers once the foreign cutoff passed
func (h *Handler) EarlyFreeze(c *gin.Context) {
	report, err := h.Guard.RunEarlyFreeze(c.Request.Context(), h.Configs, h.clockNow())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, report)
}

// RunWatchdog checks that the previous period was closed
func (h *Handler) RunWatchdog(c *gin.Context) {
	report, err := h.Watchdog.Check(c.Request.Context(), h.clockNow())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, report)
}

// GetFrozenPlatforms lists the frozen platforms of a model
// Query parameters: modelId (required), periodDate (default: current period)
func (h *Handler) GetFrozenPlatforms(c *gin.Context) {
	modelID := c.Query("modelId")
	if modelID == "" {
		respondBadRequest(c, "modelId is required")
		return
	}
	if !authorizeModel(c, modelID) {
		return
	}

	now := h.clockNow()
	p, err := h.Clock.Resolve(c.Query("periodDate"), now)
	if err != nil {
		respondBadRequest(c, "invalid periodDate")
		return
	}
	frozen, err := h.Guard.FrozenPlatforms(c.Request.Context(), modelID, p, now)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	respondOK(c, FrozenPlatformsResp{
		ModelID:        modelID,
		PeriodDate:     p.BucketDate(),
		PeriodType:     string(p.Type),
		Cutoff:         h.Guard.Cutoff(p),
		CutoffPassed:   h.Guard.CutoffPassed(p, now),
		EarlyPlatforms: h.Guard.EarlyPlatforms(),
		Frozen:         frozen,
	})
}

// UpdateFrozenPlatforms freezes or unfreezes platforms (admin only)
// Body: {"action": "freeze"|"unfreeze", "modelId", "periodDate", "platformIds": []}
func (h *Handler) UpdateFrozenPlatforms(c *gin.Context) {
	var req FrozenPlatformsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	now := h.clockNow()
	p, err := h.Clock.Resolve(req.PeriodDate, now)
	if err != nil {
		respondBadRequest(c, "invalid periodDate")
		return
	}

	switch req.Action {
	case "freeze":
		if err := h.Guard.Freeze(c.Request.Context(), req.ModelID, p, req.PlatformIDs, now); err != nil {
			respondError(c, h.Log, err)
			return
		}
		respondOK(c, gin.H{"action": req.Action, "period_date": p.BucketDate(), "platforms": req.PlatformIDs})
	case "unfreeze":
		n, err := h.Guard.Unfreeze(c.Request.Context(), req.ModelID, p, req.PlatformIDs)
		if err != nil {
			respondError(c, h.Log, err)
			return
		}
		respondOK(c, gin.H{"action": req.Action, "period_date": p.BucketDate(), "removed": n})
	default:
		respondBadRequest(c, "action must be freeze or unfreeze")
	}
}
