package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gestioncalc/internal/handlers/business"
	"gestioncalc/internal/middleware"
	"gestioncalc/internal/rates"
)

// Response is the envelope of every JSON response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.As(err, new(*business.ValidationError)):
		return http.StatusBadRequest
	case errors.As(err, new(*business.FreezeViolation)):
		return http.StatusForbidden
	case errors.Is(err, rates.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, log logrus.FieldLogger, err error) {
	status := statusFor(err)
	resp := Response{Success: false, Error: err.Error()}

	var violation *business.FreezeViolation
	if errors.As(err, &violation) {
		resp.Details = gin.H{"frozen_platforms": violation.Platforms, "period_date": violation.PeriodDate}
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	c.JSON(status, resp)
}

// authorizeModel aborts with 403 when the caller may not act on modelID.
func authorizeModel(c *gin.Context, modelID string) bool {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok || !p.CanAccessModel(modelID) {
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "not allowed to access this model"})
		return false
	}
	return true
}

// requireAdmin aborts with 403 unless the caller is an admin.
func requireAdmin(c *gin.Context) bool {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok || !p.IsAdmin() {
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "admin role required"})
		return false
	}
	return true
}
