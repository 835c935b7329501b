package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/softpaws/petkeeper/audit"
	"github.com/softpaws/petkeeper/game/care"
	"github.com/softpaws/petkeeper/game/stats"
	mw "github.com/softpaws/petkeeper/middleware"
)

// CompanionHandler handles companion REST endpoints.
type CompanionHandler struct {
	care  *care.Service
	audit *audit.Service
}

// NewCompanionHandler creates a new CompanionHandler.
func NewCompanionHandler(careSvc *care.Service, auditSvc *audit.Service) *CompanionHandler {
	return &CompanionHandler{care: careSvc, audit: auditSvc}
}

type createCompanionRequest struct {
	Name    string  `json:"name" binding:"required,min=1,max=32"`
	Species string  `json:"species" binding:"max=32"`
	Playful float64 `json:"playful"`
	Calm    float64 `json:"calm"`
	Active  float64 `json:"active"`
}

// Personality modifiers outside this range would make decay degenerate.
const (
	minTrait = 0.5
	maxTrait = 1.5
)

func validTrait(v float64) bool {
	return v == 0 || (v >= minTrait && v <= maxTrait)
}

// Create handles POST /api/companions.
func (h *CompanionHandler) Create(c *gin.Context) {
	var req createCompanionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validTrait(req.Playful) || !validTrait(req.Calm) || !validTrait(req.Active) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "traits must be between 0.5 and 1.5"})
		return
	}

	accountID := mw.GetAccountID(c)
	companion, err := h.care.CreateCompanion(c.Request.Context(), accountID, req.Name, req.Species, stats.PersonalityTraits{
		Playful: req.Playful,
		Calm:    req.Calm,
		Active:  req.Active,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, companion)
}

// List handles GET /api/companions.
func (h *CompanionHandler) List(c *gin.Context) {
	companions, err := h.care.List(c.Request.Context(), mw.GetAccountID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"companions": companions})
}

// Status handles GET /api/companions/:id. The returned stats include decay
// projected to now; the stored row is untouched.
func (h *CompanionHandler) Status(c *gin.Context) {
	companionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid companion id"})
		return
	}
	status, err := h.care.Status(c.Request.Context(), mw.GetAccountID(c), companionID, time.Now())
	if errors.Is(err, care.ErrCompanionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "companion not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, status)
}

// Action handles POST /api/companions/:id/actions.
func (h *CompanionHandler) Action(c *gin.Context) {
	companionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid companion id"})
		return
	}
	var req care.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accountID := mw.GetAccountID(c)
	start := time.Now()
	res, err := h.care.PerformAction(c.Request.Context(), accountID, companionID, req, start)

	entry := audit.AuditEntry{
		TraceID:     mw.GetTraceID(c),
		AccountID:   &accountID,
		CompanionID: &companionID,
		Action:      "care." + string(req.Action),
		Request:     req,
		IP:          c.ClientIP(),
		DurationMs:  int(time.Since(start).Milliseconds()),
	}

	if err != nil {
		entry.Error = err.Error()
		h.audit.Log(entry)

		var cdErr *care.CooldownError
		switch {
		case errors.As(err, &cdErr):
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":         "action on cooldown",
				"action":        string(cdErr.Action),
				"retry_after_s": cdErr.RemainingSeconds(),
			})
		case errors.Is(err, care.ErrInsufficientFunds):
			c.JSON(http.StatusConflict, gin.H{"error": "insufficient funds"})
		case errors.Is(err, care.ErrInvalidAction):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid action"})
		case errors.Is(err, care.ErrCompanionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "companion not found"})
		case errors.Is(err, care.ErrVersionConflict):
			c.JSON(http.StatusConflict, gin.H{"error": "companion was modified concurrently, retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	entry.Response = gin.H{
		"mood":       res.Mood,
		"coin_delta": res.CoinDelta,
		"evolved":    res.Evolved,
	}
	h.audit.Log(entry)
	c.JSON(http.StatusOK, res)
}
