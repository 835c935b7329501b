package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/softpaws/petkeeper/audit"
	"github.com/softpaws/petkeeper/game/care"
	"github.com/softpaws/petkeeper/game/evolution"
	"github.com/softpaws/petkeeper/game/quest"
	"github.com/softpaws/petkeeper/game/reward"
	"github.com/softpaws/petkeeper/game/wallet"
	mw "github.com/softpaws/petkeeper/middleware"
)

// QuestHandler handles quest REST endpoints.
type QuestHandler struct {
	quests  *quest.Service
	care    *care.Service
	wallets *wallet.Service
	audit   *audit.Service
}

// NewQuestHandler creates a new QuestHandler.
func NewQuestHandler(quests *quest.Service, careSvc *care.Service, wallets *wallet.Service, auditSvc *audit.Service) *QuestHandler {
	return &QuestHandler{quests: quests, care: careSvc, wallets: wallets, audit: auditSvc}
}

// List handles GET /api/quests.
func (h *QuestHandler) List(c *gin.Context) {
	entries, err := h.quests.List(c.Request.Context(), mw.GetAccountID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": entries})
}

type claimRequest struct {
	CompanionID int64 `json:"companion_id" binding:"required"`
}

// Claim handles POST /api/quests/:key/claim. The coin reward is paid with the
// claim; the xp portion lands on the chosen companion, which may trigger an
// evolution.
func (h *QuestHandler) Claim(c *gin.Context) {
	questKey := c.Param("key")
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accountID := mw.GetAccountID(c)
	ctx := c.Request.Context()
	now := time.Now()

	companion, err := h.care.Get(ctx, accountID, req.CompanionID)
	if errors.Is(err, care.ErrCompanionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "companion not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	w, err := h.wallets.Get(ctx, accountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	rctx := reward.Context{
		StreakDays: w.StreakDays,
		Stage:      evolution.Stage(companion.Stage),
	}
	start := time.Now()
	outcome, err := h.quests.Claim(ctx, accountID, questKey, rctx, now)

	entry := audit.AuditEntry{
		TraceID:     mw.GetTraceID(c),
		AccountID:   &accountID,
		CompanionID: &req.CompanionID,
		Action:      "quest.claim",
		Request:     gin.H{"quest": questKey, "companion_id": req.CompanionID},
		IP:          c.ClientIP(),
		DurationMs:  int(time.Since(start).Milliseconds()),
	}

	if err != nil {
		entry.Error = err.Error()
		h.audit.Log(entry)
		switch {
		case errors.Is(err, quest.ErrQuestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		case errors.Is(err, quest.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "quest is not claimable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	var evolved bool
	if outcome.XP > 0 {
		companion, evolved, err = h.care.GrantXP(ctx, accountID, req.CompanionID, outcome.XP, now)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
	}

	entry.Response = gin.H{"coins": outcome.Coins, "xp": outcome.XP, "evolved": evolved}
	h.audit.Log(entry)

	c.JSON(http.StatusOK, gin.H{
		"reward":    outcome,
		"companion": companion,
		"evolved":   evolved,
	})
}
