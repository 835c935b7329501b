package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/softpaws/petkeeper/model"
	"github.com/softpaws/petkeeper/scheduler"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AdminAuth guards admin endpoints with a static key. An empty configured key
// disables the endpoints entirely.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" || c.GetHeader("X-Admin-Key") != adminKey {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// AdminHandler handles operational endpoints: quest catalog management,
// scheduler inspection and broadcast announcements.
type AdminHandler struct {
	db    *gorm.DB
	sched *scheduler.Scheduler
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *gorm.DB, sched *scheduler.Scheduler) *AdminHandler {
	return &AdminHandler{db: db, sched: sched}
}

type createQuestRequest struct {
	Key         string   `json:"key" binding:"required,min=2,max=64"`
	Description string   `json:"description" binding:"max=255"`
	Type        string   `json:"type" binding:"required,oneof=daily weekly event"`
	Difficulty  string   `json:"difficulty" binding:"required,oneof=easy normal hard heroic"`
	ActionKey   string   `json:"action_key" binding:"required"`
	TargetValue int      `json:"target_value" binding:"required,min=1"`
	RewardCoins int64    `json:"reward_coins" binding:"min=0"`
	RewardXP    int64    `json:"reward_xp" binding:"min=0"`
	RewardItems []string `json:"reward_items"`
}

// CreateQuest handles POST /api/admin/quests. New quests are published
// immediately; published definitions are never mutated, only superseded.
func (h *AdminHandler) CreateQuest(c *gin.Context) {
	var req createQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	def := model.QuestDef{
		Key:         req.Key,
		Description: req.Description,
		Type:        req.Type,
		Difficulty:  req.Difficulty,
		ActionKey:   req.ActionKey,
		TargetValue: req.TargetValue,
		RewardCoins: req.RewardCoins,
		RewardXP:    req.RewardXP,
		Published:   true,
	}
	if len(req.RewardItems) > 0 {
		items, _ := json.Marshal(req.RewardItems)
		def.RewardItems = datatypes.JSON(items)
	}
	if err := h.db.Create(&def).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "quest key already exists"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}
	c.JSON(http.StatusCreated, def)
}

// UnpublishQuest handles POST /api/admin/quests/:key/unpublish. Retired quests
// stop counting events but keep their rows for claimed-reward history.
func (h *AdminHandler) UnpublishQuest(c *gin.Context) {
	res := h.db.Model(&model.QuestDef{}).
		Where("key = ?", c.Param("key")).
		Update("published", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "quest not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unpublished"})
}

// ListSchedulerTasks handles GET /api/admin/scheduler.
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tickers": h.sched.ListTickers()})
}
