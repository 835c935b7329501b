package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/softpaws/petkeeper/api/rest"
	"github.com/softpaws/petkeeper/audit"
	"github.com/softpaws/petkeeper/game/care"
	"github.com/softpaws/petkeeper/game/quest"
	"github.com/softpaws/petkeeper/game/wallet"
	mw "github.com/softpaws/petkeeper/middleware"
	"github.com/softpaws/petkeeper/model"
	"github.com/softpaws/petkeeper/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newGameRouter wires the full handler stack against an in-memory DB, with the
// auth middleware replaced by a fixed account id.
func newGameRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	_, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	wallets := wallet.NewService(db, logger)
	quests := quest.NewService(db, wallets, logger)
	careSvc := care.NewService(db, wallets, quests, ps, logger, 10)
	auditSvc := audit.New(db, logger)
	t.Cleanup(func() { auditSvc.Stop(context.Background()) })

	ch := rest.NewCompanionHandler(careSvc, auditSvc)
	qh := rest.NewQuestHandler(quests, careSvc, wallets, auditSvc)
	wh := rest.NewWalletHandler(wallets)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(mw.AccountIDKey, int64(1)) })
	api := r.Group("/api")
	api.POST("/companions", ch.Create)
	api.GET("/companions", ch.List)
	api.GET("/companions/:id", ch.Status)
	api.POST("/companions/:id/actions", ch.Action)
	api.GET("/quests", qh.List)
	api.POST("/quests/:key/claim", qh.Claim)
	api.GET("/wallet", wh.Get)
	return r, db
}

func getJSON(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCompanionCreate(t *testing.T) {
	r, _ := newGameRouter(t)

	w := postJSON(r, "/api/companions", map[string]interface{}{
		"name": "Mochi", "species": "axolotl",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var c model.Companion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	assert.Equal(t, "Mochi", c.Name)
	assert.Equal(t, 100, c.Health)
	assert.Equal(t, "egg", c.Stage)
}

func TestCompanionCreate_TraitBounds(t *testing.T) {
	r, _ := newGameRouter(t)

	w := postJSON(r, "/api/companions", map[string]interface{}{
		"name": "Mochi", "playful": 3.0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompanionAction_Feed(t *testing.T) {
	r, db := newGameRouter(t)
	require.NoError(t, db.Create(&model.Wallet{AccountID: 1, Balance: 100}).Error)

	w := postJSON(r, "/api/companions", map[string]interface{}{"name": "Mochi"})
	require.Equal(t, http.StatusCreated, w.Code)
	var c model.Companion
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))

	w = postJSON(r, "/api/companions/1/actions", map[string]interface{}{"action": "feed"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(-10), resp["coin_delta"])
	assert.NotEmpty(t, resp["reaction"])

	// Immediate repeat is on cooldown.
	w = postJSON(r, "/api/companions/1/actions", map[string]interface{}{"action": "feed"})
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Positive(t, resp["retry_after_s"])
}

func TestCompanionAction_InvalidAction(t *testing.T) {
	r, db := newGameRouter(t)
	require.NoError(t, db.Create(&model.Wallet{AccountID: 1, Balance: 100}).Error)
	postJSON(r, "/api/companions", map[string]interface{}{"name": "Mochi"})

	w := postJSON(r, "/api/companions/1/actions", map[string]interface{}{"action": "teleport"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompanionAction_InsufficientFunds(t *testing.T) {
	r, db := newGameRouter(t)
	require.NoError(t, db.Create(&model.Wallet{AccountID: 1, Balance: 3}).Error)
	postJSON(r, "/api/companions", map[string]interface{}{"name": "Mochi"})

	w := postJSON(r, "/api/companions/1/actions", map[string]interface{}{"action": "feed"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCompanionStatus_NotFound(t *testing.T) {
	r, _ := newGameRouter(t)
	w := getJSON(r, "/api/companions/99")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompanionList(t *testing.T) {
	r, _ := newGameRouter(t)
	postJSON(r, "/api/companions", map[string]interface{}{"name": "Mochi"})
	postJSON(r, "/api/companions", map[string]interface{}{"name": "Taro"})

	w := getJSON(r, "/api/companions")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Companions []model.Companion `json:"companions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Companions, 2)
}

func TestWalletGet(t *testing.T) {
	r, db := newGameRouter(t)
	require.NoError(t, db.Create(&model.Wallet{AccountID: 1, Balance: 42}).Error)

	w := getJSON(r, "/api/wallet")
	require.Equal(t, http.StatusOK, w.Code)
	var wal model.Wallet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wal))
	assert.Equal(t, int64(42), wal.Balance)
}

func TestQuestClaimFlow(t *testing.T) {
	r, db := newGameRouter(t)
	require.NoError(t, db.Create(&model.Wallet{AccountID: 1, Balance: 100}).Error)
	require.NoError(t, db.Create(&model.QuestDef{
		Key: "daily_feed", Description: "Feed your companion", Type: model.QuestTypeDaily,
		Difficulty: "normal", ActionKey: "feed", TargetValue: 1, RewardCoins: 100, Published: true,
	}).Error)
	postJSON(r, "/api/companions", map[string]interface{}{"name": "Mochi"})

	// Feed completes the quest and starts a 1-day streak.
	w := postJSON(r, "/api/companions/1/actions", map[string]interface{}{"action": "feed"})
	require.Equal(t, http.StatusOK, w.Code)

	w = getJSON(r, "/api/quests")
	require.Equal(t, http.StatusOK, w.Code)
	var listResp struct {
		Quests []quest.Entry `json:"quests"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Quests, 1)
	require.NotNil(t, listResp.Quests[0].Progress)
	assert.Equal(t, model.QuestStatusCompleted, listResp.Quests[0].Progress.Status)

	// Claim: 100 coins * normal 1.2 * streak 1.1 = 132.
	w = postJSON(r, "/api/quests/daily_feed/claim", map[string]interface{}{"companion_id": 1})
	require.Equal(t, http.StatusOK, w.Code)

	var wal model.Wallet
	require.NoError(t, db.Where("account_id = ?", 1).First(&wal).Error)
	assert.Equal(t, int64(100-10+132), wal.Balance)

	// Second claim is rejected.
	w = postJSON(r, "/api/quests/daily_feed/claim", map[string]interface{}{"companion_id": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestQuestClaim_UnknownQuest(t *testing.T) {
	r, _ := newGameRouter(t)
	postJSON(r, "/api/companions", map[string]interface{}{"name": "Mochi"})
	w := postJSON(r, "/api/quests/nope/claim", map[string]interface{}{"companion_id": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
