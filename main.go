package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/softpaws/petkeeper/api/rest"
	"github.com/softpaws/petkeeper/api/sse"
	"github.com/softpaws/petkeeper/audit"
	"github.com/softpaws/petkeeper/cache"
	"github.com/softpaws/petkeeper/config"
	dbadapter "github.com/softpaws/petkeeper/db"
	"github.com/softpaws/petkeeper/game/care"
	"github.com/softpaws/petkeeper/game/quest"
	"github.com/softpaws/petkeeper/game/wallet"
	mw "github.com/softpaws/petkeeper/middleware"
	"github.com/softpaws/petkeeper/model"
	"github.com/softpaws/petkeeper/scheduler"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	if err := seedQuestCatalog(db); err != nil {
		log.Fatalf("quest seed: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Services ----
	walletSvc := wallet.NewService(db, logger)
	questSvc := quest.NewService(db, walletSvc, logger)
	careSvc := care.NewService(db, walletSvc, questSvc, pubsub, logger, cfg.Game.ActionXP)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	staleAfter := time.Duration(cfg.Game.DecayStaleMin) * time.Minute
	sched.AddTicker("decay_sweep", time.Duration(cfg.Game.DecayTickMin)*time.Minute, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if n, err := careSvc.DecaySweep(ctx, staleAfter, time.Now()); err != nil {
			logger.Error("decay sweep failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("decay sweep", zap.Int("companions", n))
		}
	})
	sched.AddTicker("quest_reset", time.Duration(cfg.Game.QuestResetTickMin)*time.Minute, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := questSvc.ResetDue(ctx, time.Now()); err != nil {
			logger.Error("quest reset failed", zap.Error(err))
		}
	})
	sched.AddTicker("snapshot_prune", time.Hour, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		keep := time.Duration(cfg.Game.SnapshotKeepDays) * 24 * time.Hour
		if _, err := careSvc.PruneSnapshots(ctx, keep, time.Now()); err != nil {
			logger.Error("snapshot prune failed", zap.Error(err))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security, cfg.Game.StartingBalance)
	companionH := apirest.NewCompanionHandler(careSvc, auditSvc)
	questH := apirest.NewQuestHandler(questSvc, careSvc, walletSvc, auditSvc)
	walletH := apirest.NewWalletHandler(walletSvc)
	adminH := apirest.NewAdminHandler(db, sched)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		companionsG := api.Group("/companions")
		companionsG.Use(mw.Auth(cfg.Security, c))
		companionsG.POST("", companionH.Create)
		companionsG.GET("", companionH.List)
		companionsG.GET("/:id", companionH.Status)
		companionsG.POST("/:id/actions", companionH.Action)

		questsG := api.Group("/quests")
		questsG.Use(mw.Auth(cfg.Security, c))
		questsG.GET("", questH.List)
		questsG.POST("/:key/claim", questH.Claim)

		api.GET("/wallet", mw.Auth(cfg.Security, c), walletH.Get)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.POST("/quests", adminH.CreateQuest)
		adminG.POST("/quests/:key/unpublish", adminH.UnpublishQuest)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
	}

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// seedQuestCatalog inserts the default quest definitions on first boot. An
// already-populated catalog is left alone.
func seedQuestCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.QuestDef{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	items := func(names ...string) datatypes.JSON {
		b, _ := json.Marshal(names)
		return datatypes.JSON(b)
	}
	defs := []model.QuestDef{
		{Key: "daily_feed", Description: "Feed your companion 3 times", Type: model.QuestTypeDaily,
			Difficulty: "easy", ActionKey: "feed", TargetValue: 3, RewardCoins: 50, RewardXP: 20, Published: true},
		{Key: "daily_play", Description: "Play with your companion", Type: model.QuestTypeDaily,
			Difficulty: "easy", ActionKey: "play", TargetValue: 1, RewardCoins: 30, RewardXP: 15, Published: true},
		{Key: "daily_bathe", Description: "Give your companion a bath", Type: model.QuestTypeDaily,
			Difficulty: "normal", ActionKey: "bathe", TargetValue: 1, RewardCoins: 40, RewardXP: 25, Published: true},
		{Key: "weekly_play", Description: "Play together 10 times this week", Type: model.QuestTypeWeekly,
			Difficulty: "hard", ActionKey: "play", TargetValue: 10, RewardCoins: 200, RewardXP: 100,
			RewardItems: items("ribbon"), Published: true},
		{Key: "weekly_rest", Description: "Let your companion rest 5 times this week", Type: model.QuestTypeWeekly,
			Difficulty: "normal", ActionKey: "rest", TargetValue: 5, RewardCoins: 120, RewardXP: 60, Published: true},
	}
	return db.Create(&defs).Error
}
