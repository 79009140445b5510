package server

import (
	"log"
	"strings"
	"time"

	"bayanika.app/backend/internal/authz"
	"bayanika.app/backend/internal/config"
	"bayanika.app/backend/internal/middleware"
	"bayanika.app/backend/pkg/chain"
	"bayanika.app/backend/pkg/storage"

	activityHttp "bayanika.app/backend/internal/modules/activity/delivery/http"
	activityRepo "bayanika.app/backend/internal/modules/activity/repository"
	activityService "bayanika.app/backend/internal/modules/activity/service"

	badgeHttp "bayanika.app/backend/internal/modules/badge/delivery/http"
	badgeRepo "bayanika.app/backend/internal/modules/badge/repository"
	badgeService "bayanika.app/backend/internal/modules/badge/service"

	gamificationService "bayanika.app/backend/internal/modules/gamification/service"

	leaderboardHttp "bayanika.app/backend/internal/modules/leaderboard/delivery/http"
	leaderboardRepo "bayanika.app/backend/internal/modules/leaderboard/repository"
	leaderboardService "bayanika.app/backend/internal/modules/leaderboard/service"

	notiHttp "bayanika.app/backend/internal/modules/notification/delivery/http"
	notifRepo "bayanika.app/backend/internal/modules/notification/repository"
	notifService "bayanika.app/backend/internal/modules/notification/service"

	proofHttp "bayanika.app/backend/internal/modules/proof/delivery/http"
	proofRepo "bayanika.app/backend/internal/modules/proof/repository"
	proofService "bayanika.app/backend/internal/modules/proof/service"

	rewardHttp "bayanika.app/backend/internal/modules/reward/delivery/http"
	rewardRepo "bayanika.app/backend/internal/modules/reward/repository"
	rewardService "bayanika.app/backend/internal/modules/reward/service"

	searchService "bayanika.app/backend/internal/modules/search/service"

	userHttp "bayanika.app/backend/internal/modules/user/delivery/http"
	userRepo "bayanika.app/backend/internal/modules/user/repository"
	userService "bayanika.app/backend/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	users := userRepo.NewUserRepository(db)
	activities := activityRepo.NewActivityRepository(db)
	proofs := proofRepo.NewProofRepository(db)
	rewards := rewardRepo.NewRewardRepository(db)
	badges := badgeRepo.NewBadgeRepository(db)
	leaderboards := leaderboardRepo.NewLeaderboardRepository(db)
	notifications := notifRepo.NewNotificationRepository(db)

	imageStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Fatalf("failed to initialize cloudinary storage: %v", err)
	}

	meiliHost := cfg.MeiliSearchHost
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}
	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	searchSvc := searchService.NewSearchService(meiliClient)

	var notary chain.Notary
	if cfg.ChainPrivateKey != "" {
		notary, err = chain.Dial(cfg.ChainRPCURL, cfg.ChainPrivateKey)
		if err != nil {
			log.Printf("on-chain notarization disabled: %v", err)
			notary = nil
		}
	}

	notificationSvc := notifService.NewNotificationService(notifications, redisClient)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient)

	badgeSvc := badgeService.NewBadgeService(badges, users, proofs)
	badgeHandler := badgeHttp.NewBadgeHandler(badgeSvc)

	leaderboardSvc := leaderboardService.NewLeaderboardService(leaderboards, redisClient, cfg.LeaderboardCacheTTL)
	leaderboardHandler := leaderboardHttp.NewLeaderboardHandler(leaderboardSvc)

	awardSvc := gamificationService.NewGamificationService(users, proofs, badgeSvc, notificationSvc, leaderboardSvc)

	userSvc := userService.NewUserService(users, proofs, badgeSvc, searchSvc, cfg.JWTSecret, cfg.JWTTTL)
	userHandler := userHttp.NewUserHandler(userSvc)

	activitySvc := activityService.NewActivityService(activities, proofs, awardSvc, searchSvc, imageStorage)
	activityHandler := activityHttp.NewActivityHandler(activitySvc)

	proofSvc := proofService.NewProofService(proofs, activities, users, awardSvc, notificationSvc, imageStorage, notary)
	proofHandler := proofHttp.NewProofHandler(proofSvc)

	rewardSvc := rewardService.NewRewardService(rewards, users, notificationSvc, leaderboardSvc, imageStorage)
	rewardHandler := rewardHttp.NewRewardHandler(rewardSvc)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(users, cfg.JWTSecret)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", userHandler.Register)
		auth.POST("/login", userHandler.Login)
	}
	api.GET("/activities", activityHandler.GetActivities)
	api.GET("/activities/:id", activityHandler.GetActivity)
	api.GET("/rewards", rewardHandler.GetRewards)
	api.GET("/rewards/:id", rewardHandler.GetReward)
	api.GET("/badges", badgeHandler.ListBadges)
	api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Profile routes
		protected.GET("/users/me", userHandler.GetProfile)
		protected.POST("/users/me/wallet", userHandler.ConnectWallet)
		protected.GET("/users/me/badges", badgeHandler.GetMyBadges)

		// Activity routes
		protected.POST("/activities", authMiddleware.RequireOperation(authz.CreateActivity), activityHandler.CreateActivity)
		protected.PUT("/activities/:id", authMiddleware.RequireOperation(authz.UpdateActivity), activityHandler.UpdateActivity)
		protected.DELETE("/activities/:id", authMiddleware.RequireOperation(authz.DeleteActivity), activityHandler.DeleteActivity)
		protected.POST("/activities/:id/join", activityHandler.Join)
		protected.POST("/activities/:id/attendance", authMiddleware.RequireOperation(authz.MarkAttendance), activityHandler.MarkAttendance)

		// Proof routes
		protected.POST("/activities/:id/proofs", proofHandler.SubmitProof)
		protected.GET("/proofs/me", proofHandler.GetMyProofs)
		protected.GET("/proofs/pending", authMiddleware.RequireOperation(authz.ListPendingProofs), proofHandler.ListPending)
		protected.POST("/proofs/:id/approve", authMiddleware.RequireOperation(authz.ApproveProof), proofHandler.ApproveProof)
		protected.POST("/proofs/:id/reject", authMiddleware.RequireOperation(authz.RejectProof), proofHandler.RejectProof)
		protected.POST("/proofs/:id/mint", proofHandler.Mint)

		// Reward routes
		protected.POST("/rewards", authMiddleware.RequireOperation(authz.ManageRewards), rewardHandler.CreateReward)
		protected.PUT("/rewards/:id", authMiddleware.RequireOperation(authz.ManageRewards), rewardHandler.UpdateReward)
		protected.DELETE("/rewards/:id", authMiddleware.RequireOperation(authz.ManageRewards), rewardHandler.DeleteReward)
		protected.POST("/rewards/:id/redeem", rewardHandler.Redeem)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
