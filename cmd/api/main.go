package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"chamapool/internal/config"
	"chamapool/internal/database"
	"chamapool/internal/handlers"
	"chamapool/internal/identity"
	"chamapool/internal/logger"
	"chamapool/internal/middleware"
	"chamapool/internal/paystack"
	"chamapool/internal/services"
	"chamapool/internal/validator"
)

// @title           Chamapool API
// @version         1.0
// @description     Chamapool lets groups pool money into investment rooms, vote on what to do with the pool, and share the returns through a wallet ledger.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the identity provider token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Identity provider and payment gateway clients
	verifier := identity.NewJWTVerifier(appConfig.JWTSecret, appConfig.JWTIssuer)
	gateway := paystack.NewClient(appConfig.PaystackBaseURL, appConfig.PaystackSecretKey, appConfig.PaystackWebhookSecret)

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	walletService := services.NewWalletService(db)
	roomService := services.NewRoomService(db, walletService)
	contributionService := services.NewContributionService(db, roomService, walletService)
	investmentService := services.NewInvestmentService(db, roomService, walletService, nil)
	withdrawalService := services.NewWithdrawalService(db, walletService)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	walletHandler := handlers.NewWalletHandler(walletService, withdrawalService)
	roomHandler := handlers.NewRoomHandler(roomService)
	contributionHandler := handlers.NewContributionHandler(contributionService)
	investmentHandler := handlers.NewInvestmentHandler(investmentService)
	paystackHandler := handlers.NewPaystackHandler(gateway, userService, walletService, withdrawalService, appConfig.FrontendURL)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Gateway webhooks authenticate by signature, not bearer token
	v1.POST("/payments/webhook", paystackHandler.Webhook)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.Authenticate(verifier, userService))

	// User profile
	protected.GET("/users/me", userHandler.GetProfile)

	// Wallet routes
	wallet := protected.Group("/wallet")
	wallet.GET("", walletHandler.GetWallet)
	wallet.GET("/transactions", walletHandler.GetTransactions)
	wallet.POST("/withdrawals", walletHandler.RequestWithdrawal)
	wallet.GET("/withdrawals", walletHandler.GetWithdrawals)
	wallet.DELETE("/withdrawals/:id", walletHandler.CancelWithdrawal)

	// Room routes
	rooms := protected.Group("/rooms")
	rooms.POST("", roomHandler.CreateRoom)
	rooms.GET("", roomHandler.GetUserRooms)
	rooms.GET("/public", roomHandler.GetPublicRooms)
	rooms.POST("/join", roomHandler.JoinRoom)
	rooms.GET("/:id", roomHandler.GetRoom)
	rooms.PUT("/:id", roomHandler.UpdateRoom)
	rooms.DELETE("/:id", roomHandler.DeleteRoom)
	rooms.POST("/:id/leave", roomHandler.LeaveRoom)
	rooms.GET("/:id/members", roomHandler.GetRoomMembers)
	rooms.GET("/:id/contributions", contributionHandler.GetRoomContributions)

	// Investment routes
	rooms.POST("/:id/invest", investmentHandler.ExecuteInvestment)
	rooms.GET("/:id/analytics", investmentHandler.GetAnalytics)
	rooms.POST("/:id/votes", investmentHandler.CastVote)
	rooms.GET("/:id/votes", investmentHandler.GetVoteAggregate)
	rooms.POST("/:id/stop", investmentHandler.StopInvestment)
	rooms.GET("/:id/stop", investmentHandler.GetStopAggregate)
	rooms.POST("/:id/end", investmentHandler.EndInvestment)

	// Contribution routes
	contributions := protected.Group("/contributions")
	contributions.POST("", contributionHandler.Contribute)
	contributions.GET("", contributionHandler.GetUserContributions)
	contributions.GET("/stats", contributionHandler.GetContributionStats)

	// Payment routes
	payments := protected.Group("/payments")
	payments.POST("/topup", paystackHandler.InitializeTopUp)
	payments.GET("/verify/:reference", paystackHandler.VerifyTopUp)
	payments.POST("/withdrawals/:id/transfer", paystackHandler.TransferWithdrawal)

	// Start server
	port := appConfig.Port
	logger.Get().Infof("Starting server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
