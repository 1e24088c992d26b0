package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"chamapool/internal/handlers"
	"chamapool/internal/identity"
	"chamapool/internal/logger"
	"chamapool/internal/middleware"
	"chamapool/internal/models"
	"chamapool/internal/paystack"
	"chamapool/internal/services"
	"chamapool/internal/validator"
)

const (
	testJWTSecret = "integration-test-secret"
	testJWTIssuer = "chamapool-identity"

	testWebhookSecret = "integration-webhook-secret"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB      *gorm.DB
	Router  *gin.Engine
	Gateway *paystack.Client
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Wallet{},
		&models.WalletTransaction{},
		&models.InvestmentRoom{},
		&models.RoomMember{},
		&models.Contribution{},
		&models.RecommendationVote{},
		&models.StopVote{},
		&models.InvestmentExecution{},
		&models.InvestmentAnalytics{},
		&models.Withdrawal{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// fixedGrowth makes investment valuations deterministic in tests.
type fixedGrowth struct{ pct float64 }

func (g fixedGrowth) NextPeriod(prior int64) (int64, float64) {
	next := prior + int64(float64(prior)*g.pct)
	return next, g.pct * 100
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite database. gatewayURL points the Paystack client at a test server;
// pass "" when the test never touches the gateway.
func setupApp(t *testing.T, gatewayURL string) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	verifier := identity.NewJWTVerifier(testJWTSecret, testJWTIssuer)
	gateway := paystack.NewClient(gatewayURL, "sk_test_integration", testWebhookSecret)

	// Services
	userService := services.NewUserService(db)
	walletService := services.NewWalletService(db)
	roomService := services.NewRoomService(db, walletService)
	contributionService := services.NewContributionService(db, roomService, walletService)
	investmentService := services.NewInvestmentService(db, roomService, walletService, fixedGrowth{pct: 0.05})
	withdrawalService := services.NewWithdrawalService(db, walletService)

	// Handlers
	userHandler := handlers.NewUserHandler(userService)
	walletHandler := handlers.NewWalletHandler(walletService, withdrawalService)
	roomHandler := handlers.NewRoomHandler(roomService)
	contributionHandler := handlers.NewContributionHandler(contributionService)
	investmentHandler := handlers.NewInvestmentHandler(investmentService)
	paystackHandler := handlers.NewPaystackHandler(gateway, userService, walletService, withdrawalService, "http://localhost:3000")

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")
	v1.POST("/payments/webhook", paystackHandler.Webhook)

	protected := v1.Group("/")
	protected.Use(middleware.Authenticate(verifier, userService))

	protected.GET("/users/me", userHandler.GetProfile)

	wallet := protected.Group("/wallet")
	wallet.GET("", walletHandler.GetWallet)
	wallet.GET("/transactions", walletHandler.GetTransactions)
	wallet.POST("/withdrawals", walletHandler.RequestWithdrawal)
	wallet.GET("/withdrawals", walletHandler.GetWithdrawals)
	wallet.DELETE("/withdrawals/:id", walletHandler.CancelWithdrawal)

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
	rooms.POST("/:id/invest", investmentHandler.ExecuteInvestment)
	rooms.GET("/:id/analytics", investmentHandler.GetAnalytics)
	rooms.POST("/:id/votes", investmentHandler.CastVote)
	rooms.GET("/:id/votes", investmentHandler.GetVoteAggregate)
	rooms.POST("/:id/stop", investmentHandler.StopInvestment)
	rooms.GET("/:id/stop", investmentHandler.GetStopAggregate)
	rooms.POST("/:id/end", investmentHandler.EndInvestment)

	contributions := protected.Group("/contributions")
	contributions.POST("", contributionHandler.Contribute)
	contributions.GET("", contributionHandler.GetUserContributions)
	contributions.GET("/stats", contributionHandler.GetContributionStats)

	payments := protected.Group("/payments")
	payments.POST("/topup", paystackHandler.InitializeTopUp)
	payments.GET("/verify/:reference", paystackHandler.VerifyTopUp)
	payments.POST("/withdrawals/:id/transfer", paystackHandler.TransferWithdrawal)

	return &testApp{DB: db, Router: router, Gateway: gateway}
}

// signToken mints an identity-provider token for the given subject.
func signToken(t *testing.T, subject, email, name string) string {
	t.Helper()

	claims := identity.Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    testJWTIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// provisionUser resolves a token's user through the API and funds the wallet
// directly so that flow tests can start from a known balance.
func (app *testApp) provisionUser(t *testing.T, subject string, balance int64) (token, userID string) {
	t.Helper()

	token = signToken(t, subject, subject+"@test.com", "Test "+subject)
	rec := app.request("GET", "/api/v1/users/me", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile request failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	userID = user["id"].(string)

	if balance > 0 {
		wallet := &models.Wallet{UserID: userID, Balance: balance, TotalDeposited: balance, Currency: "KES"}
		if err := app.DB.Create(wallet).Error; err != nil {
			t.Fatalf("failed to fund test wallet: %v", err)
		}
	}
	return token, userID
}
