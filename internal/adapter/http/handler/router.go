package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	TokenSvc       ports.TokenService
	HashSvc        ports.HashService
	APIKeyHashes   []string
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	v1 := r.Group("/api/v1")
	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)

	// --- API-key-authenticated routes (internal services mutating balances) ---
	apiKeyAuth := middleware.APIKeyAuth(deps.HashSvc, deps.APIKeyHashes, deps.Logger)
	ledger := v1.Group("/ledger", apiKeyAuth)
	{
		ledger.POST("/credit", ledgerHandler.Credit)
		ledger.POST("/debit", ledgerHandler.Debit)
		ledger.POST("/transfer", ledgerHandler.Transfer)
		ledger.POST("/lock", ledgerHandler.Lock)
		ledger.POST("/unlock", ledgerHandler.Unlock)
	}

	// --- JWT-authenticated routes (read side) ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.GET("/:owner_id/:asset", ledgerHandler.GetWallet)
		wallets.GET("/:owner_id/:asset/entries", ledgerHandler.GetHistory)
	}

	return r
}
