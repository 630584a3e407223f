// Package server assembles services, handlers and middleware into the HTTP API.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"misa/internal/ai"
	apperrors "misa/internal/errors"
	"misa/internal/events"
	"misa/internal/handlers"
	"misa/internal/middleware"
	"misa/internal/repository"
	"misa/internal/services"

	_ "misa/internal/docs" // Import swagger docs
)

// Dependencies are the stores and capabilities the API runs on. The same
// router serves the file and SQL backends.
type Dependencies struct {
	Transactions repository.TransactionRepository
	Users        repository.UserRepository
	Audit        services.AuditServicer

	Categorizer *ai.Categorizer
	Assistant   *ai.Assistant
	Publisher   events.Publisher

	AntThreshold   decimal.Decimal
	PipelineAPIKey string
}

// NewRouter builds the gin engine with every route mounted under /api/v1.
func NewRouter(deps Dependencies) *gin.Engine {
	audit := deps.Audit
	if audit == nil {
		audit = services.NewLogAuditService()
	}

	// Initialize services
	userService := services.NewUserService(deps.Users)
	budgetService := services.NewBudgetService(deps.Users)
	transactionService := services.NewTransactionService(deps.Transactions, deps.Users, deps.Categorizer, deps.Publisher)
	dashboardService := services.NewDashboardService(deps.Transactions, deps.Users, deps.AntThreshold)
	assistantService := services.NewAssistantService(deps.Transactions, deps.Assistant)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, audit)
	configHandler := handlers.NewConfigHandler(budgetService, audit)
	transactionHandler := handlers.NewTransactionHandler(transactionService, audit)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	assistantHandler := handlers.NewAssistantHandler(assistantService)
	pipelineHandler := handlers.NewPipelineHandler(transactionHandler)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.NoRoute(func(c *gin.Context) {
		middleware.WriteError(c, apperrors.ErrNotFound)
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Automated imports authenticate with an API key instead of a user token
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(deps.PipelineAPIKey))
	pipeline.POST("/users/:username/import", pipelineHandler.ImportForUser)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	config := protected.Group("/config")
	config.GET("", configHandler.GetConfig)
	config.PUT("", configHandler.UpdateConfig)
	config.PUT("/income", configHandler.SetIncome)
	config.POST("/categories", configHandler.AddCategory)
	config.PUT("/categories/:name", configHandler.SetLimit)
	config.DELETE("/categories/:name", configHandler.RemoveCategory)

	transactions := protected.Group("/transactions")
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.PUT("", transactionHandler.ReplaceTransactions)
	transactions.POST("/import", transactionHandler.ImportTransactions)
	transactions.POST("/classify", transactionHandler.ClassifyConcept)

	protected.GET("/dashboard", dashboardHandler.GetDashboard)
	protected.POST("/assistant/ask", assistantHandler.Ask)

	return router
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
