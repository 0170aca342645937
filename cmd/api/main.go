package main

import (
	"fmt"
	"net/http"
	"os"

	"budgetdesk/internal/config"
	"budgetdesk/internal/database"
	"budgetdesk/internal/handlers"
	"budgetdesk/internal/logger"
	"budgetdesk/internal/middleware"
	"budgetdesk/internal/sequence"
	"budgetdesk/internal/services"
	"budgetdesk/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "budgetdesk/internal/docs" // Import swagger docs
)

// @title           BudgetDesk API
// @version         1.0
// @description     BudgetDesk keeps yearly OPEX and CAPEX budget plans consistent with the purchase transactions recorded against them.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

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
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	allocator := sequence.NewAllocator()
	budgetService := services.NewBudgetService(db, allocator)
	transactionService := services.NewTransactionService(db, budgetService, allocator)
	activityService := services.NewActivityService(db)

	// Initialize handlers
	budgetHandler := handlers.NewBudgetHandler(budgetService, activityService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, activityService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Forwarded-User")

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

	// Budget plan routes
	budgets := v1.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudgetPlan)
	budgets.GET("", budgetHandler.GetBudgetPlans)
	budgets.GET("/:id", budgetHandler.GetBudgetPlan)
	budgets.PUT("/:id", budgetHandler.UpdateBudgetPlan)

	// Transaction routes
	transactions := v1.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	log.Infof("Starting BudgetDesk server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
