package main

import (
	"fmt"
	"net/http"
	"os"

	"tontin/internal/config"
	"tontin/internal/database"
	"tontin/internal/handlers"
	"tontin/internal/logger"
	"tontin/internal/middleware"
	"tontin/internal/notify"
	"tontin/internal/services"
	"tontin/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Tontin API
// @version         1.0
// @description     Tontin is a personal and shared finance application that lets users track transactions, manage category budgets, split expenses within groups, and schedule payment reminders.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

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

	// Register custom request validators
	validator.Register()

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

	// Notification publisher (AMQP when configured, log-only otherwise)
	publisher, err := newPublisher(appConfig)
	if err != nil {
		return fmt.Errorf("failed to connect notification publisher: %w", err)
	}
	defer publisher.Close()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	groupService := services.NewGroupService(db)
	transactionService := services.NewTransactionService(db, groupService)
	splitService := services.NewSplitService(db, groupService)
	reminderService := services.NewReminderService(db, groupService)
	eventService := services.NewEventService(db)
	auditService := services.NewAuditService(db)

	// Seed the shared system categories on startup
	if created, err := categoryService.SeedSystemCategories(); err != nil {
		return fmt.Errorf("failed to seed system categories: %w", err)
	} else if created > 0 {
		log.Infof("Seeded %d system categories", created)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, auditService)
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, splitService, auditService)
	groupHandler := handlers.NewGroupHandler(groupService, transactionService, auditService)
	reminderHandler := handlers.NewReminderHandler(reminderService, auditService)
	eventHandler := handlers.NewEventHandler(eventService, auditService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Metrics())

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

	// Prometheus metrics endpoint
	router.GET("/metrics", middleware.MetricsHandler())

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/verify-email", authHandler.VerifyEmail)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)

	// Invitation lookup is public so invitees can inspect before signing in
	v1.GET("/invitations/:token", groupHandler.GetInvitation)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.POST("/auth/logout", authHandler.Logout)

	// User profile
	protected.GET("/profile", authHandler.GetProfile)
	protected.PUT("/profile", authHandler.UpdateProfile)

	// Category routes
	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/:id", categoryHandler.GetCategoryByID)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)
	categories.GET("/:id/budget", categoryHandler.GetBudgetStatus)

	// Transaction routes
	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetTransactions)
	transactions.GET("/summary", transactionHandler.GetMonthlySummary)
	transactions.GET("/:id", transactionHandler.GetTransactionByID)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/splits", transactionHandler.CreateSplits)
	transactions.GET("/:id/splits", transactionHandler.GetSplits)

	protected.PUT("/splits/:id/paid", transactionHandler.SetSplitPaid)
	protected.GET("/dashboard", transactionHandler.GetDashboard)

	// Group routes
	groups := protected.Group("/groups")
	groups.POST("", groupHandler.CreateGroup)
	groups.GET("", groupHandler.GetGroups)
	groups.GET("/:id", groupHandler.GetGroupByID)
	groups.PUT("/:id", groupHandler.UpdateGroup)
	groups.DELETE("/:id", groupHandler.DeactivateGroup)
	groups.GET("/:id/members", groupHandler.GetMembers)
	groups.PUT("/:id/members/:userId/promote", groupHandler.PromoteMember)
	groups.PUT("/:id/members/:userId/demote", groupHandler.DemoteMember)
	groups.DELETE("/:id/members/:userId", groupHandler.RemoveMember)
	groups.POST("/:id/leave", groupHandler.LeaveGroup)
	groups.POST("/:id/invitations", groupHandler.InviteToGroup)
	groups.GET("/:id/transactions", groupHandler.GetGroupTransactions)
	groups.GET("/:id/balance", groupHandler.GetGroupBalance)
	groups.GET("/:id/balances", groupHandler.GetMemberBalances)

	protected.POST("/invitations/accept", groupHandler.AcceptInvitation)
	protected.POST("/invitations/decline", groupHandler.DeclineInvitation)

	// Reminder routes
	reminders := protected.Group("/reminders")
	reminders.POST("", reminderHandler.CreateReminder)
	reminders.GET("", reminderHandler.GetReminders)
	reminders.GET("/upcoming", reminderHandler.GetUpcoming)
	reminders.GET("/overdue", reminderHandler.GetOverdue)
	reminders.GET("/:id", reminderHandler.GetReminderByID)
	reminders.PUT("/:id", reminderHandler.UpdateReminder)
	reminders.POST("/:id/complete", reminderHandler.CompleteReminder)
	reminders.DELETE("/:id", reminderHandler.DeleteReminder)

	// Calendar event routes
	events := protected.Group("/events")
	events.POST("", eventHandler.CreateEvent)
	events.GET("", eventHandler.GetEvents)
	events.GET("/:id", eventHandler.GetEventByID)
	events.PUT("/:id", eventHandler.UpdateEvent)
	events.DELETE("/:id", eventHandler.DeleteEvent)

	log.Infof("Starting Tontin backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}

func newPublisher(appConfig *config.Config) (notify.Publisher, error) {
	if appConfig.AMQPURL == "" {
		logger.Get().Info("AMQP_URL not set, budget alerts and reminder notifications will be logged only")
		return notify.LogPublisher{}, nil
	}
	return notify.NewAMQPPublisher(appConfig.AMQPURL, appConfig.AMQPExchange)
}
