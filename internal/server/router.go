// Package server assembles the services, handlers and middleware of the
// treasury API into a gin engine.
package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"treasury/internal/authz"
	"treasury/internal/docs"
	"treasury/internal/handlers"
	"treasury/internal/middleware"
	"treasury/internal/services"
)

// Config holds the settings the router needs.
type Config struct {
	Env                string
	JWTSecret          string
	JWTIssuer          string
	ImporterAPIKeyHash string
	CORSAllowedOrigins []string
	RateLimit          string
}

// Services groups every business service behind its interface.
type Services struct {
	Permissions services.PermissionServicer
	Audit       services.AuditServicer
	Ledger      services.LedgerServicer
	Funds       services.FundServicer
	Events      services.EventServicer
	Reports     services.ReportServicer
	Churches    services.ChurchServicer
	Profiles    services.ProfileServicer
}

// NewServices builds the services against db. policy must already reflect
// the stored permission table.
func NewServices(db *gorm.DB, permissions services.PermissionServicer, policy *authz.Policy) *Services {
	audit := services.NewAuditService(db, policy)
	ledger := services.NewLedgerService(db, policy, audit)
	return &Services{
		Permissions: permissions,
		Audit:       audit,
		Ledger:      ledger,
		Funds:       services.NewFundService(db, policy, ledger, audit),
		Events:      services.NewEventService(db, policy, ledger, audit),
		Reports:     services.NewReportService(db, policy, audit),
		Churches:    services.NewChurchService(db, policy, audit),
		Profiles:    services.NewProfileService(db, policy, audit),
	}
}

// NewRouter registers every route under /api/v1.
func NewRouter(cfg Config, svc *Services) (*gin.Engine, error) {
	rate, err := middleware.NewLimiter(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit: %w", err)
	}

	fundHandler := handlers.NewFundHandler(svc.Funds, svc.Ledger)
	transactionHandler := handlers.NewTransactionHandler(svc.Ledger)
	eventHandler := handlers.NewEventHandler(svc.Events)
	reportHandler := handlers.NewReportHandler(svc.Reports)
	churchHandler := handlers.NewChurchHandler(svc.Churches)
	profileHandler := handlers.NewProfileHandler(svc.Profiles)
	adminHandler := handlers.NewAdminHandler(svc.Permissions, svc.Audit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	if cfg.Env != "production" {
		docs.SwaggerInfo.BasePath = "/api/v1"
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(rate))

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Importer routes authenticate with an API key instead of a bearer token.
	importer := v1.Group("/import", middleware.ImporterAuth(cfg.ImporterAPIKeyHash))
	importer.POST("/reports", reportHandler.ImportReport)

	protected := v1.Group("", middleware.AuthMiddleware(svc.Profiles, cfg.JWTSecret, cfg.JWTIssuer))

	protected.GET("/permissions", adminHandler.ListPermissions)
	protected.GET("/audit-logs", adminHandler.ListAuditLogs)

	churches := protected.Group("/churches")
	churches.POST("", churchHandler.CreateChurch)
	churches.GET("", churchHandler.ListChurches)
	churches.GET("/:id", churchHandler.GetChurch)

	profiles := protected.Group("/profiles")
	profiles.GET("/me", profileHandler.GetMe)
	profiles.GET("/:id", profileHandler.GetProfile)
	profiles.PUT("/:id/role", profileHandler.UpdateRole)

	assignments := protected.Group("/assignments")
	assignments.GET("", profileHandler.ListAssignments)
	assignments.POST("", profileHandler.CreateAssignment)
	assignments.DELETE("/:id", profileHandler.DeleteAssignment)

	funds := protected.Group("/funds")
	funds.POST("", fundHandler.CreateFund)
	funds.GET("", fundHandler.ListFunds)
	funds.GET("/:id", fundHandler.GetFund)
	funds.PUT("/:id", fundHandler.UpdateFund)
	funds.POST("/:id/deactivate", fundHandler.DeactivateFund)
	funds.POST("/:id/release-hold", fundHandler.ReleaseHold)
	funds.GET("/:id/transactions", fundHandler.ListFundTransactions)
	funds.GET("/:id/movements", fundHandler.ListFundMovements)
	funds.GET("/:id/reconcile", fundHandler.ReconcileFund)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.POST("/transfer", transactionHandler.CreateTransfer)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.CorrectTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	events := protected.Group("/events")
	events.POST("", eventHandler.CreateEvent)
	events.GET("", eventHandler.ListEvents)
	events.GET("/:id", eventHandler.GetEvent)
	events.PUT("/:id", eventHandler.UpdateEvent)
	events.DELETE("/:id", eventHandler.DeleteEvent)
	events.POST("/:id/budget-items", eventHandler.AddBudgetItem)
	events.PUT("/:id/budget-items/:itemId", eventHandler.UpdateBudgetItem)
	events.DELETE("/:id/budget-items/:itemId", eventHandler.DeleteBudgetItem)
	events.POST("/:id/actuals", eventHandler.AddActual)
	events.PUT("/:id/actuals/:actualId", eventHandler.UpdateActual)
	events.DELETE("/:id/actuals/:actualId", eventHandler.DeleteActual)
	events.POST("/:id/submit", eventHandler.SubmitEvent)
	events.POST("/:id/approve", eventHandler.ApproveEvent)
	events.POST("/:id/reject", eventHandler.RejectEvent)
	events.POST("/:id/cancel", eventHandler.CancelEvent)

	reports := protected.Group("/reports")
	reports.POST("", reportHandler.UpsertReport)
	reports.GET("", reportHandler.ListReports)
	reports.GET("/totals", reportHandler.MonthlyTotals)
	reports.GET("/:id", reportHandler.GetReport)
	reports.POST("/:id/submit", reportHandler.SubmitReport)
	reports.POST("/:id/process", reportHandler.ProcessReport)

	return router, nil
}
