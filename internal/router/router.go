package router

import (
	"database/sql"

	"restaurant_pos_backend/internal/config"
	"restaurant_pos_backend/internal/events"
	"restaurant_pos_backend/internal/handlers"
	"restaurant_pos_backend/internal/middleware"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB, cfg *config.Config, publisher events.Publisher) error {
	if err := handlers.RegisterValidators(); err != nil {
		return err
	}

	// Initialize Repositories
	employeeRepo := repositories.NewEmployeeRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	tableRepo := repositories.NewTableRepository(db)
	productRepo := repositories.NewProductRepository(db)
	customerRepo := repositories.NewCustomerRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)

	// Initialize Services
	authService := services.NewAuthService(employeeRepo, db)
	orderService := services.NewOrderService(
		orderRepo, tableRepo, productRepo, customerRepo, settingsRepo,
		publisher, services.NewTotalsChecker(cfg.OrderTotalsCheck), db,
	)
	tableService := services.NewTableService(tableRepo, db)
	productService := services.NewProductService(productRepo, settingsRepo, db)
	customerService := services.NewCustomerService(customerRepo, db)
	settingsService := services.NewSettingsService(settingsRepo, db)

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(authService)
	orderHandler := handlers.NewOrderHandler(orderService)
	tableHandler := handlers.NewTableHandler(tableService)
	productHandler := handlers.NewProductHandler(productService)
	customerHandler := handlers.NewCustomerHandler(customerService)
	settingsHandler := handlers.NewSettingsHandler(settingsService)

	apiV1 := engine.Group("/api/v1")

	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupEmployeeRoutes(authenticated, authHandler)
		SetupOrderRoutes(authenticated, orderHandler)
		SetupTableRoutes(authenticated, tableHandler)
		SetupProductRoutes(authenticated, productHandler)
		SetupCustomerRoutes(authenticated, customerHandler)
		SetupSettingsRoutes(authenticated, settingsHandler)
	}
	return nil
}

func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/login", authHandler.Login)
	group.POST("/refresh-token", authHandler.RefreshToken)
}

func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/logout", authHandler.Logout)
	group.GET("/me", authHandler.GetCurrentEmployee)
}
