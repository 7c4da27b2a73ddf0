package router

import (
	"restaurant_pos_backend/internal/handlers"
	"restaurant_pos_backend/internal/middleware"
	"restaurant_pos_backend/internal/models"

	"github.com/gin-gonic/gin"
)

var (
	allStaff   = []string{models.RoleAdmin, models.RoleManager, models.RoleCashier, models.RoleWaiter}
	management = []string{models.RoleAdmin, models.RoleManager}
)

// SetupEmployeeRoutes sets up staff account management.
func SetupEmployeeRoutes(authenticatedGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	employeeRoutes := authenticatedGroup.Group("/employees")
	employeeRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		employeeRoutes.POST("", authHandler.RegisterEmployee)
	}
}

// SetupOrderRoutes sets up the order routes. Any staff member may work with
// orders; taking payment is limited to roles that handle money.
func SetupOrderRoutes(authenticatedGroup *gin.RouterGroup, orderHandler *handlers.OrderHandler) {
	orderRoutes := authenticatedGroup.Group("/orders")
	orderRoutes.Use(middleware.RoleAuthMiddleware(allStaff...))
	{
		orderRoutes.POST("", orderHandler.CreateOrder)
		orderRoutes.GET("", orderHandler.GetOrders)
		orderRoutes.POST("/split", orderHandler.SplitOrder)
		orderRoutes.GET("/:id", orderHandler.GetOrderByID)
		orderRoutes.PUT("/:id", orderHandler.UpdateOrder)
		orderRoutes.PATCH("/:id/status", orderHandler.UpdateOrderStatus)
		orderRoutes.POST("/:id/payment",
			middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleManager, models.RoleCashier),
			orderHandler.CompletePayment)
		orderRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(management...), orderHandler.DeleteOrder)
	}
}

// SetupTableRoutes sets up the dining table routes.
func SetupTableRoutes(authenticatedGroup *gin.RouterGroup, tableHandler *handlers.TableHandler) {
	tableRoutes := authenticatedGroup.Group("/tables")
	tableRoutes.Use(middleware.RoleAuthMiddleware(allStaff...))
	{
		tableRoutes.POST("", middleware.RoleAuthMiddleware(management...), tableHandler.CreateTable)
		tableRoutes.GET("", tableHandler.GetTables)
		tableRoutes.GET("/:id", tableHandler.GetTableByID)
		tableRoutes.PATCH("/:id/status", tableHandler.UpdateTableStatus)
	}
}

// SetupProductRoutes sets up the menu product routes.
func SetupProductRoutes(authenticatedGroup *gin.RouterGroup, productHandler *handlers.ProductHandler) {
	productRoutes := authenticatedGroup.Group("/products")
	productRoutes.Use(middleware.RoleAuthMiddleware(allStaff...))
	{
		productRoutes.POST("", middleware.RoleAuthMiddleware(management...), productHandler.CreateProduct)
		productRoutes.GET("", productHandler.GetProducts)
		productRoutes.GET("/:id", productHandler.GetProductByID)
	}
}

// SetupCustomerRoutes sets up the customer routes.
func SetupCustomerRoutes(authenticatedGroup *gin.RouterGroup, customerHandler *handlers.CustomerHandler) {
	customerRoutes := authenticatedGroup.Group("/customers")
	customerRoutes.Use(middleware.RoleAuthMiddleware(allStaff...))
	{
		customerRoutes.POST("", customerHandler.CreateCustomer)
		customerRoutes.GET("", customerHandler.GetCustomers)
		customerRoutes.GET("/:id", customerHandler.GetCustomerByID)
	}
}

// SetupSettingsRoutes sets up the store settings routes.
func SetupSettingsRoutes(authenticatedGroup *gin.RouterGroup, settingsHandler *handlers.SettingsHandler) {
	authenticatedGroup.GET("/settings/store", middleware.RoleAuthMiddleware(allStaff...), settingsHandler.GetStoreSettings)
	authenticatedGroup.PUT("/settings/store", middleware.RoleAuthMiddleware(models.RoleAdmin), settingsHandler.UpdateStoreSettings)
}
