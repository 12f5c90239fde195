package main

import (
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"restochain-backend/internal/admin"
	"restochain-backend/internal/auth"
	"restochain-backend/internal/billing"
	"restochain-backend/internal/config"
	"restochain-backend/internal/database"
	"restochain-backend/internal/inventory"
	"restochain-backend/internal/loyalty"
	"restochain-backend/internal/models"
	"restochain-backend/internal/order"
	"restochain-backend/internal/report"
	"restochain-backend/internal/shipment"
	"restochain-backend/internal/stock"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Error().Err(err).Str("path", c.Path()).Msg("unexpected error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "internal server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Super admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleSuperAdmin))

	adminRoutes.Post("/branches", admin.CreateBranchHandler())
	adminRoutes.Get("/branches", admin.ListBranchesHandler())
	adminRoutes.Put("/branches/:id", admin.UpdateBranchHandler())
	adminRoutes.Post("/branches/:id/users", admin.CreateBranchUserHandler())

	adminRoutes.Post("/promotions", admin.CreatePromotionHandler())
	adminRoutes.Get("/promotions", admin.ListPromotionsHandler())
	adminRoutes.Put("/promotions/:id", admin.UpdatePromotionHandler())

	// Product catalogue (super_admin and branch managers)
	productAdmin := protected.Group("")
	productAdmin.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleManager))
	productAdmin.Post("/admin/products", inventory.CreateProductHandler())
	productAdmin.Put("/admin/products/:id", inventory.UpdateProductHandler())
	productAdmin.Delete("/admin/products/:id", inventory.DeleteProductHandler())

	protected.Get("/products", inventory.ListProductsHandler())
	protected.Get("/inventories", inventory.ListInventoriesHandler())

	// Orders
	orders := protected.Group("/orders")
	orders.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleManager, models.RoleStaff))
	orders.Post("", order.CreateHandler())
	orders.Get("", order.ListHandler())
	orders.Get("/:id", order.GetHandler())
	orders.Put("/:id/items", order.EditItemsHandler())
	orders.Post("/:id/cancel", order.CancelHandler())
	orders.Post("/:id/accept", order.AcceptHandler())
	orders.Post("/:id/ready", order.ReadyHandler())
	orders.Post("/:id/complete", order.CompleteHandler(cfg))
	orders.Get("/:id/audit-logs", order.AuditLogsHandler())

	// Customers & loyalty
	protected.Post("/customers", admin.CreateCustomerHandler())
	protected.Get("/customers", admin.ListCustomersHandler())
	protected.Get("/customers/:id", admin.GetCustomerHandler())

	tierOverride := protected.Group("/customers/:id/tier-override")
	tierOverride.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleManager))
	tierOverride.Put("", loyalty.SetTierOverrideHandler())
	tierOverride.Delete("", loyalty.ClearTierOverrideHandler())

	// Stock ledger
	stockRoutes := protected.Group("")
	stockRoutes.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleManager))
	stockRoutes.Post("/stock-adjustments", stock.CreateAdjustmentHandler())
	protected.Get("/stock-transactions", stock.ListTransactionsHandler())

	// Stock requests & shipments
	protected.Post("/stock-requests", shipment.CreateStockRequestHandler())
	protected.Get("/stock-requests", shipment.ListStockRequestsHandler())

	shipments := protected.Group("/shipments")
	shipments.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleManager, models.RoleLogistics))
	shipments.Post("", shipment.CreateHandler())
	shipments.Get("", shipment.ListHandler())
	shipments.Patch("/:id/status", shipment.UpdateStatusHandler())

	// Bills
	bills := protected.Group("/bills")
	bills.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleManager))
	bills.Get("", billing.ListHandler())
	bills.Post("/:id/complaint", billing.ComplaintHandler())
	bills.Get("/:id/history", billing.HistoryHandler())

	// Exports
	reports := protected.Group("/reports")
	reports.Use(auth.RequireRole(models.RoleSuperAdmin, models.RoleManager))
	reports.Get("/stock-transactions/export", report.ExportStockTransactionsHandler())
	reports.Get("/bills/export", report.ExportBillsHandler())

	log.Info().Str("port", cfg.HTTPPort).Msg("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
