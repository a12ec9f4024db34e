package main

import (
	"errors"
	"log"
	"strings"

	"traceflow-backend/internal/admin"
	"traceflow-backend/internal/audit"
	"traceflow-backend/internal/auth"
	"traceflow-backend/internal/batch"
	"traceflow-backend/internal/config"
	"traceflow-backend/internal/database"
	"traceflow-backend/internal/domain"
	"traceflow-backend/internal/models"
	"traceflow-backend/internal/transfer"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var de *domain.Error
			if errors.As(err, &de) {
				return c.Status(domain.HTTPStatus(de.Kind)).JSON(fiber.Map{
					"error": de.Message,
					"kind":  de.Kind,
				})
			}
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "An internal server error occurred",
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
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))
	api.Get("/verify/:token", batch.VerifyBatchHandler())

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Platform administration
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/organizations", admin.CreateOrganizationHandler())
	adminRoutes.Get("/organizations", admin.ListOrganizationsHandler())
	adminRoutes.Get("/organizations/:id", admin.GetOrganizationHandler())
	adminRoutes.Post("/organizations/:id/sites", admin.CreateSiteHandler())
	adminRoutes.Get("/organizations/:id/sites", admin.ListSitesHandler())
	adminRoutes.Post("/organizations/:id/users", admin.CreateUserHandler())
	adminRoutes.Get("/organizations/:id/users", admin.ListUsersHandler())

	// Batches
	protected.Post("/batches", batch.CreateBatchHandler(cfg))
	protected.Get("/batches", batch.ListBatchesHandler(cfg))
	protected.Get("/batches/:id", batch.GetBatchHandler(cfg))
	protected.Post("/batches/:id/split", batch.SplitBatchHandler())
	protected.Put("/batches/:id/status", batch.UpdateBatchStatusHandler())
	protected.Get("/batches/:id/lineage", batch.LineageHandler())

	// Transfers
	protected.Post("/transfers", transfer.InitiateTransferHandler())
	protected.Get("/transfers", transfer.ListTransfersHandler())
	protected.Put("/transfers/:id/accept", transfer.AcceptTransferHandler())
	protected.Put("/transfers/:id/cancel", transfer.CancelTransferHandler())
	protected.Put("/transfers/:id/reject", transfer.RejectTransferHandler())

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	log.Println("Server listening on port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
