package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stockpro/importer-api/internal/application/importer"
	"github.com/stockpro/importer-api/internal/application/ledger"
	"github.com/stockpro/importer-api/internal/application/staging"
	"github.com/stockpro/importer-api/internal/domain/repository"
	"github.com/stockpro/importer-api/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	NfeImport     *importer.NfeImportUseCase
	CatalogImport *importer.CatalogImportUseCase
	Reversal      *importer.ReversalUseCase
	Staging       *staging.UseCase
	Ledger        *ledger.UseCase
	BatchRepo     repository.ImportBatchRepository
	MovementRepo  repository.StockMovementRepository
	SettingsRepo  repository.TenantSettingsRepository
	JWT           jwt.Config
}

// Router registra las rutas de la API. Todo el API es multi-tenant: el tenant
// sale del token, nunca de la URL ni del body.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", AuthMiddleware(deps.JWT))

	// Importación de documentos
	imports := api.Group("/imports")
	importHandler := NewImportHandler(deps.NfeImport, deps.CatalogImport, deps.Reversal, deps.BatchRepo)
	imports.Post("/nfe", importHandler.ImportNfe)
	imports.Post("/catalog", importHandler.ImportCatalog)
	imports.Get("/", importHandler.ListBatches)
	imports.Get("/:id", importHandler.GetBatch)
	imports.Post("/:id/resume", importHandler.ResumeBatch)
	imports.Delete("/:id", importHandler.ReverseBatch)

	// Cola de curaduría
	stagingGroup := api.Group("/staging")
	stagingHandler := NewStagingHandler(deps.Staging)
	stagingGroup.Get("/", stagingHandler.ListPending)
	stagingGroup.Post("/drafts", stagingHandler.CreateDraft)
	stagingGroup.Post("/bulk-approve", stagingHandler.BulkApprove)
	stagingGroup.Post("/bulk-reject", stagingHandler.BulkReject)
	stagingGroup.Post("/:id/approve", stagingHandler.Approve)
	stagingGroup.Post("/:id/reject", stagingHandler.Reject)

	// Libro de movimientos
	movements := api.Group("/movements")
	movementHandler := NewMovementHandler(deps.Ledger, deps.MovementRepo, deps.SettingsRepo)
	movements.Post("/", movementHandler.Register)
	movements.Get("/", movementHandler.ListByTarget)

	// Política por tenant
	settings := api.Group("/settings")
	settingsHandler := NewSettingsHandler(deps.SettingsRepo)
	settings.Get("/", settingsHandler.Get)
	settings.Put("/", settingsHandler.Update)
}
