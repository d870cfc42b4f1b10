package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/stockpro/importer-api/internal/application/classifier"
	"github.com/stockpro/importer-api/internal/application/importer"
	"github.com/stockpro/importer-api/internal/application/ledger"
	"github.com/stockpro/importer-api/internal/application/matcher"
	"github.com/stockpro/importer-api/internal/application/parser"
	"github.com/stockpro/importer-api/internal/application/ports"
	"github.com/stockpro/importer-api/internal/application/staging"
	infraai "github.com/stockpro/importer-api/internal/infrastructure/ai"
	"github.com/stockpro/importer-api/internal/infrastructure/postgres"
	httpRouter "github.com/stockpro/importer-api/internal/interfaces/http"
	"github.com/stockpro/importer-api/pkg/config"
	"github.com/stockpro/importer-api/pkg/jwt"
	"github.com/stockpro/importer-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	productRepo := postgres.NewProductRepository(pool)
	variantRepo := postgres.NewVariantRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	brandRepo := postgres.NewBrandRepository(pool)
	supplierRepo := postgres.NewSupplierRepository(pool)
	mappingRepo := postgres.NewSupplierMappingRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	stagedRepo := postgres.NewStagedItemRepository(pool)
	batchRepo := postgres.NewImportBatchRepository(pool)
	logRepo := postgres.NewImportLogRepository(pool)
	settingsRepo := postgres.NewTenantSettingsRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Cadena de IA: Anthropic primero, Gemini de respaldo. Sin credenciales
	// reales el matcher opera solo con el análisis local.
	var providers []ports.TextCompletionService
	if !infraai.IsPlaceholderCredential(cfg.AI.AnthropicAPIKey) {
		providers = append(providers, infraai.NewAnthropicService(cfg.AI.AnthropicAPIKey, cfg.AI.AnthropicModel))
	}
	if !infraai.IsPlaceholderCredential(cfg.AI.GeminiAPIKey) {
		providers = append(providers, infraai.NewGeminiService(cfg.AI.GeminiAPIKey, cfg.AI.GeminiModel))
	}
	var enhancer *matcher.Enhancer
	if len(providers) > 0 {
		failover := infraai.NewFailoverService(log, providers...)
		enhancer = matcher.NewEnhancer(failover, time.Duration(cfg.AI.TimeoutSeconds)*time.Second, log)
	} else {
		log.Warn().Msg("sin credenciales de IA: el matcher usará solo el análisis local")
	}

	cls := classifier.New(classifier.DefaultKnowledgeBase(), tenantDicts{categories: categoryRepo, brands: brandRepo, log: log})
	productMatcher := matcher.New(productRepo, variantRepo, mappingRepo, cls, enhancer, log)

	ledgerUC := ledger.NewUseCase(txRunner)
	stagingUC := staging.NewUseCase(txRunner, stagedRepo, ledgerUC, log)

	importOpts := importer.Options{
		Workers:        cfg.Import.Workers,
		MaxRetries:     cfg.Import.MaxRetries,
		InitialBackoff: time.Duration(cfg.Import.BackoffSeconds) * time.Second,
	}
	nfeImportUC := importer.NewNfeImportUseCase(
		parser.NewNfeParser(), productMatcher, ledgerUC,
		batchRepo, logRepo, supplierRepo, mappingRepo, stagedRepo, settingsRepo,
		importOpts, log,
	)
	catalogImportUC := importer.NewCatalogImportUseCase(
		parser.NewCatalogParser(), ledgerUC,
		batchRepo, logRepo, productRepo, variantRepo, categoryRepo, brandRepo,
		log,
	)
	reversalUC := importer.NewReversalUseCase(txRunner, batchRepo, logRepo, settingsRepo, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    20 * 1024 * 1024, // XMLs de NF-e y XLSX grandes
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "StockPro Importer API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		NfeImport:     nfeImportUC,
		CatalogImport: catalogImportUC,
		Reversal:      reversalUC,
		Staging:       stagingUC,
		Ledger:        ledgerUC,
		BatchRepo:     batchRepo,
		MovementRepo:  movementRepo,
		SettingsRepo:  settingsRepo,
		JWT: jwt.Config{
			Secret:     cfg.JWT.Secret,
			ExpMinutes: cfg.JWT.Expiration,
			Issuer:     cfg.JWT.Issuer,
		},
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// tenantDicts adapta los repos de taxonomía al puerto del clasificador. Las
// fallas de lectura degradan a diccionario vacío: clasificar nunca aborta.
type tenantDicts struct {
	categories *postgres.CategoryRepo
	brands     *postgres.BrandRepo
	log        *logger.Logger
}

func (d tenantDicts) BrandNames(tenantID string) []string {
	names, err := d.brands.ListNames(tenantID, 200)
	if err != nil {
		d.log.Warn().Err(err).Msg("clasificador: no se pudieron leer las marcas del tenant")
		return nil
	}
	return names
}

func (d tenantDicts) CategoryNames(tenantID string) []string {
	names, err := d.categories.ListNames(tenantID, 200)
	if err != nil {
		d.log.Warn().Err(err).Msg("clasificador: no se pudieron leer las categorías del tenant")
		return nil
	}
	return names
}
