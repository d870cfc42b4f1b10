// seed prepara un tenant de demostración: aplica el esquema si hace falta,
// guarda la política por defecto, siembra taxonomía básica y emite un JWT
// de prueba para llamar a la API.
//
// Uso: go run ./cmd/seed [tenant-id]
// Sin argumento genera un tenant nuevo. Requiere la misma configuración de
// entorno que el servidor (DATABASE_URL o DB_*, JWT_SECRET).
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/infrastructure/postgres"
	"github.com/stockpro/importer-api/pkg/config"
	"github.com/stockpro/importer-api/pkg/jwt"
)

var seedCategories = []string{"Bebidas", "Alimentos", "Limpieza", "Ferretería", "Vestuario"}
var seedBrands = []string{"Coca-Cola", "Nestlé", "Tramontina", "3M"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fail("cargar configuración: %v", err)
	}

	tenantID := uuid.NewString()
	if len(os.Args) > 1 {
		if _, err := uuid.Parse(os.Args[1]); err != nil {
			fail("tenant-id inválido: %v", err)
		}
		tenantID = os.Args[1]
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fail("conexión a PostgreSQL: %v", err)
	}
	defer pool.Close()

	if err := applyMigrations(ctx, pool); err != nil {
		fail("aplicar esquema: %v", err)
	}

	settingsRepo := postgres.NewTenantSettingsRepository(pool)
	if err := settingsRepo.Save(entity.DefaultSettings(tenantID)); err != nil {
		fail("guardar política del tenant: %v", err)
	}

	categoryRepo := postgres.NewCategoryRepository(pool)
	for _, name := range seedCategories {
		if _, err := categoryRepo.GetOrCreate(tenantID, name); err != nil {
			fail("sembrar categoría %q: %v", name, err)
		}
	}
	brandRepo := postgres.NewBrandRepository(pool)
	for _, name := range seedBrands {
		if _, err := brandRepo.GetOrCreate(tenantID, name); err != nil {
			fail("sembrar marca %q: %v", name, err)
		}
	}

	userID := uuid.NewString()
	token, err := jwt.Generate(jwt.Config{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, userID, tenantID, "admin")
	if err != nil {
		fail("emitir token: %v", err)
	}

	fmt.Printf("Tenant:  %s\n", tenantID)
	fmt.Printf("Usuario: %s\n", userID)
	fmt.Printf("Token:   %s\n", token)
	fmt.Printf("\nEjemplo: curl -H 'Authorization: Bearer %s' http://localhost:%d/api/settings\n", token, cfg.HTTP.Port)
}

// applyMigrations ejecuta los .sql de migrations en orden de nombre. Los
// scripts son idempotentes (CREATE ... IF NOT EXISTS), así que reaplicarlos
// es inocuo.
func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	dir := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		sql, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		fmt.Printf("Aplicado %s\n", e.Name())
	}
	return nil
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
