package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/repository"
)

var _ repository.TenantSettingsRepository = (*TenantSettingsRepo)(nil)

// TenantSettingsRepo implementación de TenantSettingsRepository sobre PostgreSQL.
type TenantSettingsRepo struct {
	q Querier
}

// NewTenantSettingsRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTenantSettingsRepository(q Querier) *TenantSettingsRepo {
	return &TenantSettingsRepo{q: q}
}

// GetOrDefault devuelve la configuración del tenant, o los valores de fábrica
// si nunca se guardó.
func (r *TenantSettingsRepo) GetOrDefault(tenantID string) (*entity.TenantSettings, error) {
	query := `
		SELECT tenant_id, import_mode, auto_commit_threshold, allow_negative_stock,
			name_similarity_threshold, ai_enabled, updated_at
		FROM tenant_settings WHERE tenant_id = $1`
	var s entity.TenantSettings
	err := r.q.QueryRow(context.Background(), query, tenantID).Scan(
		&s.TenantID, &s.ImportMode, &s.AutoCommitThreshold, &s.AllowNegativeStock,
		&s.NameSimilarityThreshold, &s.AIEnabled, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.DefaultSettings(tenantID), nil
		}
		return nil, fmt.Errorf("get tenant settings: %w", err)
	}
	return &s, nil
}

// Save crea o actualiza la configuración del tenant.
func (r *TenantSettingsRepo) Save(s *entity.TenantSettings) error {
	s.UpdatedAt = time.Now()
	query := `
		INSERT INTO tenant_settings (tenant_id, import_mode, auto_commit_threshold, allow_negative_stock,
			name_similarity_threshold, ai_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id)
		DO UPDATE SET import_mode = EXCLUDED.import_mode,
			auto_commit_threshold = EXCLUDED.auto_commit_threshold,
			allow_negative_stock = EXCLUDED.allow_negative_stock,
			name_similarity_threshold = EXCLUDED.name_similarity_threshold,
			ai_enabled = EXCLUDED.ai_enabled,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(context.Background(), query,
		s.TenantID, s.ImportMode, s.AutoCommitThreshold, s.AllowNegativeStock,
		s.NameSimilarityThreshold, s.AIEnabled, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save tenant settings: %w", err)
	}
	return nil
}
