package repository

import "github.com/stockpro/importer-api/internal/domain/entity"

// TenantSettingsRepository política de importación por tenant.
type TenantSettingsRepository interface {
	// GetOrDefault devuelve la configuración del tenant, o los valores de
	// fábrica (entity.DefaultSettings) si nunca se guardó.
	GetOrDefault(tenantID string) (*entity.TenantSettings, error)
	Save(s *entity.TenantSettings) error
}
