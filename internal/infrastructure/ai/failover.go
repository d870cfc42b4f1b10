package ai

import (
	"context"
	"strings"

	"github.com/stockpro/importer-api/internal/application/ports"
	"github.com/stockpro/importer-api/pkg/logger"
)

// Verificar en tiempo de compilación que FailoverService implementa el puerto.
var _ ports.TextCompletionService = (*FailoverService)(nil)

// FailoverService encadena proveedores en orden fijo: prueba cada uno y pasa al
// siguiente ante cualquier falla. Si todos fallan devuelve ("", nil): para el
// matcher la IA agotada equivale a IA ausente, nunca a un error que aborte la
// importación.
type FailoverService struct {
	providers []ports.TextCompletionService
	log       *logger.Logger
}

// NewFailoverService arma la cadena descartando los proveedores sin credencial
// real (vacía o placeholder de plantilla .env).
func NewFailoverService(log *logger.Logger, providers ...ports.TextCompletionService) *FailoverService {
	if log == nil {
		log = logger.Nop()
	}
	return &FailoverService{providers: providers, log: log}
}

// Name identifica la cadena en logs.
func (s *FailoverService) Name() string { return "failover" }

// Complete intenta cada proveedor en orden.
func (s *FailoverService) Complete(ctx context.Context, systemPrompt, userPrompt, schemaHint string) (string, error) {
	for _, p := range s.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := p.Complete(ctx, systemPrompt, userPrompt, schemaHint)
		if err != nil {
			s.log.Warn().Err(err).Str("provider", p.Name()).Msg("ai: proveedor falló, probando el siguiente")
			continue
		}
		if text != "" {
			return text, nil
		}
	}
	return "", nil
}

// IsPlaceholderCredential detecta claves de plantilla que nunca deben llegar a
// la API ("changeme", "your-api-key", "xxx"...).
func IsPlaceholderCredential(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return true
	}
	for _, marker := range []string{"changeme", "change-me", "your-", "your_", "placeholder", "example", "xxx", "<", "todo"} {
		if strings.Contains(k, marker) {
			return true
		}
	}
	return false
}
