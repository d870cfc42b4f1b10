package ai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stockpro/importer-api/internal/infrastructure/ai"
)

type stubProvider struct {
	name     string
	response string
	err      error
	calls    int
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Complete(context.Context, string, string, string) (string, error) {
	s.calls++
	return s.response, s.err
}

func TestFailover_PrimerProveedorResponde(t *testing.T) {
	first := &stubProvider{name: "anthropic", response: `{"ok":true}`}
	second := &stubProvider{name: "gemini", response: `{"ok":false}`}
	svc := ai.NewFailoverService(nil, first, second)

	got, err := svc.Complete(context.Background(), "sys", "user", "")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, got)
	assert.Equal(t, 0, second.calls, "el segundo proveedor no se toca si el primero responde")
}

func TestFailover_PasaAlSiguienteAnteFalla(t *testing.T) {
	first := &stubProvider{name: "anthropic", err: errors.New("429 rate limited")}
	second := &stubProvider{name: "gemini", response: "respuesta"}
	svc := ai.NewFailoverService(nil, first, second)

	got, err := svc.Complete(context.Background(), "sys", "user", "")
	require.NoError(t, err)
	assert.Equal(t, "respuesta", got)
	assert.Equal(t, 1, first.calls)
}

func TestFailover_RespuestaVaciaTambienCae(t *testing.T) {
	first := &stubProvider{name: "anthropic", response: ""}
	second := &stubProvider{name: "gemini", response: "algo"}
	svc := ai.NewFailoverService(nil, first, second)

	got, err := svc.Complete(context.Background(), "sys", "user", "")
	require.NoError(t, err)
	assert.Equal(t, "algo", got)
}

func TestFailover_TodosFallanNoEsError(t *testing.T) {
	// IA agotada equivale a IA ausente: el matcher sigue con la heurística local.
	first := &stubProvider{name: "anthropic", err: errors.New("500")}
	second := &stubProvider{name: "gemini", err: errors.New("503")}
	svc := ai.NewFailoverService(nil, first, second)

	got, err := svc.Complete(context.Background(), "sys", "user", "")
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestFailover_ContextoCanceladoSiEsError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := &stubProvider{name: "anthropic", response: "x"}
	svc := ai.NewFailoverService(nil, provider)

	_, err := svc.Complete(ctx, "sys", "user", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, provider.calls)
}

func TestFailover_SinProveedores(t *testing.T) {
	svc := ai.NewFailoverService(nil)
	got, err := svc.Complete(context.Background(), "sys", "user", "")
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestIsPlaceholderCredential(t *testing.T) {
	placeholders := []string{
		"", "   ", "changeme", "CHANGE-ME", "your-api-key-here",
		"your_key", "placeholder", "sk-example-123", "xxx", "<inserte su clave>", "TODO",
	}
	for _, key := range placeholders {
		assert.True(t, ai.IsPlaceholderCredential(key), "%q debería detectarse como plantilla", key)
	}

	real := []string{"sk-ant-api03-abc123def456", "AIzaSyD4ka9qkmKd83hFmz"}
	for _, key := range real {
		assert.False(t, ai.IsPlaceholderCredential(key), "%q es una clave real", key)
	}
}
