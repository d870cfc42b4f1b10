// Package ai contiene los adaptadores de proveedores de texto generativo y el
// failover que los encadena. Usa net/http de la librería estándar; no requiere
// los SDK oficiales.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stockpro/importer-api/internal/application/ports"
)

// Verificar en tiempo de compilación que AnthropicService implementa el puerto.
var _ ports.TextCompletionService = (*AnthropicService)(nil)

const (
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion     = "2023-06-01"
)

// AnthropicService adaptador de la API REST de Anthropic (Claude).
type AnthropicService struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewAnthropicService construye el adaptador.
// model suele ser "claude-3-5-haiku-20241022".
// Si apiKey está vacío las llamadas devuelven error descriptivo en lugar de panic.
func NewAnthropicService(apiKey, model string) *AnthropicService {
	return &AnthropicService{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			// Timeout de red de 25 s; el caller impone además su context.WithTimeout.
			Timeout: 25 * time.Second,
		},
	}
}

// Name identifica al proveedor en logs y en la cadena de failover.
func (s *AnthropicService) Name() string { return "anthropic" }

// ── Estructuras internas del protocolo Anthropic Messages API ─────────────────

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete envía el par de prompts a Claude y devuelve el texto de respuesta
// crudo. schemaHint no aplica a esta API: el formato se exige por prompt.
func (s *AnthropicService) Complete(ctx context.Context, systemPrompt, userPrompt, schemaHint string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("AI: ANTHROPIC_API_KEY no configurado")
	}

	payload := anthropicRequest{
		Model:     s.model,
		MaxTokens: 1024,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userPrompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("AI: serializar request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicMessagesURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("AI: crear HTTP request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("AI: timeout o cancelación: %w", ctx.Err())
		}
		return "", fmt.Errorf("AI: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("AI: leer respuesta: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp anthropicResponse
		if jsonErr := json.Unmarshal(rawBody, &errResp); jsonErr == nil && errResp.Error != nil {
			return "", fmt.Errorf("AI: Anthropic error (%s): %s", errResp.Error.Type, errResp.Error.Message)
		}
		return "", fmt.Errorf("AI: Anthropic HTTP %d: %s", resp.StatusCode, string(rawBody))
	}

	var anthResp anthropicResponse
	if err := json.Unmarshal(rawBody, &anthResp); err != nil {
		return "", fmt.Errorf("AI: deserializar respuesta Anthropic: %w", err)
	}

	if len(anthResp.Content) == 0 {
		return "", fmt.Errorf("AI: Claude devolvió respuesta vacía")
	}
	return anthResp.Content[0].Text, nil
}
