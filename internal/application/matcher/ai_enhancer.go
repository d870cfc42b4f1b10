package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/application/ports"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/nfe"
	"github.com/stockpro/importer-api/pkg/logger"
)

const enhancerSystemPrompt = `Você é um assistente de catalogação de produtos para um sistema de estoque brasileiro.
Retorne APENAS um objeto JSON válido (sem markdown, sem blocos de código) com esta estrutura exata:
{
  "match_type": "NEW" | "VARIANT_OF" | "EXACT",
  "matched_id": "UUID do produto se for match exato, ou null",
  "parent_product_id": "UUID do pai se for variante, ou null",
  "suggested_name": "Nome limpo e formatado",
  "detected_brand": "Marca detectada ou null",
  "detected_category": "Categoria sugerida ou null",
  "detected_attributes": {"Cor": "valor", "Tamanho": "valor"},
  "confidence": 0.0,
  "logic": "Explicação curta"
}
Não inclua texto fora do JSON.`

// Enhancer pide a un modelo de lenguaje una propuesta de clasificación para un
// ítem, con hasta ~15 productos del catálogo como contexto. La llamada corre
// con su propio timeout y nunca dentro de una transacción ni con locks tomados.
type Enhancer struct {
	svc     ports.TextCompletionService
	timeout time.Duration
	log     *logger.Logger
}

// NewEnhancer construye el enhancer. timeout recomendado: 5-10 s.
func NewEnhancer(svc ports.TextCompletionService, timeout time.Duration, log *logger.Logger) *Enhancer {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Enhancer{svc: svc, timeout: timeout, log: log}
}

type enhancerCandidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type enhancerPayload struct {
	MatchType          string            `json:"match_type"`
	MatchedID          string            `json:"matched_id"`
	ParentProductID    string            `json:"parent_product_id"`
	SuggestedName      string            `json:"suggested_name"`
	DetectedBrand      string            `json:"detected_brand"`
	DetectedCategory   string            `json:"detected_category"`
	DetectedAttributes map[string]string `json:"detected_attributes"`
	Confidence         float64           `json:"confidence"`
	Logic              string            `json:"logic"`
}

// Enhance devuelve un resultado AI_SUGGESTION si la IA responde con una
// confianza mayor a la del análisis local; (nil, nil) si la respuesta no supera
// al análisis local, y error ante fallas del adaptador (el caller degrada).
func (e *Enhancer) Enhance(
	ctx context.Context,
	item nfe.Item,
	candidates []*entity.Product,
	parsed *Result,
) (*Result, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := e.buildPrompt(item, candidates)
	response, err := e.svc.Complete(cctx, enhancerSystemPrompt, prompt, "json")
	if err != nil {
		return nil, fmt.Errorf("mejora IA: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		// Ningún proveedor disponible: el failover devuelve vacío sin error.
		return nil, nil
	}

	clean := extractJSON(response)
	if clean == "" {
		return nil, fmt.Errorf("mejora IA: respuesta sin JSON (%s)", truncate(response, 120))
	}
	var payload enhancerPayload
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return nil, fmt.Errorf("mejora IA: parsear JSON: %w", err)
	}

	conf := clampConfidence(payload.Confidence)
	if !conf.GreaterThan(parsed.Confidence) {
		return nil, nil
	}

	matchedID := payload.MatchedID
	if matchedID == "" {
		matchedID = payload.ParentProductID
	}
	attrs := payload.DetectedAttributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	logic := payload.Logic
	if logic == "" {
		logic = "análisis IA"
	}

	return &Result{
		Level:      LevelNone,
		Action:     ActionAISuggestion,
		Confidence: conf,
		Logic:      "IA: " + logic,
		Suggestion: Suggestion{
			Name:             firstNonEmpty(payload.SuggestedName, parsed.Suggestion.Name),
			Brand:            payload.DetectedBrand,
			Category:         payload.DetectedCategory,
			Attributes:       attrs,
			MatchType:        firstNonEmpty(payload.MatchType, parsed.Suggestion.MatchType),
			UOM:              parsed.Suggestion.UOM,
			MatchedProductID: matchedID,
		},
	}, nil
}

func (e *Enhancer) buildPrompt(item nfe.Item, candidates []*entity.Product) string {
	ctx := make([]enhancerCandidate, 0, len(candidates))
	for _, p := range candidates {
		ctx = append(ctx, enhancerCandidate{ID: p.ID, Name: p.Name})
	}
	ctxJSON, _ := json.Marshal(ctx)

	return fmt.Sprintf(`Analise este produto de NF-e e extraia informações:

PRODUTO: %s
SKU: %s

PRODUTOS EXISTENTES NO CATÁLOGO:
%s`, item.Description, item.SupplierSKU, string(ctxJSON))
}

// jsonBlockRe captura desde el primer '{' hasta el último '}'.
var jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON extrae el primer objeto JSON de un texto libre, tolerando que el
// modelo lo envuelva en bloques de código markdown.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```"); idx != -1 {
		after := text[idx+3:]
		if nl := strings.Index(after, "\n"); nl != -1 {
			after = after[nl+1:]
		}
		if close := strings.LastIndex(after, "```"); close != -1 {
			after = after[:close]
		}
		text = strings.TrimSpace(after)
	}
	if strings.HasPrefix(text, "{") {
		return text
	}
	return strings.TrimSpace(jsonBlockRe.FindString(text))
}

func clampConfidence(v float64) decimal.Decimal {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return decimal.NewFromFloat(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
