package ports

import "context"

// TextCompletionService define el puerto de salida hacia modelos de lenguaje.
// Cualquier adaptador (Anthropic, Gemini, mock de tests, o el failover que los
// encadena) debe implementar esta interfaz. La aplicación solo conoce este
// contrato, nunca el formato de wire de un proveedor concreto.
type TextCompletionService interface {
	// Name identifica al proveedor en logs ("anthropic", "gemini", "failover").
	Name() string
	// Complete envía el prompt y devuelve el texto crudo de la respuesta.
	// schemaHint es "json" o "text"; los adaptadores que soportan modo JSON
	// nativo lo activan con "json". El contexto debe llevar timeout.
	Complete(ctx context.Context, systemPrompt, userPrompt, schemaHint string) (string, error)
}
