package entity

import "time"

// Estados del batch de importación.
const (
	BatchStatusPending       = "PENDING"
	BatchStatusProcessing    = "PROCESSING"
	BatchStatusCompleted     = "COMPLETED"
	BatchStatusPartial       = "PARTIAL"
	BatchStatusError         = "ERROR"
	BatchStatusPendingReview = "PENDING_REVIEW"
)

// Orígenes de batch.
const (
	BatchSourceNFE  = "XML_NFE"
	BatchSourceCSV  = "CSV"
	BatchSourceXLSX = "XLSX"
)

// ImportBatch agrupa el procesamiento de un documento (NF-e o catálogo tabular).
// Los contadores permiten reanudar un batch interrumpido sin reprocesar filas ya
// confirmadas: ProcessedRows avanza fila a fila y es el punto de reanudación.
type ImportBatch struct {
	ID            string
	TenantID      string
	Source        string // XML_NFE | CSV | XLSX
	FileName      string
	ContentHash   string  // sha256 del contenido, clave de idempotencia
	NfeKey        *string // clave de acceso de 44 dígitos si es NF-e
	SupplierID    *string
	Status        string
	TotalRows     int
	ProcessedRows int
	SuccessCount  int
	ErrorCount    int
	PendingCount  int
	Errors        []string // log de errores por fila, legible para el operador
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// ImportLog registro de idempotencia: una fila por documento importado con
// éxito. La clave incluye tenant y hash de contenido; reenviar el mismo archivo
// encuentra esta fila y corta con DuplicateImportError.
type ImportLog struct {
	ID          string
	TenantID    string
	Key         string // import_<tenant>_<hash>
	ContentHash string
	BatchID     string
	CreatedAt   time.Time
}
