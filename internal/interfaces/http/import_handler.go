package http

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/stockpro/importer-api/internal/application/dto"
	"github.com/stockpro/importer-api/internal/application/importer"
	"github.com/stockpro/importer-api/internal/domain/entity"
)

// ImportHandler maneja las peticiones HTTP de importación de documentos (protegido).
type ImportHandler struct {
	nfeUC      *importer.NfeImportUseCase
	catalogUC  *importer.CatalogImportUseCase
	reversalUC *importer.ReversalUseCase
	batches    BatchReader
}

// BatchReader consulta de batches para los endpoints de lectura.
type BatchReader interface {
	GetByID(id string) (*entity.ImportBatch, error)
	ListByTenant(tenantID string, limit, offset int) ([]*entity.ImportBatch, error)
}

// NewImportHandler construye el handler.
func NewImportHandler(nfeUC *importer.NfeImportUseCase, catalogUC *importer.CatalogImportUseCase, reversalUC *importer.ReversalUseCase, batches BatchReader) *ImportHandler {
	return &ImportHandler{nfeUC: nfeUC, catalogUC: catalogUC, reversalUC: reversalUC, batches: batches}
}

// ImportNfe godoc
// @Summary      Importar NF-e (XML)
// @Tags         imports
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "XML de la NF-e (modelo 55)"
// @Success      201  {object}  dto.ImportBatchResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/imports/nfe [post]
func (h *ImportHandler) ImportNfe(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	if tenantID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	fileName, content, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "archivo requerido (multipart 'file' o body crudo)"})
	}

	batch, err := h.nfeUC.Import(c.Context(), tenantID, userID, fileName, content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewImportBatchResponse(batch))
}

// ImportCatalog godoc
// @Summary      Importar catálogo (CSV o XLSX)
// @Tags         imports
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "catálogo tabular; formato por extensión (.csv / .xlsx)"
// @Success      201  {object}  dto.ImportBatchResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/imports/catalog [post]
func (h *ImportHandler) ImportCatalog(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	if tenantID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	fileName, content, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "archivo requerido (multipart 'file' o body crudo)"})
	}

	source := entity.BatchSourceCSV
	if strings.HasSuffix(strings.ToLower(fileName), ".xlsx") {
		source = entity.BatchSourceXLSX
	}

	batch, err := h.catalogUC.Import(c.Context(), tenantID, userID, fileName, source, content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewImportBatchResponse(batch))
}

// GetBatch godoc
// @Summary      Consultar batch de importación
// @Tags         imports
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del batch"
// @Success      200  {object}  dto.ImportBatchResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/imports/{id} [get]
func (h *ImportHandler) GetBatch(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	batch, err := h.batches.GetByID(c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if batch == nil || batch.TenantID != tenantID {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "batch no encontrado"})
	}
	return c.JSON(dto.NewImportBatchResponse(batch))
}

// ListBatches godoc
// @Summary      Listar batches del tenant
// @Tags         imports
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "máximo de resultados (default 50)"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200  {array}  dto.ImportBatchResponse
// @Router       /api/imports [get]
func (h *ImportHandler) ListBatches(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)

	batches, err := h.batches.ListByTenant(tenantID, limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.ImportBatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, dto.NewImportBatchResponse(b))
	}
	return c.JSON(out)
}

// ResumeBatch godoc
// @Summary      Reanudar un batch interrumpido
// @Description  Reenvía el mismo archivo; el procesamiento continúa desde la última fila confirmada.
// @Tags         imports
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string  true  "ID del batch"
// @Param        file  formData  file    true  "mismo archivo original (se verifica el hash)"
// @Success      200  {object}  dto.ImportBatchResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/imports/{id}/resume [post]
func (h *ImportHandler) ResumeBatch(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	_, content, err := readUpload(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "archivo requerido (multipart 'file' o body crudo)"})
	}
	batch, err := h.nfeUC.Resume(c.Context(), tenantID, c.Params("id"), content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewImportBatchResponse(batch))
}

// ReverseBatch godoc
// @Summary      Revertir y eliminar un batch
// @Description  Resta el stock que el batch sumó, borra sus movimientos e ítems staged y libera la clave de idempotencia.
// @Tags         imports
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del batch"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/imports/{id} [delete]
func (h *ImportHandler) ReverseBatch(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if err := h.reversalUC.ReverseBatch(c.Context(), tenantID, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// readUpload acepta el archivo por multipart ("file") o como body crudo.
func readUpload(c *fiber.Ctx) (fileName string, content []byte, err error) {
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		content, err := io.ReadAll(f)
		if err != nil {
			return "", nil, err
		}
		return fh.Filename, content, nil
	}
	body := c.Body()
	if len(body) == 0 {
		return "", nil, fiber.ErrBadRequest
	}
	raw := make([]byte, len(body))
	copy(raw, body)
	return "upload", raw, nil
}
