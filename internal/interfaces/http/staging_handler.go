package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stockpro/importer-api/internal/application/dto"
	"github.com/stockpro/importer-api/internal/application/staging"
)

// StagingHandler maneja las peticiones HTTP de la cola de curaduría (protegido).
type StagingHandler struct {
	uc *staging.UseCase
}

// NewStagingHandler construye el handler.
func NewStagingHandler(uc *staging.UseCase) *StagingHandler {
	return &StagingHandler{uc: uc}
}

// ListPending godoc
// @Summary      Listar ítems pendientes de curaduría
// @Tags         staging
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "máximo de resultados (default 50)"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200  {array}  dto.StagedItemResponse
// @Router       /api/staging [get]
func (h *StagingHandler) ListPending(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	items, err := h.uc.ListPending(tenantID, c.QueryInt("limit", 50), c.QueryInt("offset", 0))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.StagedItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, dto.NewStagedItemResponse(it))
	}
	return c.JSON(out)
}

// Approve godoc
// @Summary      Aprobar un ítem staged
// @Description  Vincula o crea el producto/variante, asienta el movimiento IN y aprende el mapeo de proveedor.
// @Tags         staging
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string              true  "ID del ítem"
// @Param        body  body  dto.ApproveRequest  true  "resolución del operador"
// @Success      200  {object}  dto.StagedItemResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/staging/{id}/approve [post]
func (h *StagingHandler) Approve(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	var in dto.ApproveRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res := staging.Resolution{
		Kind:           in.Kind,
		ProductID:      in.ProductID,
		VariantID:      in.VariantID,
		SKU:            in.SKU,
		Name:           in.Name,
		Barcode:        in.Barcode,
		UOM:            in.UOM,
		CategoryName:   in.CategoryName,
		BrandName:      in.BrandName,
		AttributeName:  in.AttributeName,
		AttributeValue: in.AttributeValue,
		SalePrice:      in.SalePrice,
	}
	item, err := h.uc.Approve(c.Context(), tenantID, userID, c.Params("id"), res)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewStagedItemResponse(item))
}

// Reject godoc
// @Summary      Rechazar un ítem staged
// @Tags         staging
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del ítem"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/staging/{id}/reject [post]
func (h *StagingHandler) Reject(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	if err := h.uc.Reject(c.Context(), tenantID, userID, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BulkApprove godoc
// @Summary      Aprobar ítems en lote
// @Description  Cada ítem se aprueba con la resolución derivada de su sugerencia; las fallas no abortan el resto.
// @Tags         staging
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BulkRequest  true  "IDs a aprobar"
// @Success      200  {object}  dto.BulkResponse
// @Router       /api/staging/bulk-approve [post]
func (h *StagingHandler) BulkApprove(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	var in dto.BulkRequest
	if err := c.BodyParser(&in); err != nil || len(in.IDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "se requiere la lista ids"})
	}
	result := h.uc.BulkApprove(c.Context(), tenantID, userID, in.IDs)
	return c.JSON(dto.BulkResponse(result))
}

// BulkReject godoc
// @Summary      Rechazar ítems en lote
// @Tags         staging
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BulkRequest  true  "IDs a rechazar"
// @Success      200  {object}  dto.BulkResponse
// @Router       /api/staging/bulk-reject [post]
func (h *StagingHandler) BulkReject(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	var in dto.BulkRequest
	if err := c.BodyParser(&in); err != nil || len(in.IDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "se requiere la lista ids"})
	}
	result := h.uc.BulkReject(c.Context(), tenantID, userID, in.IDs)
	return c.JSON(dto.BulkResponse(result))
}

// CreateDraft godoc
// @Summary      Crear un borrador en la cola
// @Description  Alta manual vía API: entra con cantidad cero y al aprobarse no mueve stock.
// @Tags         staging
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.DraftRequest  true  "descripción y datos opcionales"
// @Success      201  {object}  dto.StagedItemResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/staging/drafts [post]
func (h *StagingHandler) CreateDraft(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	var in dto.DraftRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	item, err := h.uc.StageDraft(tenantID, userID, staging.DraftInput{
		Description: in.Description,
		SKU:         in.SKU,
		Barcode:     in.Barcode,
		UOM:         in.UOM,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewStagedItemResponse(item))
}
