package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stockpro/importer-api/internal/application/dto"
	"github.com/stockpro/importer-api/internal/application/ledger"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/repository"
)

// MovementHandler maneja las peticiones HTTP del libro de movimientos (protegido).
type MovementHandler struct {
	ledger       *ledger.UseCase
	movRepo      repository.StockMovementRepository
	settingsRepo repository.TenantSettingsRepository
}

// NewMovementHandler construye el handler.
func NewMovementHandler(ledgerUC *ledger.UseCase, movRepo repository.StockMovementRepository, settingsRepo repository.TenantSettingsRepository) *MovementHandler {
	return &MovementHandler{ledger: ledgerUC, movRepo: movRepo, settingsRepo: settingsRepo}
}

// Register godoc
// @Summary      Registrar movimiento manual de stock
// @Description  IN suma y recalcula costo promedio, OUT resta al costo vigente, ADJ fija el stock absoluto.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.MovementRequest  true  "exactamente uno de product_id/variant_id"
// @Success      201  {object}  dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/movements [post]
func (h *MovementHandler) Register(c *fiber.Ctx) error {
	tenantID, userID := GetTenantID(c), GetUserID(c)
	if tenantID == "" || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.MovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	settings, err := h.settingsRepo.GetOrDefault(tenantID)
	if err != nil {
		return respondError(c, err)
	}

	mov, err := h.ledger.Commit(c.Context(), ledger.MovementInput{
		TenantID:      tenantID,
		UserID:        userID,
		ProductID:     in.ProductID,
		VariantID:     in.VariantID,
		Type:          in.Type,
		Quantity:      in.Quantity,
		UnitCost:      in.UnitCost,
		Source:        entity.MovementSourceManual,
		Note:          in.Note,
		AllowNegative: settings.AllowNegativeStock,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewMovementResponse(mov))
}

// ListByTarget godoc
// @Summary      Historial de movimientos de un producto o variante
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  false  "filtrar por producto"
// @Param        variant_id  query  string  false  "filtrar por variante"
// @Param        limit       query  int     false  "máximo de resultados (default 50)"
// @Param        offset      query  int     false  "desplazamiento"
// @Success      200  {array}  dto.MovementResponse
// @Router       /api/movements [get]
func (h *MovementHandler) ListByTarget(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var productID, variantID *string
	if v := c.Query("product_id"); v != "" {
		productID = &v
	}
	if v := c.Query("variant_id"); v != "" {
		variantID = &v
	}

	movements, err := h.movRepo.ListByTarget(tenantID, productID, variantID, limit, c.QueryInt("offset", 0))
	if err != nil {
		return respondError(c, err)
	}
	out := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, dto.NewMovementResponse(m))
	}
	return c.JSON(out)
}
