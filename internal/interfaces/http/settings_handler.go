package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stockpro/importer-api/internal/application/dto"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/repository"
)

// SettingsHandler maneja la política de importación por tenant (protegido).
type SettingsHandler struct {
	repo repository.TenantSettingsRepository
}

// NewSettingsHandler construye el handler.
func NewSettingsHandler(repo repository.TenantSettingsRepository) *SettingsHandler {
	return &SettingsHandler{repo: repo}
}

// Get godoc
// @Summary      Consultar la política de importación del tenant
// @Tags         settings
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.SettingsResponse
// @Router       /api/settings [get]
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.repo.GetOrDefault(GetTenantID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewSettingsResponse(settings))
}

// Update godoc
// @Summary      Actualizar la política de importación del tenant
// @Description  Los campos omitidos conservan su valor actual.
// @Tags         settings
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SettingsRequest  true  "política nueva"
// @Success      200  {object}  dto.SettingsResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/settings [put]
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	var in dto.SettingsRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	settings, err := h.repo.GetOrDefault(tenantID)
	if err != nil {
		return respondError(c, err)
	}

	if in.ImportMode != "" {
		switch in.ImportMode {
		case entity.ImportModeAuto, entity.ImportModeHybrid, entity.ImportModeManual:
			settings.ImportMode = in.ImportMode
		default:
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "import_mode debe ser AUTO, HYBRID o MANUAL"})
		}
	}
	if in.AutoCommitThreshold != nil {
		settings.AutoCommitThreshold = *in.AutoCommitThreshold
	}
	if in.AllowNegativeStock != nil {
		settings.AllowNegativeStock = *in.AllowNegativeStock
	}
	if in.NameSimilarityThreshold != nil {
		settings.NameSimilarityThreshold = *in.NameSimilarityThreshold
	}
	if in.AIEnabled != nil {
		settings.AIEnabled = *in.AIEnabled
	}

	if err := h.repo.Save(settings); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewSettingsResponse(settings))
}
