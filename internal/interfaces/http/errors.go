package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/stockpro/importer-api/internal/application/dto"
	"github.com/stockpro/importer-api/internal/domain"
)

// respondError traduce los errores del dominio al contrato HTTP. Todo lo no
// tipado es un 500 con el mensaje crudo.
func respondError(c *fiber.Ctx, err error) error {
	var (
		parseErr      *domain.ParseError
		validationErr *domain.ValidationError
		stockErr      *domain.InsufficientStockError
		movementErr   *domain.InvalidMovementError
		duplicateErr  *domain.DuplicateImportError
	)
	switch {
	case errors.As(err, &parseErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "PARSE_ERROR", Message: parseErr.Error()})
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: validationErr.Error()})
	case errors.As(err, &movementErr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_MOVEMENT", Message: movementErr.Error()})
	case errors.As(err, &stockErr):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: stockErr.Error()})
	case errors.As(err, &duplicateErr):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE_IMPORT", Message: duplicateErr.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	case errors.Is(err, domain.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "no autorizado"})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: "el recurso ya fue resuelto o está en un estado incompatible"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el recurso ya existe"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
