// Package ledger implementa el escritor del libro de inventario: el único
// camino por el que se muta stock o costo promedio de un producto/variante.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/domain"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/inventory"
	"github.com/stockpro/importer-api/internal/domain/repository"

	"context"
)

// MovementInput entrada para registrar un movimiento. Exactamente uno de
// ProductID/VariantID debe estar presente. UnitCost solo aplica en IN.
type MovementInput struct {
	TenantID      string
	UserID        string
	ProductID     string
	VariantID     string
	Type          string // IN | OUT | ADJ
	Quantity      decimal.Decimal
	UnitCost      *decimal.Decimal
	Source        string
	SourceDoc     string
	BatchID       *string
	Note          string
	AllowNegative bool // política del tenant: permite stock negativo en OUT
}

// UseCase registra movimientos de forma transaccional con bloqueo de fila
// (SELECT FOR UPDATE) sobre el target, serializando mutaciones concurrentes.
type UseCase struct {
	txRunner TxRunner
}

// NewUseCase construye el caso de uso.
func NewUseCase(txRunner TxRunner) *UseCase {
	return &UseCase{txRunner: txRunner}
}

// Commit valida la entrada, abre una transacción y registra el movimiento.
func (uc *UseCase) Commit(ctx context.Context, input MovementInput) (*entity.StockMovement, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	var mov *entity.StockMovement
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		variantRepo repository.VariantRepository,
	) error {
		var err error
		mov, err = uc.CommitInTx(movRepo, productRepo, variantRepo, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// CommitInTx registra el movimiento usando los repositorios del caller (misma
// transacción). Lo usan la importación y la curaduría para que el asiento y sus
// efectos queden en la transacción del flujo que los origina.
func (uc *UseCase) CommitInTx(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
	input MovementInput,
) (*entity.StockMovement, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	// Bloquea la fila del target; el lock vive hasta el Commit/Rollback del caller.
	var (
		current decimal.Decimal
		avgCost decimal.Decimal
		sku     string
	)
	if input.VariantID != "" {
		v, err := variantRepo.GetForUpdate(input.VariantID)
		if err != nil {
			return nil, err
		}
		if v == nil || v.TenantID != input.TenantID {
			return nil, domain.ErrNotFound
		}
		current, avgCost, sku = v.CurrentStock, v.AvgUnitCost, v.SKU
	} else {
		p, err := productRepo.GetForUpdate(input.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil || p.TenantID != input.TenantID {
			return nil, domain.ErrNotFound
		}
		if p.Type == entity.ProductTypeVariable {
			return nil, &domain.InvalidMovementError{
				Type:   input.Type,
				Reason: "el stock de un producto VARIABLE vive en sus variantes",
			}
		}
		current, avgCost, sku = p.CurrentStock, p.AvgUnitCost, p.SKU
	}

	newStock, newCost, movQty, movCost, err := apply(input, current, avgCost, sku)
	if err != nil {
		return nil, err
	}

	if input.VariantID != "" {
		if err := variantRepo.UpdateStockAndCost(input.VariantID, newStock, newCost); err != nil {
			return nil, err
		}
	} else {
		if err := productRepo.UpdateStockAndCost(input.ProductID, newStock, newCost); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	mov := &entity.StockMovement{
		ID:           uuid.New().String(),
		TenantID:     input.TenantID,
		Type:         input.Type,
		Quantity:     movQty,
		UnitCost:     movCost,
		TotalCost:    movQty.Mul(movCost),
		BalanceAfter: newStock,
		Source:       input.Source,
		SourceDoc:    input.SourceDoc,
		BatchID:      input.BatchID,
		Note:         input.Note,
		CreatedBy:    input.UserID,
		CreatedAt:    now,
	}
	if input.VariantID != "" {
		id := input.VariantID
		mov.VariantID = &id
	} else {
		id := input.ProductID
		mov.ProductID = &id
	}
	if err := movRepo.Create(mov); err != nil {
		return nil, fmt.Errorf("insertar movimiento: %w", err)
	}
	return mov, nil
}

// apply calcula el stock y costo resultantes según el tipo de movimiento.
func apply(input MovementInput, current, avgCost decimal.Decimal, sku string) (
	newStock, newCost, movQty, movCost decimal.Decimal, err error,
) {
	newCost = avgCost
	switch input.Type {
	case entity.MovementTypeIN:
		newStock = current.Add(input.Quantity)
		movQty = input.Quantity
		movCost = avgCost
		if input.UnitCost != nil {
			movCost = *input.UnitCost
			// Con stock resultante cero o negativo el promedio no tiene
			// denominador válido: se conserva el costo anterior.
			if newStock.GreaterThan(decimal.Zero) {
				newCost = inventory.CostCalculator(current, avgCost, input.Quantity, *input.UnitCost)
			}
		}
	case entity.MovementTypeOUT:
		newStock = current.Sub(input.Quantity)
		if newStock.IsNegative() && !input.AllowNegative {
			return newStock, newCost, movQty, movCost, &domain.InsufficientStockError{
				SKU:       sku,
				Available: current,
				Requested: input.Quantity,
			}
		}
		movQty = input.Quantity.Neg()
		movCost = avgCost
	case entity.MovementTypeADJ:
		// Ajuste absoluto: fija el stock al valor dado; el costo no cambia.
		newStock = input.Quantity
		movQty = input.Quantity
		movCost = avgCost
	}
	return newStock, newCost, movQty, movCost, nil
}

func validate(input MovementInput) error {
	switch input.Type {
	case entity.MovementTypeIN, entity.MovementTypeOUT:
		if !input.Quantity.GreaterThan(decimal.Zero) {
			return &domain.InvalidMovementError{Type: input.Type, Reason: "la cantidad debe ser positiva"}
		}
	case entity.MovementTypeADJ:
		if input.Quantity.IsNegative() {
			return &domain.InvalidMovementError{Type: input.Type, Reason: "el ajuste absoluto no puede ser negativo"}
		}
	default:
		return &domain.InvalidMovementError{Type: input.Type, Reason: "tipo desconocido"}
	}
	if (input.ProductID == "") == (input.VariantID == "") {
		return &domain.InvalidMovementError{Type: input.Type, Reason: "se requiere exactamente un target (producto o variante)"}
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return &domain.InvalidMovementError{Type: input.Type, Reason: "el costo unitario no puede ser negativo"}
	}
	return nil
}
