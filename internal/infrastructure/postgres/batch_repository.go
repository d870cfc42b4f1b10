package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stockpro/importer-api/internal/domain"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/repository"
)

var _ repository.ImportBatchRepository = (*ImportBatchRepo)(nil)
var _ repository.ImportLogRepository = (*ImportLogRepo)(nil)

const batchColumns = `id, tenant_id, source, file_name, content_hash, nfe_key, supplier_id, status,
	total_rows, processed_rows, success_count, error_count, pending_count, errors,
	created_by, created_at, updated_at, completed_at`

// ImportBatchRepo implementación de ImportBatchRepository sobre PostgreSQL.
// La columna errors es jsonb (array de strings).
type ImportBatchRepo struct {
	q Querier
}

// NewImportBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewImportBatchRepository(q Querier) *ImportBatchRepo {
	return &ImportBatchRepo{q: q}
}

// Create persiste un batch nuevo.
func (r *ImportBatchRepo) Create(b *entity.ImportBatch) error {
	query := `
		INSERT INTO import_batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(context.Background(), query,
		b.ID, b.TenantID, b.Source, b.FileName, b.ContentHash, b.NfeKey, b.SupplierID, b.Status,
		b.TotalRows, b.ProcessedRows, b.SuccessCount, b.ErrorCount, b.PendingCount, b.Errors,
		b.CreatedBy, b.CreatedAt, b.UpdatedAt, b.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert import batch: %w", err)
	}
	return nil
}

// GetByID obtiene un batch por ID.
func (r *ImportBatchRepo) GetByID(id string) (*entity.ImportBatch, error) {
	query := `SELECT ` + batchColumns + ` FROM import_batches WHERE id = $1`
	return r.one(query, id)
}

// Update persiste contadores, estado y errores del batch.
func (r *ImportBatchRepo) Update(b *entity.ImportBatch) error {
	query := `
		UPDATE import_batches SET nfe_key = $2, supplier_id = $3, status = $4, total_rows = $5,
			processed_rows = $6, success_count = $7, error_count = $8, pending_count = $9,
			errors = $10, updated_at = $11, completed_at = $12
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		b.ID, b.NfeKey, b.SupplierID, b.Status, b.TotalRows,
		b.ProcessedRows, b.SuccessCount, b.ErrorCount, b.PendingCount,
		b.Errors, b.UpdatedAt, b.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update import batch: %w", err)
	}
	return nil
}

// FindByNfeKey dedup por clave de acceso de la NF-e; (nil, nil) si no existe.
func (r *ImportBatchRepo) FindByNfeKey(tenantID, nfeKey string) (*entity.ImportBatch, error) {
	query := `
		SELECT ` + batchColumns + ` FROM import_batches
		WHERE tenant_id = $1 AND nfe_key = $2
		ORDER BY created_at DESC LIMIT 1`
	return r.one(query, tenantID, nfeKey)
}

// ListByTenant lista batches del tenant, los más recientes primero.
func (r *ImportBatchRepo) ListByTenant(tenantID string, limit, offset int) ([]*entity.ImportBatch, error) {
	query := `
		SELECT ` + batchColumns + ` FROM import_batches
		WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(context.Background(), query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	defer rows.Close()
	var list []*entity.ImportBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// Delete elimina el batch (la reversión lo llama al final).
func (r *ImportBatchRepo) Delete(id string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM import_batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete import batch: %w", err)
	}
	return nil
}

func (r *ImportBatchRepo) one(query string, args ...any) (*entity.ImportBatch, error) {
	b, err := scanBatch(r.q.QueryRow(context.Background(), query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func scanBatch(row pgxScanner) (*entity.ImportBatch, error) {
	var b entity.ImportBatch
	err := row.Scan(
		&b.ID, &b.TenantID, &b.Source, &b.FileName, &b.ContentHash, &b.NfeKey, &b.SupplierID, &b.Status,
		&b.TotalRows, &b.ProcessedRows, &b.SuccessCount, &b.ErrorCount, &b.PendingCount, &b.Errors,
		&b.CreatedBy, &b.CreatedAt, &b.UpdatedAt, &b.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan import batch: %w", err)
	}
	return &b, nil
}

// ImportLogRepo implementación de ImportLogRepository sobre PostgreSQL.
type ImportLogRepo struct {
	q Querier
}

// NewImportLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewImportLogRepository(q Querier) *ImportLogRepo {
	return &ImportLogRepo{q: q}
}

// Create persiste el registro de idempotencia.
func (r *ImportLogRepo) Create(l *entity.ImportLog) error {
	query := `
		INSERT INTO import_logs (id, tenant_id, key, content_hash, batch_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(context.Background(), query,
		l.ID, l.TenantID, l.Key, l.ContentHash, l.BatchID, l.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert import log: %w", err)
	}
	return nil
}

// FindByKey devuelve el registro o (nil, nil).
func (r *ImportLogRepo) FindByKey(key string) (*entity.ImportLog, error) {
	query := `
		SELECT id, tenant_id, key, content_hash, batch_id, created_at
		FROM import_logs WHERE key = $1`
	var l entity.ImportLog
	err := r.q.QueryRow(context.Background(), query, key).Scan(
		&l.ID, &l.TenantID, &l.Key, &l.ContentHash, &l.BatchID, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get import log: %w", err)
	}
	return &l, nil
}

// DeleteByKey libera la clave al revertir un batch.
func (r *ImportLogRepo) DeleteByKey(key string) error {
	_, err := r.q.Exec(context.Background(), `DELETE FROM import_logs WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete import log: %w", err)
	}
	return nil
}
