package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/repository"
)

var _ repository.CategoryRepository = (*CategoryRepo)(nil)
var _ repository.BrandRepository = (*BrandRepo)(nil)

// CategoryRepo implementación de CategoryRepository sobre PostgreSQL (usable con pool o tx).
type CategoryRepo struct {
	q Querier
}

// NewCategoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCategoryRepository(q Querier) *CategoryRepo {
	return &CategoryRepo{q: q}
}

// GetOrCreate busca la categoría por nombre (case-insensitive) y la crea si no existe.
func (r *CategoryRepo) GetOrCreate(tenantID, name string) (*entity.Category, error) {
	var c entity.Category
	err := r.q.QueryRow(context.Background(),
		`SELECT id, tenant_id, name, created_at FROM categories
		 WHERE tenant_id = $1 AND lower(name) = lower($2)`,
		tenantID, name,
	).Scan(&c.ID, &c.TenantID, &c.Name, &c.CreatedAt)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get category: %w", err)
	}

	c = entity.Category{ID: uuid.New().String(), TenantID: tenantID, Name: name, CreatedAt: time.Now()}
	_, err = r.q.Exec(context.Background(),
		`INSERT INTO categories (id, tenant_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		c.ID, c.TenantID, c.Name, c.CreatedAt,
	)
	if err != nil {
		// Carrera: otro proceso la creó entre el SELECT y el INSERT.
		if isUniqueViolation(err) {
			return r.GetOrCreate(tenantID, name)
		}
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return &c, nil
}

// ListNames nombres existentes del tenant, para el diccionario del clasificador.
func (r *CategoryRepo) ListNames(tenantID string, limit int) ([]string, error) {
	return listNames(r.q, `SELECT name FROM categories WHERE tenant_id = $1 ORDER BY name LIMIT $2`, tenantID, limit)
}

// BrandRepo implementación de BrandRepository sobre PostgreSQL (usable con pool o tx).
type BrandRepo struct {
	q Querier
}

// NewBrandRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBrandRepository(q Querier) *BrandRepo {
	return &BrandRepo{q: q}
}

// GetOrCreate busca la marca por nombre (case-insensitive) y la crea si no existe.
func (r *BrandRepo) GetOrCreate(tenantID, name string) (*entity.Brand, error) {
	var b entity.Brand
	err := r.q.QueryRow(context.Background(),
		`SELECT id, tenant_id, name, created_at FROM brands
		 WHERE tenant_id = $1 AND lower(name) = lower($2)`,
		tenantID, name,
	).Scan(&b.ID, &b.TenantID, &b.Name, &b.CreatedAt)
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get brand: %w", err)
	}

	b = entity.Brand{ID: uuid.New().String(), TenantID: tenantID, Name: name, CreatedAt: time.Now()}
	_, err = r.q.Exec(context.Background(),
		`INSERT INTO brands (id, tenant_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		b.ID, b.TenantID, b.Name, b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return r.GetOrCreate(tenantID, name)
		}
		return nil, fmt.Errorf("insert brand: %w", err)
	}
	return &b, nil
}

// ListNames nombres existentes del tenant, para el diccionario del clasificador.
func (r *BrandRepo) ListNames(tenantID string, limit int) ([]string, error) {
	return listNames(r.q, `SELECT name FROM brands WHERE tenant_id = $1 ORDER BY name LIMIT $2`, tenantID, limit)
}

func listNames(q Querier, query, tenantID string, limit int) ([]string, error) {
	rows, err := q.Query(context.Background(), query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list names: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
