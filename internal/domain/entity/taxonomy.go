package entity

import "time"

// Category categoría de producto por tenant (Tecidos, Aviamentos, Ferramentas...).
type Category struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}

// Brand marca de producto por tenant.
type Brand struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}
