package repository

import (
	"context"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// WarehouseRepository define el puerto de consulta de bodegas (el catálogo es externo al motor).
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
}
