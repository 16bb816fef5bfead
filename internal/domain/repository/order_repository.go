package repository

import (
	"context"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// OrderRepository define el puerto de persistencia para pedidos y sus líneas.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Order, error)
	// Save persiste estado y sellos condicionado a order.Version (ErrWriteConflict si cambió).
	Save(ctx context.Context, order *entity.Order) error
}
