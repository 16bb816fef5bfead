package repository

import (
	"context"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product y sus buckets por bodega (DIP).
// GetByID/GetForUpdate devuelven (nil, nil) si no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetForUpdate bloquea el producto (y sus buckets) hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// Save persiste buckets y total condicionado a product.Version; si otra transacción
	// lo modificó devuelve ErrWriteConflict. Incrementa product.Version al guardar.
	Save(ctx context.Context, product *entity.Product) error
}
