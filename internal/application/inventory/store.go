package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-engine/internal/domain/inventory"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// BucketChange cambio aplicado a un bucket (previo, nuevo, delta).
type BucketChange = domaininv.BucketChange

// Store estado actual por producto y bodega. Todas sus operaciones corren dentro de la tx recibida;
// nada es visible fuera hasta el Commit.
type Store struct {
	now func() time.Time
}

// NewStore construye el store con el reloj dado.
func NewStore(now func() time.Time) *Store {
	return &Store{now: now}
}

// GetBucket devuelve la cantidad del producto en la bodega.
// ErrNotFound si el producto no existe, ErrProductNotInWarehouse si no hay bucket.
func (s *Store) GetBucket(ctx context.Context, tx repository.Tx, productID, warehouseID string) (int64, error) {
	p, err := s.load(ctx, tx, productID)
	if err != nil {
		return 0, err
	}
	q, ok := p.Bucket(warehouseID)
	if !ok {
		return 0, &domain.StockError{Err: domain.ErrProductNotInWarehouse, ProductID: productID, WarehouseID: warehouseID}
	}
	return q, nil
}

// AdjustBucket aplica delta al bucket, recalcula el total del producto desde los buckets y persiste.
// Delta positivo crea el bucket si no existe (entradas por traslado, reposición).
func (s *Store) AdjustBucket(ctx context.Context, tx repository.Tx, productID, warehouseID string, delta int64) (BucketChange, error) {
	p, err := s.load(ctx, tx, productID)
	if err != nil {
		return BucketChange{}, err
	}
	change, err := domaininv.ApplyDelta(p, warehouseID, delta)
	if err != nil {
		return BucketChange{}, err
	}
	p.UpdatedAt = s.now()
	if err := tx.Products().Save(ctx, p); err != nil {
		return BucketChange{}, err
	}
	return change, nil
}

// load bloquea el producto para el resto de la transacción.
func (s *Store) load(ctx context.Context, tx repository.Tx, productID string) (*entity.Product, error) {
	p, err := tx.Products().GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	return p, nil
}
