package inventory

import (
	"fmt"
	"math"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// BucketChange resultado de aplicar un delta a un bucket (servicio de dominio).
type BucketChange struct {
	ProductID   string
	WarehouseID string
	Previous    int64
	New         int64
	Delta       int64
}

// MovementType dirección del cambio.
func (c BucketChange) MovementType() entity.MovementType {
	if c.Delta < 0 {
		return entity.MovementDecrease
	}
	return entity.MovementIncrease
}

// Quantity magnitud positiva del cambio.
func (c BucketChange) Quantity() int64 {
	if c.Delta < 0 {
		return -c.Delta
	}
	return c.Delta
}

// ApplyDelta modifica el bucket de p en memoria y recalcula TotalStock.
// Delta negativo exige bucket existente y cantidad suficiente; delta positivo crea el bucket si falta.
// Un bucket o un total que exceda int64 es domain.ErrInvalidArgument. Si devuelve error, p queda intacto.
func ApplyDelta(p *entity.Product, warehouseID string, delta int64) (BucketChange, error) {
	if delta == 0 || warehouseID == "" {
		return BucketChange{}, domain.ErrInvalidArgument
	}
	idx := -1
	for i, b := range p.Warehouses {
		if b.WarehouseID == warehouseID {
			idx = i
			break
		}
	}
	var prev int64
	if idx >= 0 {
		prev = p.Warehouses[idx].Quantity
	} else if delta < 0 {
		return BucketChange{}, &domain.StockError{
			Err: domain.ErrProductNotInWarehouse, ProductID: p.ID, WarehouseID: warehouseID,
		}
	}
	if delta > 0 && prev > math.MaxInt64-delta {
		return BucketChange{}, fmt.Errorf("%w: cantidad fuera de rango en %s/%s", domain.ErrInvalidArgument, p.ID, warehouseID)
	}
	next := prev + delta
	if next < 0 {
		return BucketChange{}, &domain.StockError{
			Err: domain.ErrInsufficientStock, ProductID: p.ID, WarehouseID: warehouseID,
			Requested: -delta, Available: prev,
		}
	}
	// el total se valida antes de tocar p
	total, err := Total(p.Warehouses)
	if err != nil {
		return BucketChange{}, err
	}
	if delta > 0 && total > math.MaxInt64-delta {
		return BucketChange{}, fmt.Errorf("%w: stock total de %s fuera de rango", domain.ErrInvalidArgument, p.ID)
	}

	if idx < 0 {
		p.Warehouses = append(p.Warehouses, entity.WarehouseBucket{WarehouseID: warehouseID})
		idx = len(p.Warehouses) - 1
	}
	p.Warehouses[idx].Quantity = next
	p.TotalStock = total + delta
	return BucketChange{
		ProductID:   p.ID,
		WarehouseID: warehouseID,
		Previous:    prev,
		New:         next,
		Delta:       delta,
	}, nil
}

// Total suma las cantidades de todos los buckets. Una suma que no cabe en int64 es
// domain.ErrInvalidArgument.
func Total(buckets []entity.WarehouseBucket) (int64, error) {
	var sum int64
	for _, b := range buckets {
		if (b.Quantity > 0 && sum > math.MaxInt64-b.Quantity) || (b.Quantity < 0 && sum < math.MinInt64-b.Quantity) {
			return 0, fmt.Errorf("%w: suma de buckets fuera de rango", domain.ErrInvalidArgument)
		}
		sum += b.Quantity
	}
	return sum, nil
}

// CheckProduct valida las invariantes de un producto: total = suma y ningún bucket negativo.
func CheckProduct(p *entity.Product) error {
	for _, b := range p.Warehouses {
		if b.Quantity < 0 {
			return &domain.StockError{Err: domain.ErrInsufficientStock, ProductID: p.ID, WarehouseID: b.WarehouseID, Available: b.Quantity}
		}
	}
	total, err := Total(p.Warehouses)
	if err != nil {
		return err
	}
	if p.TotalStock != total {
		return domain.ErrInvalidState
	}
	return nil
}
