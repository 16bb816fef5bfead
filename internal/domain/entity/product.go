package entity

import "time"

// WarehouseBucket cantidad de un producto en una bodega.
type WarehouseBucket struct {
	WarehouseID string
	Quantity    int64
}

// Product representa un producto con existencias por bodega (multi-bodega).
// TotalStock es una proyección: siempre igual a la suma de Warehouses y se recalcula en cada escritura.
// Solo el motor de stock modifica Warehouses; el catálogo crea el producto.
type Product struct {
	ID         string
	SKU        string
	Name       string
	Warehouses []WarehouseBucket
	TotalStock int64
	Version    int64 // token de concurrencia optimista
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Bucket devuelve la cantidad en la bodega y si existe el registro.
func (p *Product) Bucket(warehouseID string) (int64, bool) {
	for _, b := range p.Warehouses {
		if b.WarehouseID == warehouseID {
			return b.Quantity, true
		}
	}
	return 0, false
}

// Clone copia profunda (los buckets no se comparten).
func (p *Product) Clone() *Product {
	c := *p
	c.Warehouses = append([]WarehouseBucket(nil), p.Warehouses...)
	return &c
}
