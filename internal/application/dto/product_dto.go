package dto

import (
	"time"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// BucketResponse existencias de un producto en una bodega.
type BucketResponse struct {
	WarehouseID string `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"`
}

// ProductStockResponse stock actual de un producto. TotalStock siempre es la suma de Buckets.
type ProductStockResponse struct {
	ID         string           `json:"id"`
	SKU        string           `json:"sku"`
	Name       string           `json:"name"`
	TotalStock int64            `json:"total_stock"`
	Buckets    []BucketResponse `json:"buckets"`
	Version    int64            `json:"version"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// FromProduct mapea el producto a su vista de stock.
func FromProduct(p *entity.Product) ProductStockResponse {
	out := ProductStockResponse{
		ID: p.ID, SKU: p.SKU, Name: p.Name, TotalStock: p.TotalStock,
		Version: p.Version, UpdatedAt: p.UpdatedAt,
		Buckets: make([]BucketResponse, 0, len(p.Warehouses)),
	}
	for _, b := range p.Warehouses {
		out.Buckets = append(out.Buckets, BucketResponse{WarehouseID: b.WarehouseID, Quantity: b.Quantity})
	}
	return out
}
