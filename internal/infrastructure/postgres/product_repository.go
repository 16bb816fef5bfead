package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-engine/internal/domain/inventory"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
// Los buckets viven en product_warehouses; products.total_stock es la proyección cacheada.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto con sus buckets iniciales. El total se recalcula aquí.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	total, err := domaininv.Total(product.Warehouses)
	if err != nil {
		return fmt.Errorf("producto %s: %w", product.ID, err)
	}
	product.TotalStock = total
	if product.Version == 0 {
		product.Version = 1
	}
	query := `
		INSERT INTO products (id, sku, name, total_stock, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.q.Exec(ctx, query,
		product.ID, product.SKU, product.Name, product.TotalStock, product.Version,
		product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("producto %s ya existe: %w", product.ID, err)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return r.upsertBuckets(ctx, product)
}

// GetByID obtiene un producto con sus buckets por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate obtiene el producto y bloquea su fila y la de sus buckets (SELECT FOR UPDATE).
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *ProductRepo) get(ctx context.Context, id, lock string) (*entity.Product, error) {
	query := `
		SELECT id, sku, name, total_stock, version, created_at, updated_at
		FROM products WHERE id = $1` + lock
	var p entity.Product
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.SKU, &p.Name, &p.TotalStock, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT warehouse_id, quantity
		FROM product_warehouses WHERE product_id = $1
		ORDER BY warehouse_id`+lock, id)
	if err != nil {
		return nil, fmt.Errorf("get product buckets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b entity.WarehouseBucket
		if err := rows.Scan(&b.WarehouseID, &b.Quantity); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		p.Warehouses = append(p.Warehouses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get product buckets: %w", err)
	}
	return &p, nil
}

// Save persiste buckets y total condicionado a la versión leída. Si ninguna fila coincide,
// otra transacción ganó la carrera y se devuelve repository.ErrWriteConflict.
func (r *ProductRepo) Save(ctx context.Context, product *entity.Product) error {
	total, err := domaininv.Total(product.Warehouses)
	if err != nil {
		return fmt.Errorf("producto %s: %w", product.ID, err)
	}
	product.TotalStock = total
	cmd, err := r.q.Exec(ctx, `
		UPDATE products SET total_stock = $2, version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $4`,
		product.ID, product.TotalStock, product.UpdatedAt, product.Version,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("producto %s versión %d: %w", product.ID, product.Version, repository.ErrWriteConflict)
	}
	product.Version++
	return r.upsertBuckets(ctx, product)
}

func (r *ProductRepo) upsertBuckets(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO product_warehouses (product_id, warehouse_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
		WHERE product_warehouses.quantity IS DISTINCT FROM EXCLUDED.quantity`
	for _, b := range product.Warehouses {
		if _, err := r.q.Exec(ctx, query, product.ID, b.WarehouseID, b.Quantity); err != nil {
			return fmt.Errorf("upsert bucket %s/%s: %w", product.ID, b.WarehouseID, err)
		}
	}
	return nil
}
