package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo implementación de OrderRepository sobre PostgreSQL (usable con pool o tx).
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador de pedidos. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

const orderColumns = `id, status, warehouse_id, customer_name,
	confirmed_by, confirmed_at, prepared_by, prepared_at,
	canceled_by, canceled_at, cancel_reason, version, created_at, updated_at`

// Create persiste el pedido y sus líneas.
func (r *OrderRepo) Create(ctx context.Context, order *entity.Order) error {
	if order.Version == 0 {
		order.Version = 1
	}
	query := `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query,
		order.ID, order.Status, order.WarehouseID, order.CustomerName,
		order.ConfirmedBy, order.ConfirmedAt, order.PreparedBy, order.PreparedAt,
		order.CanceledBy, order.CanceledAt, order.CancelReason, order.Version,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pedido %s ya existe: %w", order.ID, err)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	for i, it := range order.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO order_items (order_id, line_no, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			order.ID, i+1, it.ProductID, it.Quantity, it.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// GetByID obtiene el pedido con sus líneas.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate obtiene el pedido y bloquea la fila (SELECT FOR UPDATE).
func (r *OrderRepo) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *OrderRepo) get(ctx context.Context, id, lock string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1` + lock
	var o entity.Order
	err := r.q.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.Status, &o.WarehouseID, &o.CustomerName,
		&o.ConfirmedBy, &o.ConfirmedAt, &o.PreparedBy, &o.PreparedAt,
		&o.CanceledBy, &o.CanceledAt, &o.CancelReason, &o.Version,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT product_id, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	return &o, nil
}

// Save persiste estado y sellos del pedido condicionado a la versión leída.
// Las líneas no cambian después de crear el pedido.
func (r *OrderRepo) Save(ctx context.Context, order *entity.Order) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE orders SET status = $2,
			confirmed_by = $3, confirmed_at = $4,
			prepared_by = $5, prepared_at = $6,
			canceled_by = $7, canceled_at = $8, cancel_reason = $9,
			version = version + 1, updated_at = $10
		WHERE id = $1 AND version = $11`,
		order.ID, order.Status,
		order.ConfirmedBy, order.ConfirmedAt,
		order.PreparedBy, order.PreparedAt,
		order.CanceledBy, order.CanceledAt, order.CancelReason,
		order.UpdatedAt, order.Version,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("pedido %s versión %d: %w", order.ID, order.Version, repository.ErrWriteConflict)
	}
	order.Version++
	return nil
}
