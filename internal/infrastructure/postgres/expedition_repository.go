package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

var _ repository.ExpeditionRepository = (*ExpeditionRepo)(nil)

// ExpeditionRepo implementación de ExpeditionRepository sobre PostgreSQL.
type ExpeditionRepo struct {
	q Querier
}

// NewExpeditionRepository construye el adaptador de expediciones. Pasar pool o tx (Querier).
func NewExpeditionRepository(q Querier) *ExpeditionRepo {
	return &ExpeditionRepo{q: q}
}

// Create persiste la expedición y sus líneas.
func (r *ExpeditionRepo) Create(ctx context.Context, e *entity.Expedition) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO expeditions (id, warehouse_id, provider_id, status, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.WarehouseID, e.ProviderID, e.Status, e.Notes, e.CreatedBy, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert expedition: %w", err)
	}
	for i, it := range e.Items {
		_, err := r.q.Exec(ctx, `
			INSERT INTO expedition_items (expedition_id, line_no, product_id, requested_quantity)
			VALUES ($1, $2, $3, $4)`,
			e.ID, i+1, it.ProductID, it.RequestedQuantity,
		)
		if err != nil {
			return fmt.Errorf("insert expedition item: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la expedición con sus líneas.
func (r *ExpeditionRepo) GetByID(ctx context.Context, id string) (*entity.Expedition, error) {
	var e entity.Expedition
	err := r.q.QueryRow(ctx, `
		SELECT id, warehouse_id, provider_id, status, notes, created_by, created_at
		FROM expeditions WHERE id = $1`, id).Scan(
		&e.ID, &e.WarehouseID, &e.ProviderID, &e.Status, &e.Notes, &e.CreatedBy, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get expedition: %w", err)
	}
	rows, err := r.q.Query(ctx, `
		SELECT product_id, requested_quantity
		FROM expedition_items WHERE expedition_id = $1 ORDER BY line_no`, id)
	if err != nil {
		return nil, fmt.Errorf("get expedition items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.ExpeditionItem
		if err := rows.Scan(&it.ProductID, &it.RequestedQuantity); err != nil {
			return nil, fmt.Errorf("scan expedition item: %w", err)
		}
		e.Items = append(e.Items, it)
	}
	return &e, rows.Err()
}
