package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

var _ repository.StockHistoryRepository = (*StockHistoryRepo)(nil)

// StockHistoryRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
// Solo INSERT y SELECT; un trigger rechaza UPDATE/DELETE sobre stock_history.
type StockHistoryRepo struct {
	q Querier
}

// NewStockHistoryRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockHistoryRepository(q Querier) *StockHistoryRepo {
	return &StockHistoryRepo{q: q}
}

const historyColumns = `id, seq, product_id, warehouse_id, type, reason, quantity,
	previous_stock, new_stock, actor_id, reference_id, correlation_id, details, created_at`

// Append persiste la entrada y asigna entry.Seq desde la secuencia de la tabla.
func (r *StockHistoryRepo) Append(ctx context.Context, entry *entity.StockHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	details, err := entity.MarshalDetails(entry.Details)
	if err != nil {
		return fmt.Errorf("encode history details: %w", err)
	}
	query := `
		INSERT INTO stock_history (id, product_id, warehouse_id, type, reason, quantity,
			previous_stock, new_stock, actor_id, reference_id, correlation_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING seq`
	err = r.q.QueryRow(ctx, query,
		entry.ID, entry.ProductID, entry.WarehouseID, entry.Type, entry.Reason, entry.Quantity,
		entry.PreviousStock, entry.NewStock, entry.ActorID, entry.ReferenceID, entry.CorrelationID,
		details, entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		return fmt.Errorf("append stock history: %w", err)
	}
	return nil
}

// List devuelve entradas filtradas en orden ascendente de seq.
func (r *StockHistoryRepo) List(ctx context.Context, f repository.HistoryFilter) ([]*entity.StockHistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM stock_history WHERE true`
	var args []any
	pos := 1
	add := func(cond string, v any) {
		query += fmt.Sprintf(" AND "+cond, pos)
		args = append(args, v)
		pos++
	}
	if f.ProductID != "" {
		add("product_id = $%d", f.ProductID)
	}
	if f.WarehouseID != "" {
		add("warehouse_id = $%d", f.WarehouseID)
	}
	if f.CorrelationID != "" {
		add("correlation_id = $%d", f.CorrelationID)
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at <= $%d", *f.To)
	}
	query += " ORDER BY seq"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", pos)
		args = append(args, f.Limit)
		pos++
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", pos)
		args = append(args, f.Offset)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock history: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockHistoryEntry
	for rows.Next() {
		var (
			e   entity.StockHistoryEntry
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.Seq, &e.ProductID, &e.WarehouseID, &e.Type, &e.Reason, &e.Quantity,
			&e.PreviousStock, &e.NewStock, &e.ActorID, &e.ReferenceID, &e.CorrelationID, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock history: %w", err)
		}
		if e.Details, err = entity.UnmarshalDetails(e.Reason, raw); err != nil {
			return nil, err
		}
		list = append(list, &e)
	}
	return list, rows.Err()
}
