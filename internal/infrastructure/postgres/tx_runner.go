package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-engine/internal/application/inventory"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL REPEATABLE READ.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Fallos de serialización y deadlocks se devuelven como repository.ErrWriteConflict.
func (r *TxRunner) Run(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", mapTxError(err))
	}
	// el rollback debe ejecutarse aunque el ctx del caller ya haya expirado
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(newPgTx(tx)); err != nil {
		return mapTxError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", mapTxError(err))
	}
	return nil
}

// Readers repositorios sobre el pool para consultas fuera de tx.
func (r *TxRunner) Readers() inventory.Readers {
	return inventory.Readers{History: NewStockHistoryRepository(r.pool)}
}

// pgTx agrupa los repositorios atados a una misma pgx.Tx.
type pgTx struct {
	products    *ProductRepo
	warehouses  *WarehouseRepo
	orders      *OrderRepo
	expeditions *ExpeditionRepo
	history     *StockHistoryRepo
}

func newPgTx(tx pgx.Tx) *pgTx {
	return &pgTx{
		products:    NewProductRepository(tx),
		warehouses:  NewWarehouseRepository(tx),
		orders:      NewOrderRepository(tx),
		expeditions: NewExpeditionRepository(tx),
		history:     NewStockHistoryRepository(tx),
	}
}

func (t *pgTx) Products() repository.ProductRepository       { return t.products }
func (t *pgTx) Warehouses() repository.WarehouseRepository   { return t.warehouses }
func (t *pgTx) Orders() repository.OrderRepository           { return t.orders }
func (t *pgTx) Expeditions() repository.ExpeditionRepository { return t.expeditions }
func (t *pgTx) History() repository.StockHistoryRepository   { return t.history }
