//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/stock-engine/internal/application/inventory"
	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
	"github.com/jhoicas/stock-engine/pkg/config"
	"github.com/jhoicas/stock-engine/pkg/logger"
)

func setupStockPostgresContainer(t *testing.T) (*pgxpool.Pool, func()) {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("stock_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, config.DBConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, pool))
	// el esquema es idempotente
	require.NoError(t, Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}
	return pool, cleanup
}

func seedCatalog(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	wh := NewWarehouseRepository(pool)
	for _, id := range []string{"W1", "W2"} {
		require.NoError(t, wh.Create(ctx, &entity.Warehouse{ID: id, Name: id, CreatedAt: now, UpdatedAt: now}))
	}
	require.NoError(t, NewProductRepository(pool).Create(ctx, &entity.Product{
		ID: "P", SKU: "SKU-P", Name: "Producto P",
		Warehouses: []entity.WarehouseBucket{{WarehouseID: "W1", Quantity: 10}, {WarehouseID: "W2", Quantity: 0}},
		CreatedAt:  now, UpdatedAt: now,
	}))
}

func newPendingOrder(t *testing.T, pool *pgxpool.Pool, id string, qty int64) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, NewOrderRepository(pool).Create(context.Background(), &entity.Order{
		ID: id, Status: entity.OrderStatusPending, WarehouseID: "W1", CustomerName: "ACME",
		Items:     []entity.OrderItem{{ProductID: "P", Quantity: qty, UnitPrice: decimal.RequireFromString("12.50")}},
		CreatedAt: now, UpdatedAt: now,
	}))
}

func newEngine(pool *pgxpool.Pool) *inventory.Engine {
	runner := NewTxRunner(pool)
	return inventory.NewEngine(runner, runner.Readers(),
		inventory.AtomicConfig{MaxAttempts: 10, Timeout: 10 * time.Second}, logger.Nop())
}

func TestProductRepo_SaveIsVersionConditioned(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, cleanup := setupStockPostgresContainer(t)
	defer cleanup()
	seedCatalog(t, pool)

	ctx := context.Background()
	repo := NewProductRepository(pool)
	p, err := repo.GetByID(ctx, "P")
	require.NoError(t, err)
	require.Len(t, p.Warehouses, 2)
	assert.Equal(t, int64(10), p.TotalStock)

	stale := p.Clone()
	p.Warehouses[0].Quantity = 7
	require.NoError(t, repo.Save(ctx, p))
	assert.Equal(t, int64(2), p.Version)

	stale.Warehouses[0].Quantity = 1
	err = repo.Save(ctx, stale)
	assert.ErrorIs(t, err, repository.ErrWriteConflict)

	got, _ := repo.GetByID(ctx, "P")
	assert.Equal(t, int64(7), got.TotalStock)
}

func TestEngine_ConfirmCancelTransferAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, cleanup := setupStockPostgresContainer(t)
	defer cleanup()
	seedCatalog(t, pool)
	newPendingOrder(t, pool, "O1", 6)

	ctx := context.Background()
	eng := newEngine(pool)

	order, err := eng.Orders.Confirm(ctx, "O1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusConfirmed, order.Status)

	_, err = eng.Orders.Confirm(ctx, "O1", "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	tr, err := eng.Transfers.Transfer(ctx, inventory.TransferRequest{
		ProductID: "P", FromWarehouseID: "W1", ToWarehouseID: "W2", Quantity: 3,
	}, "user-1")
	require.NoError(t, err)

	res, err := eng.Orders.Cancel(ctx, "O1", "user-1", "cliente desistió")
	require.NoError(t, err)
	require.Len(t, res.Restored, 1)

	p, err := NewProductRepository(pool).GetByID(ctx, "P")
	require.NoError(t, err)
	w1, _ := p.Bucket("W1")
	w2, _ := p.Bucket("W2")
	assert.Equal(t, int64(7), w1)
	assert.Equal(t, int64(3), w2)
	assert.Equal(t, int64(10), p.TotalStock)

	pair, err := eng.History.List(ctx, repository.HistoryFilter{CorrelationID: tr.CorrelationID})
	require.NoError(t, err)
	require.Len(t, pair, 2)
	assert.Equal(t, entity.ReasonTransferOut, pair[0].Reason)
	assert.Equal(t, entity.TransferInDetails{CounterpartWarehouseID: "W1"}, pair[1].Details)

	report, err := eng.History.ReconcileProduct(ctx, "P")
	require.NoError(t, err)
	assert.True(t, report.Consistent, "%+v", report)
}

func TestEngine_ConcurrentConfirmsOnlyOneWins(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, cleanup := setupStockPostgresContainer(t)
	defer cleanup()
	seedCatalog(t, pool)
	newPendingOrder(t, pool, "A", 6)
	newPendingOrder(t, pool, "B", 6)

	ctx := context.Background()
	eng := newEngine(pool)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{"A", "B"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = eng.Orders.Confirm(ctx, id, "user-"+id)
		}(i, id)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, domain.ErrInsufficientStock):
			insufficient++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)

	p, _ := NewProductRepository(pool).GetByID(ctx, "P")
	w1, _ := p.Bucket("W1")
	assert.Equal(t, int64(4), w1)
}

func TestStockHistory_IsAppendOnly(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool, cleanup := setupStockPostgresContainer(t)
	defer cleanup()
	seedCatalog(t, pool)

	ctx := context.Background()
	entry := &entity.StockHistoryEntry{
		ProductID: "P", WarehouseID: "W1", Type: entity.MovementIncrease, Reason: entity.ReasonRestock,
		Quantity: 1, PreviousStock: 10, NewStock: 11, ActorID: "user-1",
		Details:   entity.CorrectionDetails{Cause: entity.ReasonRestock, BatchID: "b1"},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, NewStockHistoryRepository(pool).Append(ctx, entry))
	assert.Positive(t, entry.Seq)

	_, err := pool.Exec(ctx, `UPDATE stock_history SET quantity = 2 WHERE id = $1`, entry.ID)
	assert.Error(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM stock_history WHERE id = $1`, entry.ID)
	assert.Error(t, err)

	list, err := NewStockHistoryRepository(pool).List(ctx, repository.HistoryFilter{ProductID: "P"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entry.Details, list[0].Details)
}
