package inventory_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-engine/internal/application/inventory"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
	"github.com/jhoicas/stock-engine/internal/infrastructure/memory"
	"github.com/jhoicas/stock-engine/pkg/logger"
)

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t     *testing.T
	store *memory.Store
	eng   *inventory.Engine
}

// newFixture motor sobre el store en memoria; runner permite envolver el store (fallos, conflictos).
func newFixture(t *testing.T, wrap func(inventory.TxRunner) inventory.TxRunner) *fixture {
	t.Helper()
	store := memory.NewStore()
	var runner inventory.TxRunner = store
	if wrap != nil {
		runner = wrap(store)
	}
	var ids atomic.Int64
	eng := inventory.NewEngine(runner, store.Readers(),
		inventory.AtomicConfig{MaxAttempts: 5, Timeout: 2 * time.Second},
		logger.Nop(),
		inventory.WithClock(func() time.Time { return fixedNow }),
		inventory.WithIDGenerator(func() string { return fmt.Sprintf("id-%d", ids.Add(1)) }),
	)
	return &fixture{t: t, store: store, eng: eng}
}

func (f *fixture) warehouses(ids ...string) {
	f.t.Helper()
	for _, id := range ids {
		require.NoError(f.t, f.store.Warehouses().Create(context.Background(), &entity.Warehouse{ID: id, Name: id}))
	}
}

// product crea el producto con buckets en pares bodega/cantidad: "W1", 10, "W2", 0.
func (f *fixture) product(id string, buckets ...any) {
	f.t.Helper()
	p := &entity.Product{ID: id, SKU: "SKU-" + id, Name: id}
	for i := 0; i+1 < len(buckets); i += 2 {
		p.Warehouses = append(p.Warehouses, entity.WarehouseBucket{
			WarehouseID: buckets[i].(string),
			Quantity:    int64(buckets[i+1].(int)),
		})
	}
	require.NoError(f.t, f.store.Products().Create(context.Background(), p))
}

func (f *fixture) order(id, warehouseID string, status entity.OrderStatus, items ...entity.OrderItem) {
	f.t.Helper()
	require.NoError(f.t, f.store.Orders().Create(context.Background(), &entity.Order{
		ID: id, Status: status, WarehouseID: warehouseID, CustomerName: "ACME", Items: items,
	}))
}

func line(productID string, qty int64) entity.OrderItem {
	return entity.OrderItem{ProductID: productID, Quantity: qty, UnitPrice: decimal.NewFromInt(5)}
}

func (f *fixture) bucket(productID, warehouseID string) int64 {
	f.t.Helper()
	p, err := f.store.Products().GetByID(context.Background(), productID)
	require.NoError(f.t, err)
	require.NotNil(f.t, p)
	q, _ := p.Bucket(warehouseID)
	return q
}

func (f *fixture) total(productID string) int64 {
	f.t.Helper()
	p, err := f.store.Products().GetByID(context.Background(), productID)
	require.NoError(f.t, err)
	return p.TotalStock
}

func (f *fixture) history(filter repository.HistoryFilter) []*entity.StockHistoryEntry {
	f.t.Helper()
	list, err := f.eng.History.List(context.Background(), filter)
	require.NoError(f.t, err)
	return list
}

func (f *fixture) orderStatus(id string) entity.OrderStatus {
	f.t.Helper()
	o, err := f.store.Orders().GetByID(context.Background(), id)
	require.NoError(f.t, err)
	return o.Status
}

// ---- runners de prueba ----

var errInjected = errors.New("fallo inyectado en el almacenamiento")

// failingHistoryRunner hace fallar el Append número failAt (1-based) de cada intento.
type failingHistoryRunner struct {
	inner  inventory.TxRunner
	failAt int
}

func (r failingHistoryRunner) Run(ctx context.Context, fn func(tx repository.Tx) error) error {
	return r.inner.Run(ctx, func(tx repository.Tx) error {
		return fn(&failingTx{Tx: tx, failAt: r.failAt})
	})
}

type failingTx struct {
	repository.Tx
	failAt  int
	appends int
}

func (t *failingTx) History() repository.StockHistoryRepository {
	return failingHistory{StockHistoryRepository: t.Tx.History(), tx: t}
}

type failingHistory struct {
	repository.StockHistoryRepository
	tx *failingTx
}

func (h failingHistory) Append(ctx context.Context, e *entity.StockHistoryEntry) error {
	h.tx.appends++
	if h.tx.appends == h.tx.failAt {
		return errInjected
	}
	return h.StockHistoryRepository.Append(ctx, e)
}

// conflictRunner simula que los primeros `conflicts` intentos pierden la carrera al confirmar.
type conflictRunner struct {
	inner     inventory.TxRunner
	conflicts int64
	calls     *atomic.Int64
}

func newConflictRunner(inner inventory.TxRunner, conflicts int64) conflictRunner {
	return conflictRunner{inner: inner, conflicts: conflicts, calls: new(atomic.Int64)}
}

func (r conflictRunner) Run(ctx context.Context, fn func(tx repository.Tx) error) error {
	n := r.calls.Add(1)
	if n <= r.conflicts {
		// el trabajo se ejecuta pero nunca se confirma
		_ = r.inner.Run(ctx, func(tx repository.Tx) error {
			if err := fn(tx); err != nil {
				return err
			}
			return errors.New("descartado")
		})
		return fmt.Errorf("simulado: %w", repository.ErrWriteConflict)
	}
	return r.inner.Run(ctx, fn)
}

// blockingRunner espera a que expire el contexto antes de ejecutar.
type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, _ func(tx repository.Tx) error) error {
	<-ctx.Done()
	return ctx.Err()
}

// interleavingRunner ejecuta hook una sola vez, justo después de la primera lectura de un producto.
type interleavingRunner struct {
	inner inventory.TxRunner
	hook  func()
}

func (r *interleavingRunner) Run(ctx context.Context, fn func(tx repository.Tx) error) error {
	return r.inner.Run(ctx, func(tx repository.Tx) error {
		return fn(interleavingTx{Tx: tx, r: r})
	})
}

type interleavingTx struct {
	repository.Tx
	r *interleavingRunner
}

func (t interleavingTx) Products() repository.ProductRepository {
	return interleavingProducts{ProductRepository: t.Tx.Products(), r: t.r}
}

type interleavingProducts struct {
	repository.ProductRepository
	r *interleavingRunner
}

func (p interleavingProducts) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	prod, err := p.ProductRepository.GetByID(ctx, id)
	if hook := p.r.hook; hook != nil {
		p.r.hook = nil
		hook()
	}
	return prod, err
}
