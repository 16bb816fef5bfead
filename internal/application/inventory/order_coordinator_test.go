package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-engine/internal/application/inventory"
	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

func TestConfirm_DecrementsBucketAndRecordsEntry(t *testing.T) {
	f := newFixture(t, nil)
	f.warehouses("W1", "W2")
	f.product("P", "W1", 10, "W2", 0)
	f.order("O1", "W1", entity.OrderStatusPending, line("P", 6))

	order, err := f.eng.Orders.Confirm(context.Background(), "O1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusConfirmed, order.Status)
	assert.Equal(t, "user-1", order.ConfirmedBy)
	require.NotNil(t, order.ConfirmedAt)
	assert.Equal(t, int64(4), f.bucket("P", "W1"))
	assert.Equal(t, int64(0), f.bucket("P", "W2"))
	assert.Equal(t, int64(4), f.total("P"))

	entries := f.history(repository.HistoryFilter{ProductID: "P"})
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, entity.MovementDecrease, e.Type)
	assert.Equal(t, entity.ReasonOrderConfirmed, e.Reason)
	assert.Equal(t, int64(6), e.Quantity)
	assert.Equal(t, int64(10), e.PreviousStock)
	assert.Equal(t, int64(4), e.NewStock)
	assert.Equal(t, "O1", e.ReferenceID)
	assert.Equal(t, "user-1", e.ActorID)
	assert.Equal(t, fixedNow, e.CreatedAt)
	assert.Positive(t, e.Seq)
}

func TestConfirm_TwiceIsInvalidState(t *testing.T) {
	f := newFixture(t, nil)
	f.warehouses("W1")
	f.product("P", "W1", 10)
	f.order("O1", "W1", entity.OrderStatusPending, line("P", 2))

	_, err := f.eng.Orders.Confirm(context.Background(), "O1", "user-1")
	require.NoError(t, err)
	_, err = f.eng.Orders.Confirm(context.Background(), "O1", "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	assert.Equal(t, int64(8), f.bucket("P", "W1"))
	assert.Len(t, f.history(repository.HistoryFilter{}), 1)
}

func TestConfirm_InsufficientStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t, nil)
	f.warehouses("W1")
	f.product("P", "W1", 4)
	f.product("Q", "W1", 10)
	// la primera línea sí alcanza: su descuento también debe revertirse
	f.order("O1", "W1", entity.OrderStatusPending, line("Q", 3), line("P", 5))

	_, err := f.eng.Orders.Confirm(context.Background(), "O1", "user-1")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var se *domain.StockError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "P", se.ProductID)
	assert.Equal(t, int64(5), se.Requested)
	assert.Equal(t, int64(4), se.Available)

	assert.Equal(t, int64(4), f.bucket("P", "W1"))
	assert.Equal(t, int64(10), f.bucket("Q", "W1"))
	assert.Empty(t, f.history(repository.HistoryFilter{}))
	assert.Equal(t, entity.OrderStatusPending, f.orderStatus("O1"))
}

func TestConfirm_StrictOnMissingBucketOrProduct(t *testing.T) {
	f := newFixture(t, nil)
	f.warehouses("W1", "W2")
	f.product("P", "W2", 10)
	f.order("O1", "W1", entity.OrderStatusPending, line("P", 1))
	f.order("O2", "W1", entity.OrderStatusPending, line("ghost", 1))

	_, err := f.eng.Orders.Confirm(context.Background(), "O1", "user-1")
	assert.ErrorIs(t, err, domain.ErrProductNotInWarehouse)
	_, err = f.eng.Orders.Confirm(context.Background(), "O2", "user-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.eng.Orders.Confirm(context.Background(), "missing", "user-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.eng.Orders.Confirm(context.Background(), "O1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Empty(t, f.history(repository.HistoryFilter{}))
}

func TestCancel_RestoresConfirmedOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.warehouses("W1")
	f.product("P", "W1", 10)
	f.order("O1", "W1", entity.OrderStatusPending, line("P", 6))
	ctx := context.Background()

	_, err := f.eng.Orders.Confirm(ctx, "O1", "user-1")
	require.NoError(t, err)
	res, err := f.eng.Orders.Cancel(ctx, "O1", "user-2", "cliente desistió")
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusCanceled, res.Order.Status)
	assert.Equal(t, "user-2", res.Order.CanceledBy)
	assert.Equal(t, "cliente desistió", res.Order.CancelReason)
	assert.Empty(t, res.Skipped)
	require.Len(t, res.Restored, 1)
	assert.Equal(t, int64(10), f.bucket("P", "W1"))

	entries := f.history(repository.HistoryFilter{ProductID: "P"})
	require.Len(t, entries, 2)
	in := entries[1]
	assert.Equal(t, entity.ReasonOrderCanceled, in.Reason)
	assert.Equal(t, entity.MovementIncrease, in.Type)
	assert.Equal(t, int64(4), in.PreviousStock)
	assert.Equal(t, int64(10), in.NewStock)
	assert.Equal(t, entity.OrderCanceledDetails{
		OrderID: "O1", CancelReason: "cliente desistió", PreviousStatus: entity.OrderStatusConfirmed,
	}, in.Details)
}

func TestCancel_PendingOrderRestoresNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.warehouses("W1")
	f.product("P", "W1", 10)
	f.order("O1", "W1", entity.OrderStatusPending, line("P", 6))

	res, err := f.eng.Orders.Cancel(context.Background(), "O1", "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusCanceled, res.Order.Status)
	assert.Empty(t, res.Restored)
	assert.Equal(t, int64(10), f.bucket("P", "W1"))
	assert.Empty(t, f.history(repository.HistoryFilter{}))
}

func TestCancel_TerminalStatesRejected(t *testing.T) {
	f := newFixture(t, nil)
	f.warehouses("W1")
	f.product("P", "W1", 10)
	f.order("D", "W1", entity.OrderStatusDelivered, line("P", 1))
	f.order("C", "W1", entity.OrderStatusCanceled, line("P", 1))

	for _, id := range []string{"D", "C"} {
		_, err := f.eng.Orders.Cancel(context.Background(), id, "user-1", "")
		assert.ErrorIs(t, err, domain.ErrInvalidState, id)
	}
	assert.Equal(t, int64(10), f.bucket("P", "W1"))
}

func TestCancel_SkipsLinesThatCannotBeRestored(t *testing.T) {
	f := newFixture(t, nil)
	f.warehouses("W1", "W2")
	f.product("P", "W1", 10)
	f.product("R", "W2", 5) // sin bucket en W1
	// pedido ya confirmado por el sistema previo: sus líneas apuntan a datos que cambiaron
	f.order("O1", "W1", entity.OrderStatusConfirmed, line("P", 2), line("gone", 3), line("R", 1))

	res, err := f.eng.Orders.Cancel(context.Background(), "O1", "user-1", "")
	require.NoError(t, err)

	assert.Equal(t, entity.OrderStatusCanceled, res.Order.Status)
	require.Len(t, res.Restored, 1)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "gone", res.Skipped[0].ProductID)
	assert.ErrorIs(t, res.Skipped[0].Cause, domain.ErrNotFound)
	assert.Equal(t, "R", res.Skipped[1].ProductID)
	assert.ErrorIs(t, res.Skipped[1].Cause, domain.ErrProductNotInWarehouse)

	assert.Equal(t, int64(12), f.bucket("P", "W1"))
	_, hasW1 := mustProduct(t, f, "R").Bucket("W1")
	assert.False(t, hasW1, "cancelar no debe crear buckets")
}

func TestStartPreparing_ThenCancelRestores(t *testing.T) {
	f := newFixture(t, nil)
	f.warehouses("W1")
	f.product("P", "W1", 10)
	f.order("O1", "W1", entity.OrderStatusPending, line("P", 4))
	ctx := context.Background()

	_, err := f.eng.Orders.StartPreparing(ctx, "O1", "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.eng.Orders.Confirm(ctx, "O1", "user-1")
	require.NoError(t, err)
	o, err := f.eng.Orders.StartPreparing(ctx, "O1", "user-3")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPreparing, o.Status)
	assert.Equal(t, "user-3", o.PreparedBy)
	assert.Equal(t, int64(6), f.bucket("P", "W1"))

	res, err := f.eng.Orders.Cancel(ctx, "O1", "user-1", "")
	require.NoError(t, err)
	require.Len(t, res.Restored, 1)
	assert.Equal(t, entity.OrderCanceledDetails{OrderID: "O1", PreviousStatus: entity.OrderStatusPreparing}, res.Restored[0].Details)
	assert.Equal(t, int64(10), f.bucket("P", "W1"))
}

func TestConfirm_ConcurrentOrdersExactlyOneWins(t *testing.T) {
	f := newFixture(t, nil)
	f.warehouses("W1")
	f.product("P", "W1", 10)
	f.order("A", "W1", entity.OrderStatusPending, line("P", 6))
	f.order("B", "W1", entity.OrderStatusPending, line("P", 6))

	var wg sync.WaitGroup
	errs := make(map[string]error)
	var mu sync.Mutex
	for _, id := range []string{"A", "B"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.eng.Orders.Confirm(context.Background(), id, "user-"+id)
			mu.Lock()
			errs[id] = err
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	var ok, insufficient int
	for id, err := range errs {
		switch {
		case err == nil:
			ok++
			assert.Equal(t, entity.OrderStatusConfirmed, f.orderStatus(id))
		case errors.Is(err, domain.ErrInsufficientStock):
			insufficient++
			assert.Equal(t, entity.OrderStatusPending, f.orderStatus(id))
		default:
			t.Fatalf("error inesperado para %s: %v", id, err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, int64(4), f.bucket("P", "W1"))
	assert.Len(t, f.history(repository.HistoryFilter{}), 1)
}

func TestConfirm_AtomicWhenLedgerFails(t *testing.T) {
	f := newFixture(t, func(inner inventory.TxRunner) inventory.TxRunner {
		return failingHistoryRunner{inner: inner, failAt: 2}
	})
	f.warehouses("W1")
	f.product("P", "W1", 10)
	f.product("Q", "W1", 10)
	f.order("O1", "W1", entity.OrderStatusPending, line("P", 1), line("Q", 1))

	_, err := f.eng.Orders.Confirm(context.Background(), "O1", "user-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, errInjected)

	assert.Equal(t, int64(10), f.bucket("P", "W1"))
	assert.Equal(t, int64(10), f.bucket("Q", "W1"))
	assert.Equal(t, entity.OrderStatusPending, f.orderStatus("O1"))
	assert.Empty(t, f.history(repository.HistoryFilter{}))
}

func mustProduct(t *testing.T, f *fixture, id string) *entity.Product {
	t.Helper()
	p, err := f.store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}
