package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-engine/internal/application/inventory"
	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
	"github.com/jhoicas/stock-engine/internal/infrastructure/memory"
)

func TestAtomicRunner_RetriesConflictsTransparently(t *testing.T) {
	var runner conflictRunner
	f := newFixture(t, func(inner inventory.TxRunner) inventory.TxRunner {
		runner = newConflictRunner(inner, 2)
		return runner
	})
	f.warehouses("W1")
	f.product("P", "W1", 10)
	f.order("O1", "W1", entity.OrderStatusPending, line("P", 6))
	runner.calls.Store(0)

	_, err := f.eng.Orders.Confirm(context.Background(), "O1", "user-1")
	require.NoError(t, err)

	assert.Equal(t, int64(3), runner.calls.Load())
	assert.Equal(t, int64(4), f.bucket("P", "W1"))
	assert.Len(t, f.history(repository.HistoryFilter{}), 1, "los intentos descartados no dejan entradas")
}

func TestAtomicRunner_ExhaustionIsConcurrentModification(t *testing.T) {
	store := memory.NewStore()
	runner := newConflictRunner(store, 1000)
	atomicRunner := inventory.NewAtomicRunner(runner, inventory.AtomicConfig{MaxAttempts: 3}, nil)

	err := atomicRunner.Run(context.Background(), func(repository.Tx) error { return nil })
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.NotErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, int64(3), runner.calls.Load())
}

func TestAtomicRunner_BusinessErrorsAreNotRetried(t *testing.T) {
	store := memory.NewStore()
	runner := newConflictRunner(store, 0)
	atomicRunner := inventory.NewAtomicRunner(runner, inventory.AtomicConfig{MaxAttempts: 3}, nil)

	err := atomicRunner.Run(context.Background(), func(repository.Tx) error {
		return domain.ErrInvalidState
	})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, int64(1), runner.calls.Load())
}

func TestAtomicRunner_TimeoutRollsBack(t *testing.T) {
	atomicRunner := inventory.NewAtomicRunner(blockingRunner{},
		inventory.AtomicConfig{MaxAttempts: 3, Timeout: 20 * time.Millisecond}, nil)

	start := time.Now()
	err := atomicRunner.Run(context.Background(), func(repository.Tx) error { return nil })
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAtomicRunner_CallerCancellation(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	atomicRunner := inventory.NewAtomicRunner(store, inventory.AtomicConfig{}, nil)
	called := false
	err := atomicRunner.Run(ctx, func(repository.Tx) error { called = true; return nil })
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, called)
}

func TestRunAtomic_ReturnsValueOnlyOnCommit(t *testing.T) {
	store := memory.NewStore()
	atomicRunner := inventory.NewAtomicRunner(store, inventory.AtomicConfig{}, nil)

	v, err := inventory.RunAtomic(context.Background(), atomicRunner, func(repository.Tx) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = inventory.RunAtomic(context.Background(), atomicRunner, func(repository.Tx) (int, error) {
		return 7, domain.ErrInvalidArgument
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Zero(t, v)
}
