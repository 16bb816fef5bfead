package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
	"github.com/jhoicas/stock-engine/pkg/logger"
)

// AtomicConfig límites de la unidad atómica.
type AtomicConfig struct {
	MaxAttempts int           // intentos totales ante conflicto (mínimo 1)
	Timeout     time.Duration // deadline propio de la unidad; 0 = solo el del caller
}

// AtomicRunner es el único punto donde se abren transacciones del motor.
// Reintenta la unidad completa ante conflictos de escritura con backoff acotado y
// traduce errores de infraestructura a domain.ErrStorage.
type AtomicRunner struct {
	runner  TxRunner
	cfg     AtomicConfig
	log     *logger.Logger
	metrics engineMetrics
}

// NewAtomicRunner construye el runner sobre el adaptador transaccional.
func NewAtomicRunner(runner TxRunner, cfg AtomicConfig, log *logger.Logger) *AtomicRunner {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AtomicRunner{runner: runner, cfg: cfg, log: log, metrics: newEngineMetrics()}
}

// Run ejecuta fn con todo-o-nada. Devuelve nil, un error de negocio de domain,
// domain.ErrConcurrentModification si se agotaron los reintentos o domain.ErrStorage.
func (r *AtomicRunner) Run(ctx context.Context, fn func(tx repository.Tx) error) error {
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	attempt := 0
	op := func() error {
		attempt++
		r.metrics.attempts.Add(ctx, 1)
		err := r.runner.Run(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrWriteConflict) {
			r.metrics.conflicts.Add(ctx, 1)
			r.log.Debug().Int("attempt", attempt).Err(err).Msg("conflicto de escritura, se reintenta la unidad")
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newRetryBackOff(), uint64(r.cfg.MaxAttempts-1)),
		ctx,
	)
	err := backoff.Retry(op, policy)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrWriteConflict) {
		r.log.Warn().Int("attempts", attempt).Msg("reintentos agotados por modificación concurrente")
		return fmt.Errorf("%w (%d intentos)", domain.ErrConcurrentModification, attempt)
	}
	return classify(err)
}

// RunAtomic variante de Run que devuelve el valor producido por la unidad confirmada.
func RunAtomic[T any](ctx context.Context, r *AtomicRunner, fn func(tx repository.Tx) (T, error)) (T, error) {
	var out T
	err := r.Run(ctx, func(tx repository.Tx) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func newRetryBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	return b
}

// classify deja pasar errores de negocio y envuelve el resto en domain.ErrStorage.
func classify(err error) error {
	if err == nil || domain.IsBusiness(err) || errors.Is(err, domain.ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}
