package inventory

import (
	"context"

	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando el contexto
// transaccional con los repositorios atados a esa tx. Commit si fn devuelve nil, Rollback si no.
// Los adaptadores devuelven repository.ErrWriteConflict cuando la tx pierde una carrera.
type TxRunner interface {
	Run(ctx context.Context, fn func(tx repository.Tx) error) error
}

// Readers repositorios de solo lectura fuera de transacción (pool o store confirmado).
type Readers struct {
	History repository.StockHistoryRepository
}
