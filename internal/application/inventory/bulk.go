package inventory

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// Adjustment corrección independiente de un bucket. Reason vacío equivale a bulk-correction.
type Adjustment struct {
	ProductID   string
	WarehouseID string
	Delta       int64
	Reason      entity.Reason
	Notes       string
}

// BatchResult entradas generadas por un lote; todas comparten BatchID como correlación.
type BatchResult struct {
	BatchID string
	Entries []*entity.StockHistoryEntry
}

// BulkStockAdjuster aplica lotes de correcciones con la misma semántica estricta que Confirm:
// un solo ajuste inválido aborta el lote completo.
type BulkStockAdjuster struct {
	c *core
}

// ApplyBatch aplica todos los ajustes en una única unidad atómica.
func (ba *BulkStockAdjuster) ApplyBatch(ctx context.Context, adjustments []Adjustment, actorID string) (res *BatchResult, err error) {
	ctx, span := startSpan(ctx, "BulkStockAdjuster.ApplyBatch", attribute.Int("adjustments", len(adjustments)))
	defer func() { endSpan(span, err) }()

	if actorID == "" || len(adjustments) == 0 {
		return nil, fmt.Errorf("%w: lote vacío o sin actor", domain.ErrInvalidArgument)
	}
	normalized := make([]Adjustment, len(adjustments))
	for i, a := range adjustments {
		if a.Reason == "" {
			a.Reason = entity.ReasonBulkCorrection
		}
		if a.ProductID == "" || a.WarehouseID == "" || a.Delta == 0 || !a.Reason.IsCorrection() {
			return nil, fmt.Errorf("%w: ajuste %d inválido (producto %q, bodega %q, delta %d, causa %q)",
				domain.ErrInvalidArgument, i, a.ProductID, a.WarehouseID, a.Delta, a.Reason)
		}
		normalized[i] = a
	}

	res, err = RunAtomic(ctx, ba.c.runner, func(tx repository.Tx) (*BatchResult, error) {
		out := &BatchResult{BatchID: ba.c.newID()}
		for _, a := range normalized {
			if a.Delta > 0 {
				wh, err := tx.Warehouses().GetByID(ctx, a.WarehouseID)
				if err != nil {
					return nil, err
				}
				if wh == nil {
					return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, a.WarehouseID)
				}
			}
			change, err := ba.c.store.AdjustBucket(ctx, tx, a.ProductID, a.WarehouseID, a.Delta)
			if err != nil {
				return nil, err
			}
			details := entity.CorrectionDetails{Cause: a.Reason, BatchID: out.BatchID, Notes: a.Notes}
			entry, err := ba.c.ledger.Record(ctx, tx, change, actorID, "", out.BatchID, details)
			if err != nil {
				return nil, err
			}
			out.Entries = append(out.Entries, entry)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	ba.c.runner.metrics.entries.Add(ctx, int64(len(res.Entries)))
	ba.c.log.Info().
		Str("batch_id", res.BatchID).
		Str("actor_id", actorID).
		Int("entries", len(res.Entries)).
		Msg("lote de ajustes aplicado")
	return res, nil
}
