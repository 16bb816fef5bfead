package inventory

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// ExpeditionDraft datos de una expedición por crear.
type ExpeditionDraft struct {
	WarehouseID string
	ProviderID  string
	Notes       string
	Items       []entity.ExpeditionItem
}

// ExpeditionAllocator crea expediciones reservando (descontando) su stock en la misma tx.
type ExpeditionAllocator struct {
	c *core
}

// CreateWithAllocation persiste la expedición y descuenta cada línea de la bodega origen.
// Si alguna línea falla no queda ni la expedición ni ningún descuento.
func (ea *ExpeditionAllocator) CreateWithAllocation(ctx context.Context, draft ExpeditionDraft, actorID string) (exp *entity.Expedition, err error) {
	ctx, span := startSpan(ctx, "ExpeditionAllocator.CreateWithAllocation",
		attribute.String("warehouse.id", draft.WarehouseID), attribute.Int("items", len(draft.Items)))
	defer func() { endSpan(span, err) }()

	if err := validateExpedition(draft, actorID); err != nil {
		return nil, err
	}

	exp, err = RunAtomic(ctx, ea.c.runner, func(tx repository.Tx) (*entity.Expedition, error) {
		wh, err := tx.Warehouses().GetByID(ctx, draft.WarehouseID)
		if err != nil {
			return nil, err
		}
		if wh == nil {
			return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, draft.WarehouseID)
		}
		e := &entity.Expedition{
			ID:          ea.c.newID(),
			WarehouseID: draft.WarehouseID,
			ProviderID:  draft.ProviderID,
			Status:      entity.ExpeditionStatusAllocated,
			Items:       append([]entity.ExpeditionItem(nil), draft.Items...),
			Notes:       draft.Notes,
			CreatedBy:   actorID,
			CreatedAt:   ea.c.now(),
		}
		if err := tx.Expeditions().Create(ctx, e); err != nil {
			return nil, err
		}
		details := entity.ExpeditionCreatedDetails{ExpeditionID: e.ID, ProviderID: e.ProviderID}
		for _, it := range e.Items {
			change, err := ea.c.store.AdjustBucket(ctx, tx, it.ProductID, e.WarehouseID, -it.RequestedQuantity)
			if err != nil {
				return nil, err
			}
			if _, err := ea.c.ledger.Record(ctx, tx, change, actorID, e.ID, e.ID, details); err != nil {
				return nil, err
			}
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}

	ea.c.runner.metrics.entries.Add(ctx, int64(len(exp.Items)))
	ea.c.log.Info().
		Str("expedition_id", exp.ID).
		Str("warehouse_id", exp.WarehouseID).
		Str("actor_id", actorID).
		Int("lines", len(exp.Items)).
		Msg("expedición creada con stock reservado")
	return exp, nil
}

func validateExpedition(d ExpeditionDraft, actorID string) error {
	if actorID == "" || d.WarehouseID == "" {
		return fmt.Errorf("%w: bodega y actor son obligatorios", domain.ErrInvalidArgument)
	}
	if len(d.Items) == 0 {
		return fmt.Errorf("%w: la expedición no tiene líneas", domain.ErrInvalidArgument)
	}
	for _, it := range d.Items {
		if it.ProductID == "" || it.RequestedQuantity <= 0 {
			return fmt.Errorf("%w: línea inválida (producto %q, cantidad %d)",
				domain.ErrInvalidArgument, it.ProductID, it.RequestedQuantity)
		}
	}
	return nil
}
