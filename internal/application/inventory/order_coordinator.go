package inventory

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// OrderStockCoordinator descuenta stock al confirmar pedidos y lo restaura al cancelarlos.
//
// Confirmar es estricto: cualquier línea que falle aborta el pedido completo.
// Cancelar es tolerante: una línea cuyo producto o bucket ya no existe se registra en el log
// y se omite, para que una inconsistencia posterior nunca bloquee una cancelación.
type OrderStockCoordinator struct {
	c *core
}

// CancelResult resultado de una cancelación.
type CancelResult struct {
	Order    *entity.Order
	Restored []*entity.StockHistoryEntry
	Skipped  []SkippedLine
}

// SkippedLine línea no restaurada durante una cancelación.
type SkippedLine struct {
	ProductID   string
	WarehouseID string
	Quantity    int64
	Cause       error
}

// Confirm pasa un pedido pending a confirmed descontando cada línea de la bodega del pedido.
func (oc *OrderStockCoordinator) Confirm(ctx context.Context, orderID, actorID string) (order *entity.Order, err error) {
	ctx, span := startSpan(ctx, "OrderStockCoordinator.Confirm", attribute.String("order.id", orderID))
	defer func() { endSpan(span, err) }()

	if orderID == "" || actorID == "" {
		return nil, fmt.Errorf("%w: pedido y actor son obligatorios", domain.ErrInvalidArgument)
	}

	var entries int
	order, err = RunAtomic(ctx, oc.c.runner, func(tx repository.Tx) (*entity.Order, error) {
		o, err := loadOrder(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if !o.CanConfirm() {
			return nil, fmt.Errorf("%w: pedido %s está %s", domain.ErrInvalidState, o.ID, o.Status)
		}
		if len(o.Items) == 0 {
			return nil, fmt.Errorf("%w: pedido %s sin líneas", domain.ErrInvalidArgument, o.ID)
		}
		correlationID := oc.c.newID()
		entries = 0
		for _, it := range o.Items {
			if it.Quantity <= 0 {
				return nil, fmt.Errorf("%w: cantidad %d para producto %s", domain.ErrInvalidArgument, it.Quantity, it.ProductID)
			}
			change, err := oc.c.store.AdjustBucket(ctx, tx, it.ProductID, o.WarehouseID, -it.Quantity)
			if err != nil {
				return nil, err
			}
			details := entity.OrderConfirmedDetails{
				OrderID:      o.ID,
				CustomerName: o.CustomerName,
				LineValue:    it.LineValue(),
			}
			if _, err := oc.c.ledger.Record(ctx, tx, change, actorID, o.ID, correlationID, details); err != nil {
				return nil, err
			}
			entries++
		}
		o.MarkConfirmed(actorID, oc.c.now())
		if err := tx.Orders().Save(ctx, o); err != nil {
			return nil, err
		}
		return o, nil
	})
	if err != nil {
		return nil, err
	}

	oc.c.runner.metrics.entries.Add(ctx, int64(entries))
	oc.c.log.Info().
		Str("order_id", order.ID).
		Str("actor_id", actorID).
		Int("lines", len(order.Items)).
		Msg("pedido confirmado, stock descontado")
	return order, nil
}

// StartPreparing pasa un pedido confirmed a preparing. No modifica stock.
func (oc *OrderStockCoordinator) StartPreparing(ctx context.Context, orderID, actorID string) (order *entity.Order, err error) {
	ctx, span := startSpan(ctx, "OrderStockCoordinator.StartPreparing", attribute.String("order.id", orderID))
	defer func() { endSpan(span, err) }()

	if orderID == "" || actorID == "" {
		return nil, fmt.Errorf("%w: pedido y actor son obligatorios", domain.ErrInvalidArgument)
	}
	return RunAtomic(ctx, oc.c.runner, func(tx repository.Tx) (*entity.Order, error) {
		o, err := loadOrder(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if !o.CanStartPreparing() {
			return nil, fmt.Errorf("%w: pedido %s está %s", domain.ErrInvalidState, o.ID, o.Status)
		}
		o.MarkPreparing(actorID, oc.c.now())
		if err := tx.Orders().Save(ctx, o); err != nil {
			return nil, err
		}
		return o, nil
	})
}

// Cancel cancela el pedido. Solo restaura stock si estaba confirmed o preparing.
func (oc *OrderStockCoordinator) Cancel(ctx context.Context, orderID, actorID, reason string) (res *CancelResult, err error) {
	ctx, span := startSpan(ctx, "OrderStockCoordinator.Cancel", attribute.String("order.id", orderID))
	defer func() { endSpan(span, err) }()

	if orderID == "" || actorID == "" {
		return nil, fmt.Errorf("%w: pedido y actor son obligatorios", domain.ErrInvalidArgument)
	}

	res, err = RunAtomic(ctx, oc.c.runner, func(tx repository.Tx) (*CancelResult, error) {
		o, err := loadOrder(ctx, tx, orderID)
		if err != nil {
			return nil, err
		}
		if !o.CanCancel() {
			return nil, fmt.Errorf("%w: pedido %s está %s", domain.ErrInvalidState, o.ID, o.Status)
		}
		out := &CancelResult{}
		previous := o.Status
		if o.HoldsStock() {
			correlationID := oc.c.newID()
			for _, it := range o.Items {
				entry, skip, err := oc.restoreLine(ctx, tx, o, it, previous, actorID, reason, correlationID)
				if err != nil {
					return nil, err
				}
				if skip != nil {
					out.Skipped = append(out.Skipped, *skip)
					continue
				}
				out.Restored = append(out.Restored, entry)
			}
		}
		o.MarkCanceled(actorID, reason, oc.c.now())
		if err := tx.Orders().Save(ctx, o); err != nil {
			return nil, err
		}
		out.Order = o
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	// Se registra tras el commit para no duplicar avisos entre reintentos.
	for _, s := range res.Skipped {
		oc.c.log.Warn().
			Str("order_id", res.Order.ID).
			Str("product_id", s.ProductID).
			Str("warehouse_id", s.WarehouseID).
			Int64("quantity", s.Quantity).
			Err(s.Cause).
			Msg("línea no restaurada al cancelar pedido")
	}
	oc.c.runner.metrics.entries.Add(ctx, int64(len(res.Restored)))
	oc.c.log.Info().
		Str("order_id", res.Order.ID).
		Str("actor_id", actorID).
		Int("restored", len(res.Restored)).
		Int("skipped", len(res.Skipped)).
		Msg("pedido cancelado")
	return res, nil
}

func (oc *OrderStockCoordinator) restoreLine(
	ctx context.Context,
	tx repository.Tx,
	o *entity.Order,
	it entity.OrderItem,
	previous entity.OrderStatus,
	actorID, reason, correlationID string,
) (*entity.StockHistoryEntry, *SkippedLine, error) {
	skip := func(cause error) (*entity.StockHistoryEntry, *SkippedLine, error) {
		return nil, &SkippedLine{ProductID: it.ProductID, WarehouseID: o.WarehouseID, Quantity: it.Quantity, Cause: cause}, nil
	}
	if it.Quantity <= 0 {
		return skip(domain.ErrInvalidArgument)
	}
	// El bucket tiene que existir: una entrada positiva lo crearía y ocultaría la inconsistencia.
	if _, err := oc.c.store.GetBucket(ctx, tx, it.ProductID, o.WarehouseID); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrProductNotInWarehouse) {
			return skip(err)
		}
		return nil, nil, err
	}
	change, err := oc.c.store.AdjustBucket(ctx, tx, it.ProductID, o.WarehouseID, it.Quantity)
	if err != nil {
		return nil, nil, err
	}
	details := entity.OrderCanceledDetails{OrderID: o.ID, CancelReason: reason, PreviousStatus: previous}
	entry, err := oc.c.ledger.Record(ctx, tx, change, actorID, o.ID, correlationID, details)
	if err != nil {
		return nil, nil, err
	}
	return entry, nil, nil
}

func loadOrder(ctx context.Context, tx repository.Tx, orderID string) (*entity.Order, error) {
	o, err := tx.Orders().GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: pedido %s", domain.ErrNotFound, orderID)
	}
	return o, nil
}
