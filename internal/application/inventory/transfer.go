package inventory

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// TransferRequest traslado de un producto entre dos bodegas.
type TransferRequest struct {
	ProductID       string
	FromWarehouseID string
	ToWarehouseID   string
	Quantity        int64
	Notes           string
}

// TransferResult las dos entradas correlacionadas del traslado.
type TransferResult struct {
	CorrelationID string
	Out           *entity.StockHistoryEntry
	In            *entity.StockHistoryEntry
}

// TransferCoordinator mueve cantidad entre buckets del mismo producto en una sola tx.
type TransferCoordinator struct {
	c *core
}

// Transfer resta de la bodega origen y suma en la destino (creando el bucket si hace falta).
// Siempre deja exactamente dos entradas: transfer-out y transfer-in con la misma correlación.
func (tc *TransferCoordinator) Transfer(ctx context.Context, req TransferRequest, actorID string) (res *TransferResult, err error) {
	ctx, span := startSpan(ctx, "TransferCoordinator.Transfer",
		attribute.String("product.id", req.ProductID),
		attribute.String("warehouse.from", req.FromWarehouseID),
		attribute.String("warehouse.to", req.ToWarehouseID),
		attribute.Int64("quantity", req.Quantity))
	defer func() { endSpan(span, err) }()

	switch {
	case req.ProductID == "" || req.FromWarehouseID == "" || req.ToWarehouseID == "" || actorID == "":
		return nil, fmt.Errorf("%w: producto, bodegas y actor son obligatorios", domain.ErrInvalidArgument)
	case req.FromWarehouseID == req.ToWarehouseID:
		return nil, fmt.Errorf("%w: bodega origen y destino son la misma", domain.ErrInvalidArgument)
	case req.Quantity <= 0:
		return nil, fmt.Errorf("%w: cantidad %d", domain.ErrInvalidArgument, req.Quantity)
	}

	res, err = RunAtomic(ctx, tc.c.runner, func(tx repository.Tx) (*TransferResult, error) {
		dest, err := tx.Warehouses().GetByID(ctx, req.ToWarehouseID)
		if err != nil {
			return nil, err
		}
		if dest == nil {
			return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, req.ToWarehouseID)
		}
		outChange, err := tc.c.store.AdjustBucket(ctx, tx, req.ProductID, req.FromWarehouseID, -req.Quantity)
		if err != nil {
			return nil, err
		}
		inChange, err := tc.c.store.AdjustBucket(ctx, tx, req.ProductID, req.ToWarehouseID, req.Quantity)
		if err != nil {
			return nil, err
		}
		correlationID := tc.c.newID()
		out, err := tc.c.ledger.Record(ctx, tx, outChange, actorID, "", correlationID,
			entity.TransferOutDetails{CounterpartWarehouseID: req.ToWarehouseID, Notes: req.Notes})
		if err != nil {
			return nil, err
		}
		in, err := tc.c.ledger.Record(ctx, tx, inChange, actorID, "", correlationID,
			entity.TransferInDetails{CounterpartWarehouseID: req.FromWarehouseID, Notes: req.Notes})
		if err != nil {
			return nil, err
		}
		return &TransferResult{CorrelationID: correlationID, Out: out, In: in}, nil
	})
	if err != nil {
		return nil, err
	}

	tc.c.runner.metrics.entries.Add(ctx, 2)
	tc.c.log.Info().
		Str("product_id", req.ProductID).
		Str("from_warehouse_id", req.FromWarehouseID).
		Str("to_warehouse_id", req.ToWarehouseID).
		Int64("quantity", req.Quantity).
		Str("correlation_id", res.CorrelationID).
		Msg("traslado registrado")
	return res, nil
}
