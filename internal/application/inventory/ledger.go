package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// StockHistoryDraft datos de una entrada antes de persistirla.
// PreviousStock/NewStock los aporta el caller ya validados por el Store.
type StockHistoryDraft struct {
	ProductID     string
	WarehouseID   string
	Type          entity.MovementType
	Quantity      int64
	PreviousStock int64
	NewStock      int64
	ActorID       string
	ReferenceID   string
	CorrelationID string
	Details       entity.HistoryDetails
}

// expectedType dirección obligatoria por causa; las correcciones admiten ambas.
var expectedType = map[entity.Reason]entity.MovementType{
	entity.ReasonOrderConfirmed:    entity.MovementDecrease,
	entity.ReasonOrderCanceled:     entity.MovementIncrease,
	entity.ReasonExpeditionCreated: entity.MovementDecrease,
	entity.ReasonTransferOut:       entity.MovementDecrease,
	entity.ReasonTransferIn:        entity.MovementIncrease,
}

// Ledger libro de movimientos de solo-agregar. No calcula stock ni expone update/delete.
type Ledger struct {
	now   func() time.Time
	newID func() string
}

// NewLedger construye el libro con reloj y generador de IDs.
func NewLedger(now func() time.Time, newID func() string) *Ledger {
	return &Ledger{now: now, newID: newID}
}

// Append valida la coherencia del borrador y lo persiste en la tx.
func (l *Ledger) Append(ctx context.Context, tx repository.Tx, d StockHistoryDraft) (*entity.StockHistoryEntry, error) {
	if d.Details == nil || !d.Details.Reason().Valid() {
		return nil, fmt.Errorf("%w: causa de movimiento requerida", domain.ErrInvalidArgument)
	}
	if d.ActorID == "" || d.ProductID == "" || d.WarehouseID == "" {
		return nil, fmt.Errorf("%w: actor, producto y bodega son obligatorios", domain.ErrInvalidArgument)
	}
	reason := d.Details.Reason()
	if want, ok := expectedType[reason]; ok && want != d.Type {
		return nil, fmt.Errorf("%w: %s no admite movimiento %s", domain.ErrInvalidArgument, reason, d.Type)
	}
	entry := &entity.StockHistoryEntry{
		ID:            l.newID(),
		ProductID:     d.ProductID,
		WarehouseID:   d.WarehouseID,
		Type:          d.Type,
		Reason:        reason,
		Quantity:      d.Quantity,
		PreviousStock: d.PreviousStock,
		NewStock:      d.NewStock,
		ActorID:       d.ActorID,
		ReferenceID:   d.ReferenceID,
		CorrelationID: d.CorrelationID,
		Details:       d.Details,
		CreatedAt:     l.now(),
	}
	if !entry.Consistent() {
		return nil, fmt.Errorf("%w: movimiento inconsistente %s %d (%d -> %d)",
			domain.ErrInvalidArgument, entry.Type, entry.Quantity, entry.PreviousStock, entry.NewStock)
	}
	if err := tx.History().Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Record arma el borrador desde el cambio aplicado por el Store y lo agrega.
func (l *Ledger) Record(
	ctx context.Context,
	tx repository.Tx,
	change BucketChange,
	actorID, referenceID, correlationID string,
	details entity.HistoryDetails,
) (*entity.StockHistoryEntry, error) {
	return l.Append(ctx, tx, StockHistoryDraft{
		ProductID:     change.ProductID,
		WarehouseID:   change.WarehouseID,
		Type:          change.MovementType(),
		Quantity:      change.Quantity(),
		PreviousStock: change.Previous,
		NewStock:      change.New,
		ActorID:       actorID,
		ReferenceID:   referenceID,
		CorrelationID: correlationID,
		Details:       details,
	})
}
