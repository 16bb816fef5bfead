package dto

import (
	"time"

	"github.com/jhoicas/stock-engine/internal/application/inventory"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// CancelOrderRequest body para POST /api/orders/:id/cancel.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderResponse estado del pedido tras una transición.
type OrderResponse struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	WarehouseID  string     `json:"warehouse_id"`
	ConfirmedBy  string     `json:"confirmed_by,omitempty"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	PreparedBy   string     `json:"prepared_by,omitempty"`
	PreparedAt   *time.Time `json:"prepared_at,omitempty"`
	CanceledBy   string     `json:"canceled_by,omitempty"`
	CanceledAt   *time.Time `json:"canceled_at,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`
}

// SkippedLineResponse línea no restaurada al cancelar.
type SkippedLineResponse struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int64  `json:"quantity"`
	Cause       string `json:"cause"`
}

// CancelOrderResponse pedido cancelado más las entradas de reingreso.
type CancelOrderResponse struct {
	Order    OrderResponse          `json:"order"`
	Restored []HistoryEntryResponse `json:"restored"`
	Skipped  []SkippedLineResponse  `json:"skipped"`
}

// ExpeditionItemRequest línea de expedición.
type ExpeditionItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// CreateExpeditionRequest body para POST /api/expeditions.
type CreateExpeditionRequest struct {
	WarehouseID string                  `json:"warehouse_id"`
	ProviderID  string                  `json:"provider_id,omitempty"`
	Notes       string                  `json:"notes,omitempty"`
	Items       []ExpeditionItemRequest `json:"items"`
}

// ExpeditionResponse expedición creada con stock reservado.
type ExpeditionResponse struct {
	ID          string                  `json:"id"`
	WarehouseID string                  `json:"warehouse_id"`
	ProviderID  string                  `json:"provider_id,omitempty"`
	Status      string                  `json:"status"`
	Notes       string                  `json:"notes,omitempty"`
	Items       []ExpeditionItemRequest `json:"items"`
	CreatedBy   string                  `json:"created_by"`
	CreatedAt   time.Time               `json:"created_at"`
}

// TransferRequest body para POST /api/inventory/transfers.
type TransferRequest struct {
	ProductID       string `json:"product_id"`
	FromWarehouseID string `json:"from_warehouse_id"`
	ToWarehouseID   string `json:"to_warehouse_id"`
	Quantity        int64  `json:"quantity"`
	Notes           string `json:"notes,omitempty"`
}

// TransferResponse par de entradas correlacionadas.
type TransferResponse struct {
	CorrelationID string               `json:"correlation_id"`
	Out           HistoryEntryResponse `json:"out"`
	In            HistoryEntryResponse `json:"in"`
}

// AdjustmentRequest un ajuste del lote. Reason vacío = bulk-correction.
type AdjustmentRequest struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Delta       int64  `json:"delta"`
	Reason      string `json:"reason,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// AdjustmentBatchRequest body para POST /api/inventory/adjustments.
type AdjustmentBatchRequest struct {
	Adjustments []AdjustmentRequest `json:"adjustments"`
}

// AdjustmentBatchResponse entradas del lote aplicado.
type AdjustmentBatchResponse struct {
	BatchID string                 `json:"batch_id"`
	Entries []HistoryEntryResponse `json:"entries"`
}

// HistoryEntryResponse entrada del historial de stock.
type HistoryEntryResponse struct {
	ID            string    `json:"id"`
	Seq           int64     `json:"seq"`
	ProductID     string    `json:"product_id"`
	WarehouseID   string    `json:"warehouse_id"`
	Type          string    `json:"type"`
	Reason        string    `json:"reason"`
	Quantity      int64     `json:"quantity"`
	PreviousStock int64     `json:"previous_stock"`
	NewStock      int64     `json:"new_stock"`
	ActorID       string    `json:"actor_id"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Details       any       `json:"details,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// HistoryListResponse página del historial.
type HistoryListResponse struct {
	Items []HistoryEntryResponse `json:"items"`
	Page  PageResponse           `json:"page"`
}

// BucketReconciliationResponse conciliación de un bucket.
type BucketReconciliationResponse struct {
	WarehouseID string `json:"warehouse_id"`
	Current     int64  `json:"current"`
	Replayed    int64  `json:"replayed"`
	Entries     int    `json:"entries"`
	Consistent  bool   `json:"consistent"`
	Issue       string `json:"issue,omitempty"`
}

// ReconciliationResponse conciliación de un producto.
type ReconciliationResponse struct {
	ProductID  string                         `json:"product_id"`
	TotalStock int64                          `json:"total_stock"`
	BucketSum  int64                          `json:"bucket_sum"`
	Consistent bool                           `json:"consistent"`
	Buckets    []BucketReconciliationResponse `json:"buckets"`
}

// FromOrder mapea el pedido a su respuesta.
func FromOrder(o *entity.Order) OrderResponse {
	return OrderResponse{
		ID:           o.ID,
		Status:       string(o.Status),
		WarehouseID:  o.WarehouseID,
		ConfirmedBy:  o.ConfirmedBy,
		ConfirmedAt:  o.ConfirmedAt,
		PreparedBy:   o.PreparedBy,
		PreparedAt:   o.PreparedAt,
		CanceledBy:   o.CanceledBy,
		CanceledAt:   o.CanceledAt,
		CancelReason: o.CancelReason,
	}
}

// FromEntry mapea una entrada del historial.
func FromEntry(e *entity.StockHistoryEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:            e.ID,
		Seq:           e.Seq,
		ProductID:     e.ProductID,
		WarehouseID:   e.WarehouseID,
		Type:          string(e.Type),
		Reason:        string(e.Reason),
		Quantity:      e.Quantity,
		PreviousStock: e.PreviousStock,
		NewStock:      e.NewStock,
		ActorID:       e.ActorID,
		ReferenceID:   e.ReferenceID,
		CorrelationID: e.CorrelationID,
		Details:       e.Details,
		CreatedAt:     e.CreatedAt,
	}
}

// FromEntries mapea una lista de entradas (nunca nil, para serializar []).
func FromEntries(list []*entity.StockHistoryEntry) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, FromEntry(e))
	}
	return out
}

// FromCancelResult mapea el resultado de una cancelación.
func FromCancelResult(r *inventory.CancelResult) CancelOrderResponse {
	out := CancelOrderResponse{
		Order:    FromOrder(r.Order),
		Restored: FromEntries(r.Restored),
		Skipped:  make([]SkippedLineResponse, 0, len(r.Skipped)),
	}
	for _, s := range r.Skipped {
		cause := ""
		if s.Cause != nil {
			cause = s.Cause.Error()
		}
		out.Skipped = append(out.Skipped, SkippedLineResponse{
			ProductID: s.ProductID, WarehouseID: s.WarehouseID, Quantity: s.Quantity, Cause: cause,
		})
	}
	return out
}

// FromExpedition mapea la expedición creada.
func FromExpedition(e *entity.Expedition) ExpeditionResponse {
	items := make([]ExpeditionItemRequest, 0, len(e.Items))
	for _, it := range e.Items {
		items = append(items, ExpeditionItemRequest{ProductID: it.ProductID, Quantity: it.RequestedQuantity})
	}
	return ExpeditionResponse{
		ID: e.ID, WarehouseID: e.WarehouseID, ProviderID: e.ProviderID, Status: e.Status,
		Notes: e.Notes, Items: items, CreatedBy: e.CreatedBy, CreatedAt: e.CreatedAt,
	}
}

// FromReconciliation mapea el reporte de conciliación.
func FromReconciliation(r *inventory.ReconciliationReport) ReconciliationResponse {
	out := ReconciliationResponse{
		ProductID: r.ProductID, TotalStock: r.TotalStock, BucketSum: r.BucketSum, Consistent: r.Consistent,
		Buckets: make([]BucketReconciliationResponse, 0, len(r.Buckets)),
	}
	for _, b := range r.Buckets {
		out.Buckets = append(out.Buckets, BucketReconciliationResponse{
			WarehouseID: b.WarehouseID, Current: b.Current, Replayed: b.Replayed,
			Entries: b.Entries, Consistent: b.Consistent, Issue: b.Issue,
		})
	}
	return out
}
