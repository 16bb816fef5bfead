package entity

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// HistoryDetails unión cerrada con la información propia de cada causa.
// Solo los tipos de este paquete la implementan.
type HistoryDetails interface {
	Reason() Reason
	historyDetails()
}

// OrderConfirmedDetails salida por confirmación de pedido.
type OrderConfirmedDetails struct {
	OrderID      string          `json:"order_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	LineValue    decimal.Decimal `json:"line_value"`
}

// OrderCanceledDetails reingreso por cancelación de pedido.
type OrderCanceledDetails struct {
	OrderID        string      `json:"order_id"`
	CancelReason   string      `json:"cancel_reason,omitempty"`
	PreviousStatus OrderStatus `json:"previous_status"`
}

// ExpeditionCreatedDetails reserva por creación de expedición.
type ExpeditionCreatedDetails struct {
	ExpeditionID string `json:"expedition_id"`
	ProviderID   string `json:"provider_id,omitempty"`
}

// TransferOutDetails salida de la bodega origen de un traslado.
type TransferOutDetails struct {
	CounterpartWarehouseID string `json:"counterpart_warehouse_id"`
	Notes                  string `json:"notes,omitempty"`
}

// TransferInDetails entrada en la bodega destino de un traslado.
type TransferInDetails struct {
	CounterpartWarehouseID string `json:"counterpart_warehouse_id"`
	Notes                  string `json:"notes,omitempty"`
}

// CorrectionDetails ajuste manual (lote). Cause debe ser una causa de corrección.
type CorrectionDetails struct {
	Cause   Reason `json:"cause"`
	BatchID string `json:"batch_id"`
	Notes   string `json:"notes,omitempty"`
}

func (OrderConfirmedDetails) Reason() Reason    { return ReasonOrderConfirmed }
func (OrderCanceledDetails) Reason() Reason     { return ReasonOrderCanceled }
func (ExpeditionCreatedDetails) Reason() Reason { return ReasonExpeditionCreated }
func (TransferOutDetails) Reason() Reason       { return ReasonTransferOut }
func (TransferInDetails) Reason() Reason        { return ReasonTransferIn }
func (d CorrectionDetails) Reason() Reason      { return d.Cause }

func (OrderConfirmedDetails) historyDetails()    {}
func (OrderCanceledDetails) historyDetails()     {}
func (ExpeditionCreatedDetails) historyDetails() {}
func (TransferOutDetails) historyDetails()       {}
func (TransferInDetails) historyDetails()        {}
func (CorrectionDetails) historyDetails()        {}

// MarshalDetails serializa los detalles para la columna JSONB.
func MarshalDetails(d HistoryDetails) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// UnmarshalDetails reconstruye la variante a partir de la causa almacenada.
func UnmarshalDetails(reason Reason, raw []byte) (HistoryDetails, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var (
		d   HistoryDetails
		err error
	)
	switch reason {
	case ReasonOrderConfirmed:
		var v OrderConfirmedDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case ReasonOrderCanceled:
		var v OrderCanceledDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case ReasonExpeditionCreated:
		var v ExpeditionCreatedDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case ReasonTransferOut:
		var v TransferOutDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case ReasonTransferIn:
		var v TransferInDetails
		err = json.Unmarshal(raw, &v)
		d = v
	case ReasonBulkCorrection, ReasonRestock, ReasonDamaged, ReasonStockCount:
		var v CorrectionDetails
		err = json.Unmarshal(raw, &v)
		if v.Cause == "" {
			v.Cause = reason
		}
		d = v
	default:
		return nil, fmt.Errorf("causa de movimiento desconocida: %q", reason)
	}
	if err != nil {
		return nil, fmt.Errorf("decode details %s: %w", reason, err)
	}
	return d, nil
}
