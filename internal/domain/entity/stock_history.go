package entity

import "time"

// MovementType dirección del movimiento sobre el bucket.
type MovementType string

// Tipos de movimiento.
const (
	MovementIncrease MovementType = "increase"
	MovementDecrease MovementType = "decrease"
)

// Reason causa de negocio de un movimiento de stock.
type Reason string

// Causas de movimiento registradas en el historial.
const (
	ReasonOrderConfirmed    Reason = "order-confirmed"
	ReasonOrderCanceled     Reason = "order-canceled"
	ReasonExpeditionCreated Reason = "expedition-created"
	ReasonTransferIn        Reason = "transfer-in"
	ReasonTransferOut       Reason = "transfer-out"
	ReasonBulkCorrection    Reason = "bulk-correction"
	ReasonRestock           Reason = "restock"
	ReasonDamaged           Reason = "damaged"
	ReasonStockCount        Reason = "stock-count"
)

// IsCorrection indica si la causa es válida para un ajuste masivo.
func (r Reason) IsCorrection() bool {
	switch r {
	case ReasonBulkCorrection, ReasonRestock, ReasonDamaged, ReasonStockCount:
		return true
	}
	return false
}

// Valid indica si la causa pertenece al conjunto cerrado.
func (r Reason) Valid() bool {
	switch r {
	case ReasonOrderConfirmed, ReasonOrderCanceled, ReasonExpeditionCreated,
		ReasonTransferIn, ReasonTransferOut:
		return true
	}
	return r.IsCorrection()
}

// StockHistoryEntry registro inmutable del libro de movimientos.
// PreviousStock/NewStock son del bucket (producto+bodega), no del total del producto.
// Quantity siempre es positiva; la dirección la da Type.
type StockHistoryEntry struct {
	ID            string
	Seq           int64 // asignado por el almacenamiento, monótono
	ProductID     string
	WarehouseID   string
	Type          MovementType
	Reason        Reason
	Quantity      int64
	PreviousStock int64
	NewStock      int64
	ActorID       string
	ReferenceID   string // pedido o expedición
	CorrelationID string // agrupa entradas de un mismo traslado o lote
	Details       HistoryDetails
	CreatedAt     time.Time
}

// Consistent verifica la aritmética de la entrada.
func (e *StockHistoryEntry) Consistent() bool {
	if e.Quantity <= 0 || e.PreviousStock < 0 || e.NewStock < 0 {
		return false
	}
	switch e.Type {
	case MovementIncrease:
		return e.PreviousStock+e.Quantity == e.NewStock
	case MovementDecrease:
		return e.PreviousStock-e.Quantity == e.NewStock
	}
	return false
}

// Delta cambio firmado que aplica la entrada sobre el bucket.
func (e *StockHistoryEntry) Delta() int64 {
	if e.Type == MovementDecrease {
		return -e.Quantity
	}
	return e.Quantity
}
