package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus estado de un pedido.
type OrderStatus string

// Estados de pedido relevantes para el motor de stock.
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// OrderItem línea de pedido.
type OrderItem struct {
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// LineValue devuelve Quantity * UnitPrice.
func (i OrderItem) LineValue() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// Order pedido despachado desde una única bodega.
// El estado solo lo cambia el coordinador de stock; nunca se asigna libremente.
type Order struct {
	ID           string
	Status       OrderStatus
	WarehouseID  string
	CustomerName string
	Items        []OrderItem
	ConfirmedBy  string
	ConfirmedAt  *time.Time
	PreparedBy   string
	PreparedAt   *time.Time
	CanceledBy   string
	CanceledAt   *time.Time
	CancelReason string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Total suma el valor de todas las líneas.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineValue())
	}
	return total
}

// CanConfirm solo un pedido pendiente puede confirmarse.
func (o *Order) CanConfirm() bool { return o.Status == OrderStatusPending }

// CanStartPreparing confirmed -> preparing.
func (o *Order) CanStartPreparing() bool { return o.Status == OrderStatusConfirmed }

// CanCancel cualquier estado no terminal.
func (o *Order) CanCancel() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing:
		return true
	}
	return false
}

// HoldsStock indica si el pedido ya descontó stock (confirmed o preparing).
// Cancelar un pedido pendiente no restaura nada porque nunca tocó el stock.
func (o *Order) HoldsStock() bool {
	return o.Status == OrderStatusConfirmed || o.Status == OrderStatusPreparing
}

// MarkConfirmed sella actor y fecha de confirmación.
func (o *Order) MarkConfirmed(actorID string, at time.Time) {
	o.Status = OrderStatusConfirmed
	o.ConfirmedBy = actorID
	o.ConfirmedAt = &at
	o.UpdatedAt = at
}

// MarkPreparing sella actor y fecha de preparación.
func (o *Order) MarkPreparing(actorID string, at time.Time) {
	o.Status = OrderStatusPreparing
	o.PreparedBy = actorID
	o.PreparedAt = &at
	o.UpdatedAt = at
}

// MarkCanceled sella actor, fecha y motivo de cancelación.
func (o *Order) MarkCanceled(actorID, reason string, at time.Time) {
	o.Status = OrderStatusCanceled
	o.CanceledBy = actorID
	o.CanceledAt = &at
	o.CancelReason = reason
	o.UpdatedAt = at
}

// Clone copia profunda del pedido.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	return &c
}
