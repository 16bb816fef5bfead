package entity

import "time"

// Estados de expedición.
const (
	ExpeditionStatusAllocated = "allocated"
)

// ExpeditionItem línea solicitada de una expedición.
type ExpeditionItem struct {
	ProductID         string
	RequestedQuantity int64
}

// Expedition envío de reposición que reserva (descuenta) stock al crearse.
type Expedition struct {
	ID          string
	WarehouseID string
	ProviderID  string
	Status      string
	Items       []ExpeditionItem
	Notes       string
	CreatedBy   string
	CreatedAt   time.Time
}

// Clone copia profunda de la expedición.
func (e *Expedition) Clone() *Expedition {
	c := *e
	c.Items = append([]ExpeditionItem(nil), e.Items...)
	return &c
}
