package repository

import "errors"

// ErrWriteConflict lo devuelven los adaptadores cuando la transacción perdió una carrera
// (versión obsoleta o fallo de serialización). El runner atómico reintenta la unidad completa.
var ErrWriteConflict = errors.New("conflicto de escritura concurrente")

// Tx contexto transaccional opaco: repositorios atados a una misma transacción.
// Solo se obtiene dentro de TxRunner.Run.
type Tx interface {
	Products() ProductRepository
	Warehouses() WarehouseRepository
	Orders() OrderRepository
	Expeditions() ExpeditionRepository
	History() StockHistoryRepository
}
