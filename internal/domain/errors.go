package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio del motor de stock (sin dependencias externas).
// Todo método de coordinador devuelve uno de estos, nunca un error crudo del driver.
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidState           = errors.New("operación no permitida en el estado actual")
	ErrProductNotInWarehouse  = errors.New("el producto no tiene existencias registradas en la bodega")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrConcurrentModification = errors.New("modificación concurrente, reintentos agotados")
	ErrInvalidArgument        = errors.New("argumento inválido")
	ErrStorage                = errors.New("error de almacenamiento")
)

// StockError añade contexto de producto/bodega a un error de stock.
// errors.Is(err, ErrInsufficientStock) sigue funcionando gracias a Unwrap.
type StockError struct {
	Err         error
	ProductID   string
	WarehouseID string
	Requested   int64
	Available   int64
}

func (e *StockError) Error() string {
	if errors.Is(e.Err, ErrInsufficientStock) {
		return fmt.Sprintf("%s: producto %s en bodega %s (solicitado %d, disponible %d)",
			e.Err, e.ProductID, e.WarehouseID, e.Requested, e.Available)
	}
	return fmt.Sprintf("%s: producto %s en bodega %s", e.Err, e.ProductID, e.WarehouseID)
}

func (e *StockError) Unwrap() error { return e.Err }

// IsBusiness indica si err pertenece a la taxonomía de errores de negocio.
func IsBusiness(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrInvalidState, ErrProductNotInWarehouse,
		ErrInsufficientStock, ErrConcurrentModification, ErrInvalidArgument,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
