package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// HistoryFilter filtros de lectura del historial. Campos vacíos no filtran.
type HistoryFilter struct {
	ProductID     string
	WarehouseID   string
	CorrelationID string
	From          *time.Time
	To            *time.Time
	Limit         int // 0 = sin límite
	Offset        int
}

// StockHistoryRepository puerto del libro de movimientos. Solo agrega y consulta:
// no existe operación de actualización ni borrado.
type StockHistoryRepository interface {
	// Append persiste la entrada y asigna entry.Seq.
	Append(ctx context.Context, entry *entity.StockHistoryEntry) error
	// List devuelve entradas en orden ascendente de Seq.
	List(ctx context.Context, filter HistoryFilter) ([]*entity.StockHistoryEntry, error)
}
