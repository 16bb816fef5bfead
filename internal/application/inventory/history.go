package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-engine/internal/domain/inventory"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// HistoryService consultas de solo lectura sobre el historial y conciliación contra el stock actual.
// Las lecturas que combinan producto e historial corren en una unidad del runner: una misma
// instantánea en PostgreSQL, validación de versiones (y reintento) en memoria.
type HistoryService struct {
	runner  *AtomicRunner
	history repository.StockHistoryRepository
}

// NewHistoryService construye el servicio; r sirve los listados de una sola consulta.
func NewHistoryService(runner *AtomicRunner, r Readers) *HistoryService {
	return &HistoryService{runner: runner, history: r.History}
}

// List devuelve entradas filtradas por producto, bodega, correlación y rango de fechas.
func (s *HistoryService) List(ctx context.Context, f repository.HistoryFilter) ([]*entity.StockHistoryEntry, error) {
	if f.Limit < 0 || f.Offset < 0 {
		return nil, fmt.Errorf("%w: paginación negativa", domain.ErrInvalidArgument)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, fmt.Errorf("%w: rango de fechas invertido", domain.ErrInvalidArgument)
	}
	list, err := s.history.List(ctx, f)
	if err != nil {
		return nil, classify(err)
	}
	return list, nil
}

// ProductStock devuelve el producto con sus buckets tal como están confirmados.
func (s *HistoryService) ProductStock(ctx context.Context, productID string) (*entity.Product, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: producto requerido", domain.ErrInvalidArgument)
	}
	p, err := RunAtomic(ctx, s.runner, func(tx repository.Tx) (*entity.Product, error) {
		return getProduct(ctx, tx, productID)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(p.Warehouses, func(i, j int) bool { return p.Warehouses[i].WarehouseID < p.Warehouses[j].WarehouseID })
	return p, nil
}

func getProduct(ctx context.Context, tx repository.Tx, productID string) (*entity.Product, error) {
	p, err := tx.Products().GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrNotFound, productID)
	}
	return p, nil
}

// BucketReconciliation resultado de reproducir el historial de un bucket.
type BucketReconciliation struct {
	WarehouseID string
	Current     int64 // cantidad actual del bucket
	Replayed    int64 // cantidad que resulta de reproducir el historial
	Entries     int
	Consistent  bool
	Issue       string
}

// ReconciliationReport conciliación de un producto completo.
type ReconciliationReport struct {
	ProductID  string
	TotalStock int64
	BucketSum  int64
	Buckets    []BucketReconciliation
	Consistent bool
}

// ReconcileProduct reproduce el historial de cada bucket en orden de Seq y lo compara
// con el estado actual. No modifica nada.
func (s *HistoryService) ReconcileProduct(ctx context.Context, productID string) (*ReconciliationReport, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: producto obligatorio", domain.ErrInvalidArgument)
	}
	var (
		p       *entity.Product
		entries []*entity.StockHistoryEntry
	)
	err := s.runner.Run(ctx, func(tx repository.Tx) error {
		var err error
		if p, err = getProduct(ctx, tx, productID); err != nil {
			return err
		}
		entries, err = tx.History().List(ctx, repository.HistoryFilter{ProductID: productID})
		return err
	})
	if err != nil {
		return nil, err
	}
	// una suma fuera de rango solo puede venir de escrituras fuera del motor
	bucketSum, sumErr := domaininv.Total(p.Warehouses)

	byWarehouse := make(map[string][]*entity.StockHistoryEntry)
	for _, e := range entries {
		byWarehouse[e.WarehouseID] = append(byWarehouse[e.WarehouseID], e)
	}

	report := &ReconciliationReport{
		ProductID:  p.ID,
		TotalStock: p.TotalStock,
		BucketSum:  bucketSum,
		Consistent: true,
	}
	if sumErr != nil || report.TotalStock != report.BucketSum {
		report.Consistent = false
	}

	seen := make(map[string]bool, len(p.Warehouses))
	for _, b := range p.Warehouses {
		seen[b.WarehouseID] = true
		r := ReplayBucket(b.Quantity, byWarehouse[b.WarehouseID])
		r.WarehouseID = b.WarehouseID
		report.Buckets = append(report.Buckets, r)
		report.Consistent = report.Consistent && r.Consistent
	}
	for wh, list := range byWarehouse {
		if seen[wh] {
			continue
		}
		report.Buckets = append(report.Buckets, BucketReconciliation{
			WarehouseID: wh,
			Entries:     len(list),
			Replayed:    list[len(list)-1].NewStock,
			Issue:       "historial sin bucket actual",
		})
		report.Consistent = false
	}
	sort.Slice(report.Buckets, func(i, j int) bool {
		return report.Buckets[i].WarehouseID < report.Buckets[j].WarehouseID
	})
	return report, nil
}

// ReplayBucket encadena las entradas (ya ordenadas por Seq): cada PreviousStock debe ser el
// NewStock anterior, cada entrada debe cuadrar y el último NewStock debe igualar current.
// Un bucket sin entradas es consistente (cantidad inicial cargada por el catálogo).
func ReplayBucket(current int64, entries []*entity.StockHistoryEntry) BucketReconciliation {
	r := BucketReconciliation{Current: current, Replayed: current, Entries: len(entries), Consistent: true}
	if len(entries) == 0 {
		return r
	}
	running := entries[0].PreviousStock
	for _, e := range entries {
		if !e.Consistent() {
			r.Consistent = false
			r.Issue = fmt.Sprintf("entrada %s con aritmética inválida", e.ID)
			break
		}
		if e.PreviousStock != running {
			r.Consistent = false
			r.Issue = fmt.Sprintf("entrada %s rompe la cadena (esperado %d, registrado %d)", e.ID, running, e.PreviousStock)
			break
		}
		running = e.NewStock
	}
	r.Replayed = running
	if r.Consistent && running != current {
		r.Consistent = false
		r.Issue = fmt.Sprintf("historial termina en %d, bucket actual %d", running, current)
	}
	return r
}
