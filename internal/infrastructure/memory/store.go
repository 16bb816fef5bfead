// Package memory implementa el almacenamiento del motor en memoria con aislamiento por
// instantánea y validación optimista de versiones al confirmar. Se usa en tests y en
// ejecuciones locales (STOCK_STORE=memory); su mutex modela la base de datos, no el motor.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jhoicas/stock-engine/internal/application/inventory"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-engine/internal/domain/inventory"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store estado confirmado.
type Store struct {
	mu          sync.Mutex
	warehouses  map[string]*entity.Warehouse
	products    map[string]*entity.Product
	orders      map[string]*entity.Order
	expeditions map[string]*entity.Expedition
	history     []*entity.StockHistoryEntry
	seq         int64
}

// NewStore construye un store vacío.
func NewStore() *Store {
	return &Store{
		warehouses:  make(map[string]*entity.Warehouse),
		products:    make(map[string]*entity.Product),
		orders:      make(map[string]*entity.Order),
		expeditions: make(map[string]*entity.Expedition),
	}
}

// Run ejecuta fn sobre copias de trabajo. Si fn falla o el contexto expiró, las copias se
// descartan (rollback). Al confirmar, cualquier registro leído cuya versión cambió hace
// fallar la tx con repository.ErrWriteConflict.
func (s *Store) Run(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := newTx(s)
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

// Readers repositorios sobre el estado confirmado para consultas fuera de tx.
func (s *Store) Readers() inventory.Readers {
	return inventory.Readers{History: s.History()}
}

// Products repositorio autocommit de productos.
func (s *Store) Products() repository.ProductRepository { return committedProducts{s: s} }

// Warehouses repositorio autocommit de bodegas.
func (s *Store) Warehouses() repository.WarehouseRepository { return committedWarehouses{s: s} }

// Orders repositorio autocommit de pedidos.
func (s *Store) Orders() repository.OrderRepository { return committedOrders{s: s} }

// Expeditions repositorio autocommit de expediciones.
func (s *Store) Expeditions() repository.ExpeditionRepository { return committedExpeditions{s: s} }

// History repositorio autocommit del historial.
func (s *Store) History() repository.StockHistoryRepository { return committedHistory{s: s} }

func (s *Store) commit(t *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, v := range t.productReads {
		cur, ok := s.products[id]
		if !ok || cur.Version != v {
			return fmt.Errorf("producto %s: %w", id, repository.ErrWriteConflict)
		}
	}
	for id := range t.productCreates {
		if _, ok := s.products[id]; ok {
			return fmt.Errorf("producto %s creado concurrentemente: %w", id, repository.ErrWriteConflict)
		}
	}
	for id, v := range t.orderReads {
		cur, ok := s.orders[id]
		if !ok || cur.Version != v {
			return fmt.Errorf("pedido %s: %w", id, repository.ErrWriteConflict)
		}
	}
	for id := range t.orderCreates {
		if _, ok := s.orders[id]; ok {
			return fmt.Errorf("pedido %s creado concurrentemente: %w", id, repository.ErrWriteConflict)
		}
	}
	for _, e := range t.expeditions {
		if _, ok := s.expeditions[e.ID]; ok {
			return fmt.Errorf("expedición %s duplicada", e.ID)
		}
	}

	for id := range t.productWrites {
		s.products[id] = t.products[id].Clone()
	}
	for id := range t.orderWrites {
		s.orders[id] = t.orders[id].Clone()
	}
	for _, w := range t.warehouses {
		c := *w
		s.warehouses[w.ID] = &c
	}
	for _, e := range t.expeditions {
		s.expeditions[e.ID] = e.Clone()
	}
	for _, e := range t.history {
		s.seq++
		e.Seq = s.seq
		c := *e
		s.history = append(s.history, &c)
	}
	return nil
}

// memTx copias de trabajo de una transacción.
type memTx struct {
	s *Store

	products       map[string]*entity.Product
	productReads   map[string]int64
	productWrites  map[string]bool
	productCreates map[string]bool

	orders       map[string]*entity.Order
	orderReads   map[string]int64
	orderWrites  map[string]bool
	orderCreates map[string]bool

	warehouses  []*entity.Warehouse
	expeditions []*entity.Expedition
	history     []*entity.StockHistoryEntry
}

func newTx(s *Store) *memTx {
	return &memTx{
		s:              s,
		products:       make(map[string]*entity.Product),
		productReads:   make(map[string]int64),
		productWrites:  make(map[string]bool),
		productCreates: make(map[string]bool),
		orders:         make(map[string]*entity.Order),
		orderReads:     make(map[string]int64),
		orderWrites:    make(map[string]bool),
		orderCreates:   make(map[string]bool),
	}
}

func (t *memTx) Products() repository.ProductRepository       { return txProducts{t: t} }
func (t *memTx) Warehouses() repository.WarehouseRepository   { return txWarehouses{t: t} }
func (t *memTx) Orders() repository.OrderRepository           { return txOrders{t: t} }
func (t *memTx) Expeditions() repository.ExpeditionRepository { return txExpeditions{t: t} }
func (t *memTx) History() repository.StockHistoryRepository   { return txHistory{t: t} }

// product devuelve la copia de trabajo, tomándola del estado confirmado en la primera lectura.
func (t *memTx) product(id string) *entity.Product {
	if p, ok := t.products[id]; ok {
		return p
	}
	t.s.mu.Lock()
	cur, ok := t.s.products[id]
	var c *entity.Product
	if ok {
		c = cur.Clone()
	}
	t.s.mu.Unlock()
	if c == nil {
		return nil
	}
	t.products[id] = c
	t.productReads[id] = c.Version
	return c
}

func (t *memTx) order(id string) *entity.Order {
	if o, ok := t.orders[id]; ok {
		return o
	}
	t.s.mu.Lock()
	cur, ok := t.s.orders[id]
	var c *entity.Order
	if ok {
		c = cur.Clone()
	}
	t.s.mu.Unlock()
	if c == nil {
		return nil
	}
	t.orders[id] = c
	t.orderReads[id] = c.Version
	return c
}

// matchHistory aplica HistoryFilter sobre una entrada.
func matchHistory(e *entity.StockHistoryEntry, f repository.HistoryFilter) bool {
	if f.ProductID != "" && e.ProductID != f.ProductID {
		return false
	}
	if f.WarehouseID != "" && e.WarehouseID != f.WarehouseID {
		return false
	}
	if f.CorrelationID != "" && e.CorrelationID != f.CorrelationID {
		return false
	}
	if f.From != nil && e.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && e.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func filterHistory(all []*entity.StockHistoryEntry, f repository.HistoryFilter) []*entity.StockHistoryEntry {
	var out []*entity.StockHistoryEntry
	for _, e := range all {
		if matchHistory(e, f) {
			c := *e
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		// las entradas pendientes (Seq 0) van después de las confirmadas
		a, b := out[i].Seq, out[j].Seq
		if a == 0 || b == 0 {
			return a != 0 && b == 0
		}
		return a < b
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func normalizeProduct(p *entity.Product) (*entity.Product, error) {
	c := p.Clone()
	total, err := domaininv.Total(c.Warehouses)
	if err != nil {
		return nil, fmt.Errorf("producto %s: %w", p.ID, err)
	}
	c.TotalStock = total
	if c.Version == 0 {
		c.Version = 1
	}
	return c, nil
}
