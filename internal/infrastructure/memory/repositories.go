package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

// ---- repositorios atados a la transacción ----

type txProducts struct{ t *memTx }

func (r txProducts) Create(_ context.Context, p *entity.Product) error {
	if r.t.product(p.ID) != nil {
		return fmt.Errorf("producto %s ya existe", p.ID)
	}
	c, err := normalizeProduct(p)
	if err != nil {
		return err
	}
	p.TotalStock, p.Version = c.TotalStock, c.Version
	r.t.products[p.ID] = c
	r.t.productCreates[p.ID] = true
	r.t.productWrites[p.ID] = true
	return nil
}

func (r txProducts) GetByID(_ context.Context, id string) (*entity.Product, error) {
	p := r.t.product(id)
	if p == nil {
		return nil, nil
	}
	return p.Clone(), nil
}

func (r txProducts) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r txProducts) Save(_ context.Context, p *entity.Product) error {
	cur := r.t.product(p.ID)
	if cur == nil || cur.Version != p.Version {
		return fmt.Errorf("producto %s: %w", p.ID, repository.ErrWriteConflict)
	}
	next, err := normalizeProduct(p)
	if err != nil {
		return err
	}
	next.Version = p.Version + 1
	r.t.products[p.ID] = next
	r.t.productWrites[p.ID] = true
	p.TotalStock, p.Version = next.TotalStock, next.Version
	return nil
}

type txWarehouses struct{ t *memTx }

func (r txWarehouses) Create(_ context.Context, w *entity.Warehouse) error {
	c := *w
	r.t.warehouses = append(r.t.warehouses, &c)
	return nil
}

func (r txWarehouses) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	for _, w := range r.t.warehouses {
		if w.ID == id {
			c := *w
			return &c, nil
		}
	}
	r.t.s.mu.Lock()
	defer r.t.s.mu.Unlock()
	w, ok := r.t.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	c := *w
	return &c, nil
}

type txOrders struct{ t *memTx }

func (r txOrders) Create(_ context.Context, o *entity.Order) error {
	if r.t.order(o.ID) != nil {
		return fmt.Errorf("pedido %s ya existe", o.ID)
	}
	c := o.Clone()
	if c.Version == 0 {
		c.Version = 1
	}
	o.Version = c.Version
	r.t.orders[o.ID] = c
	r.t.orderCreates[o.ID] = true
	r.t.orderWrites[o.ID] = true
	return nil
}

func (r txOrders) GetByID(_ context.Context, id string) (*entity.Order, error) {
	o := r.t.order(id)
	if o == nil {
		return nil, nil
	}
	return o.Clone(), nil
}

func (r txOrders) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.GetByID(ctx, id)
}

func (r txOrders) Save(_ context.Context, o *entity.Order) error {
	cur := r.t.order(o.ID)
	if cur == nil || cur.Version != o.Version {
		return fmt.Errorf("pedido %s: %w", o.ID, repository.ErrWriteConflict)
	}
	next := o.Clone()
	next.Version = o.Version + 1
	r.t.orders[o.ID] = next
	r.t.orderWrites[o.ID] = true
	o.Version = next.Version
	return nil
}

type txExpeditions struct{ t *memTx }

func (r txExpeditions) Create(_ context.Context, e *entity.Expedition) error {
	r.t.expeditions = append(r.t.expeditions, e.Clone())
	return nil
}

func (r txExpeditions) GetByID(_ context.Context, id string) (*entity.Expedition, error) {
	for _, e := range r.t.expeditions {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	r.t.s.mu.Lock()
	defer r.t.s.mu.Unlock()
	e, ok := r.t.s.expeditions[id]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

type txHistory struct{ t *memTx }

func (r txHistory) Append(_ context.Context, e *entity.StockHistoryEntry) error {
	r.t.history = append(r.t.history, e)
	return nil
}

func (r txHistory) List(_ context.Context, f repository.HistoryFilter) ([]*entity.StockHistoryEntry, error) {
	r.t.s.mu.Lock()
	all := append([]*entity.StockHistoryEntry(nil), r.t.s.history...)
	r.t.s.mu.Unlock()
	all = append(all, r.t.history...)
	return filterHistory(all, f), nil
}

// ---- repositorios autocommit sobre el estado confirmado ----

type committedProducts struct{ s *Store }

func (r committedProducts) Create(ctx context.Context, p *entity.Product) error {
	return r.s.Run(ctx, func(tx repository.Tx) error { return tx.Products().Create(ctx, p) })
}

func (r committedProducts) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (r committedProducts) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r committedProducts) Save(ctx context.Context, p *entity.Product) error {
	return r.s.Run(ctx, func(tx repository.Tx) error { return tx.Products().Save(ctx, p) })
}

type committedWarehouses struct{ s *Store }

func (r committedWarehouses) Create(ctx context.Context, w *entity.Warehouse) error {
	return r.s.Run(ctx, func(tx repository.Tx) error { return tx.Warehouses().Create(ctx, w) })
}

func (r committedWarehouses) GetByID(_ context.Context, id string) (*entity.Warehouse, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.warehouses[id]
	if !ok {
		return nil, nil
	}
	c := *w
	return &c, nil
}

type committedOrders struct{ s *Store }

func (r committedOrders) Create(ctx context.Context, o *entity.Order) error {
	return r.s.Run(ctx, func(tx repository.Tx) error { return tx.Orders().Create(ctx, o) })
}

func (r committedOrders) GetByID(_ context.Context, id string) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return o.Clone(), nil
}

func (r committedOrders) GetForUpdate(ctx context.Context, id string) (*entity.Order, error) {
	return r.GetByID(ctx, id)
}

func (r committedOrders) Save(ctx context.Context, o *entity.Order) error {
	return r.s.Run(ctx, func(tx repository.Tx) error { return tx.Orders().Save(ctx, o) })
}

type committedExpeditions struct{ s *Store }

func (r committedExpeditions) Create(ctx context.Context, e *entity.Expedition) error {
	return r.s.Run(ctx, func(tx repository.Tx) error { return tx.Expeditions().Create(ctx, e) })
}

func (r committedExpeditions) GetByID(_ context.Context, id string) (*entity.Expedition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.expeditions[id]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

type committedHistory struct{ s *Store }

func (r committedHistory) Append(ctx context.Context, e *entity.StockHistoryEntry) error {
	return r.s.Run(ctx, func(tx repository.Tx) error { return tx.History().Append(ctx, e) })
}

func (r committedHistory) List(_ context.Context, f repository.HistoryFilter) ([]*entity.StockHistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return filterHistory(r.s.history, f), nil
}
