package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-engine/pkg/logger"
)

// Engine agrupa los coordinadores del motor de stock sobre un mismo runner atómico.
type Engine struct {
	Runner      *AtomicRunner
	Store       *Store
	Ledger      *Ledger
	Orders      *OrderStockCoordinator
	Expeditions *ExpeditionAllocator
	Transfers   *TransferCoordinator
	Adjustments *BulkStockAdjuster
	History     *HistoryService
}

// Option personaliza reloj y generador de IDs (tests).
type Option func(*core)

// WithClock fija el reloj del motor.
func WithClock(now func() time.Time) Option {
	return func(c *core) { c.now = now }
}

// WithIDGenerator fija el generador de IDs de entradas, expediciones y correlaciones.
func WithIDGenerator(gen func() string) Option {
	return func(c *core) { c.newID = gen }
}

// core dependencias compartidas por los coordinadores.
type core struct {
	runner *AtomicRunner
	store  *Store
	ledger *Ledger
	log    *logger.Logger
	now    func() time.Time
	newID  func() string
}

// NewEngine construye el motor. txRunner es el adaptador transaccional (postgres o memoria)
// y readers sirve los listados de historial fuera de transacción.
func NewEngine(txRunner TxRunner, readers Readers, cfg AtomicConfig, log *logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	c := &core{
		log:   log.Named("stock-engine"),
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.runner = NewAtomicRunner(txRunner, cfg, c.log)
	c.store = NewStore(c.now)
	c.ledger = NewLedger(c.now, c.newID)

	return &Engine{
		Runner:      c.runner,
		Store:       c.store,
		Ledger:      c.ledger,
		Orders:      &OrderStockCoordinator{c: c},
		Expeditions: &ExpeditionAllocator{c: c},
		Transfers:   &TransferCoordinator{c: c},
		Adjustments: &BulkStockAdjuster{c: c},
		History:     NewHistoryService(c.runner, readers),
	}
}
