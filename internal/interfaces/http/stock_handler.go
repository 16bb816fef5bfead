package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-engine/internal/application/dto"
	"github.com/jhoicas/stock-engine/internal/application/inventory"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
	"github.com/jhoicas/stock-engine/pkg/logger"
)

// StockHandler expone las operaciones del motor de stock (protegido).
type StockHandler struct {
	eng *inventory.Engine
	log *logger.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(eng *inventory.Engine, log *logger.Logger) *StockHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &StockHandler{eng: eng, log: log.Named("http")}
}

// ConfirmOrder godoc
// @Summary      Confirmar pedido
// @Description  Descuenta el stock de todas las líneas en la bodega del pedido. Todo o nada.
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pedido"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/confirm [post]
func (h *StockHandler) ConfirmOrder(c *fiber.Ctx) error {
	order, err := h.eng.Orders.Confirm(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return h.fail(c, "confirm", err)
	}
	return c.JSON(dto.FromOrder(order))
}

// StartPreparing godoc
// @Summary      Pasar pedido a preparación
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del pedido"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/prepare [post]
func (h *StockHandler) StartPreparing(c *fiber.Ctx) error {
	order, err := h.eng.Orders.StartPreparing(c.UserContext(), c.Params("id"), GetUserID(c))
	if err != nil {
		return h.fail(c, "prepare", err)
	}
	return c.JSON(dto.FromOrder(order))
}

// CancelOrder godoc
// @Summary      Cancelar pedido
// @Description  Si el pedido retenía stock, lo reingresa línea por línea; las líneas no restaurables se informan en skipped.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true   "ID del pedido"
// @Param        body  body  dto.CancelOrderRequest  false  "Motivo"
// @Success      200   {object}  dto.CancelOrderResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/cancel [post]
func (h *StockHandler) CancelOrder(c *fiber.Ctx) error {
	var in dto.CancelOrderRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	res, err := h.eng.Orders.Cancel(c.UserContext(), c.Params("id"), GetUserID(c), in.Reason)
	if err != nil {
		return h.fail(c, "cancel", err)
	}
	return c.JSON(dto.FromCancelResult(res))
}

// CreateExpedition godoc
// @Summary      Crear expedición con reserva de stock
// @Tags         expeditions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateExpeditionRequest  true  "Bodega origen y líneas"
// @Success      201   {object}  dto.ExpeditionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/expeditions [post]
func (h *StockHandler) CreateExpedition(c *fiber.Ctx) error {
	var in dto.CreateExpeditionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	draft := inventory.ExpeditionDraft{WarehouseID: in.WarehouseID, ProviderID: in.ProviderID, Notes: in.Notes}
	for _, it := range in.Items {
		draft.Items = append(draft.Items, entity.ExpeditionItem{ProductID: it.ProductID, RequestedQuantity: it.Quantity})
	}
	exp, err := h.eng.Expeditions.CreateWithAllocation(c.UserContext(), draft, GetUserID(c))
	if err != nil {
		return h.fail(c, "expedition", err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromExpedition(exp))
}

// Transfer godoc
// @Summary      Trasladar stock entre bodegas
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "Producto, origen, destino y cantidad"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/transfers [post]
func (h *StockHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	res, err := h.eng.Transfers.Transfer(c.UserContext(), inventory.TransferRequest{
		ProductID:       in.ProductID,
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Quantity:        in.Quantity,
		Notes:           in.Notes,
	}, GetUserID(c))
	if err != nil {
		return h.fail(c, "transfer", err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferResponse{
		CorrelationID: res.CorrelationID,
		Out:           dto.FromEntry(res.Out),
		In:            dto.FromEntry(res.In),
	})
}

// ApplyAdjustments godoc
// @Summary      Aplicar lote de ajustes
// @Description  Todos los ajustes se aplican en una sola transacción; uno inválido aborta el lote.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustmentBatchRequest  true  "Ajustes"
// @Success      201   {object}  dto.AdjustmentBatchResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/adjustments [post]
func (h *StockHandler) ApplyAdjustments(c *fiber.Ctx) error {
	var in dto.AdjustmentBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	adjustments := make([]inventory.Adjustment, 0, len(in.Adjustments))
	for _, a := range in.Adjustments {
		adjustments = append(adjustments, inventory.Adjustment{
			ProductID:   a.ProductID,
			WarehouseID: a.WarehouseID,
			Delta:       a.Delta,
			Reason:      entity.Reason(a.Reason),
			Notes:       a.Notes,
		})
	}
	res, err := h.eng.Adjustments.ApplyBatch(c.UserContext(), adjustments, GetUserID(c))
	if err != nil {
		return h.fail(c, "adjustments", err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AdjustmentBatchResponse{BatchID: res.BatchID, Entries: dto.FromEntries(res.Entries)})
}

// ListHistory godoc
// @Summary      Listar historial de stock
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id      query  string  false  "Producto"
// @Param        warehouse_id    query  string  false  "Bodega"
// @Param        correlation_id  query  string  false  "Correlación (traslado o lote)"
// @Param        from            query  string  false  "Desde (RFC3339)"
// @Param        to              query  string  false  "Hasta (RFC3339)"
// @Param        limit           query  int     false  "Límite"  default(20) maximum(100)
// @Param        offset          query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.HistoryListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/history [get]
func (h *StockHandler) ListHistory(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", dto.DefaultPageLimit), Offset: c.QueryInt("offset", 0)}
	page.Normalize()
	f := repository.HistoryFilter{
		ProductID:     c.Query("product_id"),
		WarehouseID:   c.Query("warehouse_id"),
		CorrelationID: c.Query("correlation_id"),
		Limit:         page.Limit,
		Offset:        page.Offset,
	}
	for key, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: key + " debe ser RFC3339"})
		}
		*dst = &t
	}
	list, err := h.eng.History.List(c.UserContext(), f)
	if err != nil {
		return h.fail(c, "history", err)
	}
	return c.JSON(dto.HistoryListResponse{
		Items: dto.FromEntries(list),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Count: len(list)},
	})
}

// Reconcile godoc
// @Summary      Conciliar producto contra su historial
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ReconciliationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id}/reconciliation [get]
func (h *StockHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.eng.History.ReconcileProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, "reconcile", err)
	}
	if !report.Consistent {
		h.log.Warn().Str("product_id", report.ProductID).Msg("historial inconsistente con el stock actual")
	}
	return c.JSON(dto.FromReconciliation(report))
}

func (h *StockHandler) fail(c *fiber.Ctx, op string, err error) error {
	h.log.Debug().Err(err).Str("op", op).Str("actor", GetUserID(c)).Msg("operación rechazada")
	return writeError(c, err)
}
