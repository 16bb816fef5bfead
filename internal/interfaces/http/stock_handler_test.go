package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-engine/internal/application/dto"
	"github.com/jhoicas/stock-engine/internal/application/inventory"
	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/infrastructure/memory"
	apphttp "github.com/jhoicas/stock-engine/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/stock-engine/pkg/jwt"
	"github.com/jhoicas/stock-engine/pkg/logger"
)

type stockAPI struct {
	t     *testing.T
	app   *fiber.App
	store *memory.Store
}

// newStockAPI monta el router completo sobre el store en memoria con W1/W2 y el producto P (W1:10).
func newStockAPI(t *testing.T) *stockAPI {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Warehouses().Create(ctx, &entity.Warehouse{ID: "W1", Name: "Central"}))
	require.NoError(t, store.Warehouses().Create(ctx, &entity.Warehouse{ID: "W2", Name: "Norte"}))
	require.NoError(t, store.Products().Create(ctx, &entity.Product{
		ID: "P", SKU: "SKU-P", Name: "Producto",
		Warehouses: []entity.WarehouseBucket{{WarehouseID: "W1", Quantity: 10}},
	}))
	require.NoError(t, store.Orders().Create(ctx, &entity.Order{
		ID: "O1", Status: entity.OrderStatusPending, WarehouseID: "W1", CustomerName: "ACME",
		Items: []entity.OrderItem{{ProductID: "P", Quantity: 6, UnitPrice: decimal.NewFromInt(5)}},
	}))

	eng := inventory.NewEngine(store, store.Readers(),
		inventory.AtomicConfig{MaxAttempts: 3, Timeout: 2 * time.Second}, logger.Nop())
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{Engine: eng, JWTSecret: testJWTSecret, Log: logger.Nop()})
	return &stockAPI{t: t, app: app, store: store}
}

func (a *stockAPI) do(method, path, role string, body any) (*http.Response, []byte) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(a.t, role))
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(a.t, err)
	return resp, out.Bytes()
}

func (a *stockAPI) bucket(warehouseID string) int64 {
	a.t.Helper()
	p, err := a.store.Products().GetByID(context.Background(), "P")
	require.NoError(a.t, err)
	q, _ := p.Bucket(warehouseID)
	return q
}

func TestStockAPI_ConfirmAndCancelOrder(t *testing.T) {
	api := newStockAPI(t)

	resp, body := api.do(http.MethodPost, "/api/orders/O1/confirm", pkgjwt.RoleVendedor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var order dto.OrderResponse
	require.NoError(t, json.Unmarshal(body, &order))
	assert.Equal(t, "confirmed", order.Status)
	assert.Equal(t, testUserID, order.ConfirmedBy)
	assert.Equal(t, int64(4), api.bucket("W1"))

	resp, body = api.do(http.MethodPost, "/api/orders/O1/confirm", pkgjwt.RoleVendedor, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "INVALID_STATE")

	resp, body = api.do(http.MethodPost, "/api/orders/O1/cancel", pkgjwt.RoleAdmin, dto.CancelOrderRequest{Reason: "cliente desiste"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var canceled dto.CancelOrderResponse
	require.NoError(t, json.Unmarshal(body, &canceled))
	assert.Equal(t, "canceled", canceled.Order.Status)
	require.Len(t, canceled.Restored, 1)
	assert.Equal(t, "order-canceled", canceled.Restored[0].Reason)
	assert.Empty(t, canceled.Skipped)
	assert.Equal(t, int64(10), api.bucket("W1"))
}

func TestStockAPI_UnknownOrderIs404(t *testing.T) {
	api := newStockAPI(t)
	resp, body := api.do(http.MethodPost, "/api/orders/NOPE/confirm", pkgjwt.RoleAdmin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "NOT_FOUND")
}

func TestStockAPI_TransferAndHistory(t *testing.T) {
	api := newStockAPI(t)

	resp, body := api.do(http.MethodPost, "/api/inventory/transfers", pkgjwt.RoleBodeguero, dto.TransferRequest{
		ProductID: "P", FromWarehouseID: "W1", ToWarehouseID: "W2", Quantity: 3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var tr dto.TransferResponse
	require.NoError(t, json.Unmarshal(body, &tr))
	assert.NotEmpty(t, tr.CorrelationID)
	assert.Equal(t, tr.CorrelationID, tr.Out.CorrelationID)
	assert.Equal(t, tr.CorrelationID, tr.In.CorrelationID)
	assert.Equal(t, int64(7), api.bucket("W1"))
	assert.Equal(t, int64(3), api.bucket("W2"))

	resp, body = api.do(http.MethodGet, "/api/inventory/history?correlation_id="+tr.CorrelationID, pkgjwt.RoleVendedor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var list dto.HistoryListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Items, 2)
	assert.Less(t, list.Items[0].Seq, list.Items[1].Seq)
	assert.Equal(t, 20, list.Page.Limit)
	assert.Equal(t, 2, list.Page.Count)

	resp, body = api.do(http.MethodGet, "/api/inventory/history?limit=500", pkgjwt.RoleVendedor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 100, list.Page.Limit)

	resp, body = api.do(http.MethodGet, "/api/inventory/products/P/reconciliation", pkgjwt.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var rec dto.ReconciliationResponse
	require.NoError(t, json.Unmarshal(body, &rec))
	assert.True(t, rec.Consistent)
	assert.Equal(t, int64(10), rec.TotalStock)
}

func TestStockAPI_TransferInsufficientStockIs409(t *testing.T) {
	api := newStockAPI(t)
	resp, body := api.do(http.MethodPost, "/api/inventory/transfers", pkgjwt.RoleBodeguero, dto.TransferRequest{
		ProductID: "P", FromWarehouseID: "W1", ToWarehouseID: "W2", Quantity: 11,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, string(body), "INSUFFICIENT_STOCK")
	assert.Equal(t, int64(10), api.bucket("W1"))
}

func TestStockAPI_VendedorCannotTransfer(t *testing.T) {
	api := newStockAPI(t)
	resp, _ := api.do(http.MethodPost, "/api/inventory/transfers", pkgjwt.RoleVendedor, dto.TransferRequest{
		ProductID: "P", FromWarehouseID: "W1", ToWarehouseID: "W2", Quantity: 1,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, int64(10), api.bucket("W1"))
}

func TestStockAPI_RequiresToken(t *testing.T) {
	api := newStockAPI(t)
	resp, _ := api.do(http.MethodGet, "/api/inventory/history", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStockAPI_ExpeditionAndAdjustments(t *testing.T) {
	api := newStockAPI(t)

	resp, body := api.do(http.MethodPost, "/api/expeditions", pkgjwt.RoleBodeguero, dto.CreateExpeditionRequest{
		WarehouseID: "W1",
		Items:       []dto.ExpeditionItemRequest{{ProductID: "P", Quantity: 4}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var exp dto.ExpeditionResponse
	require.NoError(t, json.Unmarshal(body, &exp))
	assert.NotEmpty(t, exp.ID)
	assert.Equal(t, int64(6), api.bucket("W1"))

	resp, body = api.do(http.MethodPost, "/api/inventory/adjustments", pkgjwt.RoleAdmin, dto.AdjustmentBatchRequest{
		Adjustments: []dto.AdjustmentRequest{
			{ProductID: "P", WarehouseID: "W1", Delta: -1},
			{ProductID: "P", WarehouseID: "W2", Delta: 5},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var batch dto.AdjustmentBatchResponse
	require.NoError(t, json.Unmarshal(body, &batch))
	require.Len(t, batch.Entries, 2)
	for _, e := range batch.Entries {
		assert.Equal(t, batch.BatchID, e.CorrelationID)
	}
	assert.Equal(t, int64(5), api.bucket("W1"))
	assert.Equal(t, int64(5), api.bucket("W2"))
}

func TestStockAPI_AdjustmentBatchIsAllOrNothing(t *testing.T) {
	api := newStockAPI(t)
	resp, body := api.do(http.MethodPost, "/api/inventory/adjustments", pkgjwt.RoleAdmin, dto.AdjustmentBatchRequest{
		Adjustments: []dto.AdjustmentRequest{
			{ProductID: "P", WarehouseID: "W1", Delta: -2},
			{ProductID: "P", WarehouseID: "W1", Delta: -20},
		},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))
	assert.Equal(t, int64(10), api.bucket("W1"))
}

func TestStockAPI_HistoryRejectsBadDate(t *testing.T) {
	api := newStockAPI(t)
	resp, body := api.do(http.MethodGet, "/api/inventory/history?from=ayer", pkgjwt.RoleAdmin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "VALIDATION")
}

func TestStockAPI_ProductStock(t *testing.T) {
	api := newStockAPI(t)
	_, _ = api.do(http.MethodPost, "/api/inventory/transfers", pkgjwt.RoleBodeguero, dto.TransferRequest{
		ProductID: "P", FromWarehouseID: "W1", ToWarehouseID: "W2", Quantity: 4,
	})

	resp, body := api.do(http.MethodGet, "/api/inventory/products/P", pkgjwt.RoleVendedor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var p dto.ProductStockResponse
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, int64(10), p.TotalStock)
	assert.Equal(t, []dto.BucketResponse{{WarehouseID: "W1", Quantity: 6}, {WarehouseID: "W2", Quantity: 4}}, p.Buckets)

	resp, _ = api.do(http.MethodGet, "/api/inventory/products/NOPE", pkgjwt.RoleVendedor, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
