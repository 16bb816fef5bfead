package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-engine/internal/application/inventory"
	"github.com/jhoicas/stock-engine/pkg/jwt"
	"github.com/jhoicas/stock-engine/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine    *inventory.Engine
	JWTSecret string
	Log       *logger.Logger
}

// Router registra las rutas de la API. Todas requieren Bearer Token: el actor del
// token queda sellado en cada entrada del historial.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	h := NewStockHandler(deps.Engine, deps.Log)

	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleVendedor, jwt.RoleBodeguero)
	warehouseOps := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)

	// Pedidos
	orders := api.Group("/orders", anyRole)
	orders.Post("/:id/confirm", h.ConfirmOrder)
	orders.Post("/:id/prepare", h.StartPreparing)
	orders.Post("/:id/cancel", h.CancelOrder)

	// Expediciones
	api.Post("/expeditions", warehouseOps, h.CreateExpedition)

	// Inventario
	inv := api.Group("/inventory")
	inv.Post("/transfers", warehouseOps, h.Transfer)
	inv.Post("/adjustments", warehouseOps, h.ApplyAdjustments)
	inv.Get("/history", anyRole, h.ListHistory)
	inv.Get("/products/:id", anyRole, h.GetProductStock)
	inv.Get("/products/:id/reconciliation", anyRole, h.Reconcile)
}
