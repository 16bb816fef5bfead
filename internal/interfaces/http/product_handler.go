package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-engine/internal/application/dto"
)

// GetProductStock godoc
// @Summary      Stock actual de un producto por bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del producto"
// @Success      200  {object}  dto.ProductStockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/products/{id} [get]
func (h *StockHandler) GetProductStock(c *fiber.Ctx) error {
	p, err := h.eng.History.ProductStock(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, "product", err)
	}
	return c.JSON(dto.FromProduct(p))
}
