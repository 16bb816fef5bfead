// seed carga un catálogo inicial (bodegas, productos con existencias y pedidos pendientes)
// en PostgreSQL e imprime un token de desarrollo por rol.
//
// Uso: go run ./cmd/seed [ruta/catalogo.yaml]
// Por defecto usa seed/catalog.yaml. El archivo puede ser YAML o JSON.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
	"github.com/jhoicas/stock-engine/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-engine/pkg/config"
	"github.com/jhoicas/stock-engine/pkg/jwt"
)

type catalog struct {
	Warehouses []struct {
		ID      string `mapstructure:"id"`
		Name    string `mapstructure:"name"`
		Address string `mapstructure:"address"`
	} `mapstructure:"warehouses"`
	Products []struct {
		ID    string `mapstructure:"id"`
		SKU   string `mapstructure:"sku"`
		Name  string `mapstructure:"name"`
		Stock []struct {
			WarehouseID string `mapstructure:"warehouse_id"`
			Quantity    int64  `mapstructure:"quantity"`
		} `mapstructure:"stock"`
	} `mapstructure:"products"`
	Orders []struct {
		ID          string `mapstructure:"id"`
		WarehouseID string `mapstructure:"warehouse_id"`
		Customer    string `mapstructure:"customer"`
		Items       []struct {
			ProductID string `mapstructure:"product_id"`
			Quantity  int64  `mapstructure:"quantity"`
			UnitPrice string `mapstructure:"unit_price"`
		} `mapstructure:"items"`
	} `mapstructure:"orders"`
}

func loadCatalog(path string) (*catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("leer catálogo: %w", err)
	}
	var c catalog
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decodificar catálogo: %w", err)
	}
	return &c, nil
}

// apply inserta el catálogo en una sola transacción. Los pedidos quedan pending:
// el stock solo se descuenta al confirmarlos por la API.
func apply(ctx context.Context, tx repository.Tx, c *catalog, now time.Time) error {
	for _, w := range c.Warehouses {
		if err := tx.Warehouses().Create(ctx, &entity.Warehouse{
			ID: w.ID, Name: w.Name, Address: w.Address, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("bodega %s: %w", w.ID, err)
		}
	}
	for _, p := range c.Products {
		prod := &entity.Product{ID: p.ID, SKU: p.SKU, Name: p.Name, CreatedAt: now, UpdatedAt: now}
		for _, b := range p.Stock {
			if b.Quantity < 0 {
				return fmt.Errorf("producto %s: cantidad negativa en %s", p.ID, b.WarehouseID)
			}
			prod.Warehouses = append(prod.Warehouses, entity.WarehouseBucket{WarehouseID: b.WarehouseID, Quantity: b.Quantity})
		}
		if err := tx.Products().Create(ctx, prod); err != nil {
			return fmt.Errorf("producto %s: %w", p.ID, err)
		}
	}
	for _, o := range c.Orders {
		order := &entity.Order{
			ID: o.ID, Status: entity.OrderStatusPending, WarehouseID: o.WarehouseID,
			CustomerName: o.Customer, CreatedAt: now, UpdatedAt: now,
		}
		for _, it := range o.Items {
			price := decimal.Zero
			if it.UnitPrice != "" {
				var err error
				if price, err = decimal.NewFromString(it.UnitPrice); err != nil {
					return fmt.Errorf("pedido %s: precio %q: %w", o.ID, it.UnitPrice, err)
				}
			}
			order.Items = append(order.Items, entity.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: price})
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("pedido %s: %w", o.ID, err)
		}
	}
	return nil
}

func main() {
	path := "seed/catalog.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuración: %v\n", err)
		os.Exit(1)
	}
	c, err := loadCatalog(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Conexión a PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "Esquema: %v\n", err)
		os.Exit(1)
	}
	now := time.Now().UTC()
	if err := postgres.NewTxRunner(pool).Run(ctx, func(tx repository.Tx) error {
		return apply(ctx, tx, c, now)
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Cargar catálogo: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Catálogo cargado: %d bodegas, %d productos, %d pedidos\n",
		len(c.Warehouses), len(c.Products), len(c.Orders))

	if cfg.JWT.Secret == "" {
		return
	}
	for _, role := range []string{jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleVendedor} {
		tok, err := jwt.Generate(cfg.JWT.Secret, "seed-"+role, role, cfg.JWT.Issuer, cfg.JWT.Expiration)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Token %s: %v\n", role, err)
			os.Exit(1)
		}
		fmt.Printf("%-10s Bearer %s\n", role, tok)
	}
}
