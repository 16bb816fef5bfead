package repository

import (
	"context"

	"github.com/jhoicas/stock-engine/internal/domain/entity"
)

// ExpeditionRepository define el puerto de persistencia para expediciones.
type ExpeditionRepository interface {
	Create(ctx context.Context, expedition *entity.Expedition) error
	GetByID(ctx context.Context, id string) (*entity.Expedition, error)
}
