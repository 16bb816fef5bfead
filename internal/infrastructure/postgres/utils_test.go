package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-engine/internal/domain"
	"github.com/jhoicas/stock-engine/internal/domain/repository"
)

func TestMapTxError(t *testing.T) {
	serialization := fmt.Errorf("update product: %w", &pgconn.PgError{Code: "40001"})
	deadlock := &pgconn.PgError{Code: "40P01"}
	unique := &pgconn.PgError{Code: "23505"}

	assert.NoError(t, mapTxError(nil))
	assert.ErrorIs(t, mapTxError(serialization), repository.ErrWriteConflict)
	assert.ErrorIs(t, mapTxError(deadlock), repository.ErrWriteConflict)
	assert.NotErrorIs(t, mapTxError(unique), repository.ErrWriteConflict)

	// los errores de negocio atraviesan el runner sin cambios
	biz := fmt.Errorf("%w: pedido x", domain.ErrInvalidState)
	assert.Same(t, biz, mapTxError(biz))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(errors.New("timeout")))
}

func TestOperation(t *testing.T) {
	assert.Equal(t, "SELECT", operation("\n\t\tselect id FROM products"))
	assert.Equal(t, "INSERT", operation("INSERT INTO stock_history"))
	assert.Equal(t, "query", operation("   "))
}
