package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"vacío usa el límite por defecto", PageRequest{}, PageRequest{Limit: DefaultPageLimit}},
		{"límite dentro del rango", PageRequest{Limit: 5, Offset: 10}, PageRequest{Limit: 5, Offset: 10}},
		{"límite recortado", PageRequest{Limit: 500}, PageRequest{Limit: MaxPageLimit}},
		{"negativos", PageRequest{Limit: -1, Offset: -3}, PageRequest{Limit: DefaultPageLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize()
			assert.Equal(t, tt.want, p)
		})
	}
}
