package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectview/internal/domain/condition"
	"inspectview/internal/infrastructure/storage/postgres"
)

func TestParseTables(t *testing.T) {
	tables, err := parseTables("spans:id,model,score,created_at:metadata:-created_at,id  evals:id,score")
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, postgres.TableConfig{
		Name:        "spans",
		Columns:     []string{"id", "model", "score", "created_at"},
		JSONColumns: []string{"metadata"},
		DefaultOrder: []condition.SortKey{
			{Column: "created_at", Direction: condition.Descending},
			{Column: "id", Direction: condition.Ascending},
		},
	}, tables[0])
	assert.Equal(t, "evals", tables[1].Name)
	assert.Nil(t, tables[1].JSONColumns)
	assert.Nil(t, tables[1].DefaultOrder)
}

func TestParseTables_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{"empty", "  "},
		{"no columns part", "spans"},
		{"too many parts", "spans:a:b:c:d"},
		{"bad table name", "sp-ans:id"},
		{"bad column", "spans:id,score;drop"},
		{"bad json column", "spans:id:meta.data"},
		{"bad order column", "spans:id::-created$at"},
		{"duplicate", "spans:id spans:model"},
		{"no columns", "spans:,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTables(tt.spec)
			assert.Error(t, err)
		})
	}
}
