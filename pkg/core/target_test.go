package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetConfig_Validate(t *testing.T) {
	available := []string{"duckdb", "postgres"}

	tests := []struct {
		name      string
		target    TargetConfig
		wantErr   bool
		errSubstr string
	}{
		{name: "empty type", target: TargetConfig{}, wantErr: true, errSubstr: "target type is required"},
		{name: "valid duckdb", target: TargetConfig{Type: "duckdb"}},
		{name: "valid duckdb uppercase", target: TargetConfig{Type: "DuckDB"}},
		{name: "valid postgres", target: TargetConfig{Type: "postgres"}},
		{name: "unknown type mysql", target: TargetConfig{Type: "mysql"}, wantErr: true, errSubstr: "unknown adapter type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate(available)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTargetConfig_Validate_ErrorListsAvailable(t *testing.T) {
	err := (&TargetConfig{Type: "oracle"}).Validate([]string{"duckdb"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duckdb")
	assert.Contains(t, err.Error(), "leapview.yaml")
}

func TestTargetConfig_ApplyDefaults(t *testing.T) {
	tests := []struct {
		name   string
		target TargetConfig
		want   TargetConfig
	}{
		{
			name:   "empty becomes duckdb main",
			target: TargetConfig{},
			want:   TargetConfig{Type: "duckdb", Schema: "main"},
		},
		{
			name:   "postgres gets public and port",
			target: TargetConfig{Type: "Postgres"},
			want:   TargetConfig{Type: "postgres", Schema: "public", Port: 5432},
		},
		{
			name:   "explicit schema kept",
			target: TargetConfig{Type: "duckdb", Schema: "analytics"},
			want:   TargetConfig{Type: "duckdb", Schema: "analytics"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.target.ApplyDefaults()
			assert.Equal(t, tt.want, tt.target)
		})
	}
}

func TestTargetConfig_AdapterConfig(t *testing.T) {
	target := TargetConfig{
		Type:     "POSTGRES",
		Database: "analytics",
		Host:     "db.local",
		Port:     5433,
		User:     "viewer",
		Password: "secret",
		Schema:   "public",
		Options:  map[string]string{"sslmode": "require"},
	}

	cfg := target.AdapterConfig()
	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, "analytics", cfg.Path)
	assert.Equal(t, "analytics", cfg.Database)
	assert.Equal(t, "viewer", cfg.Username)
	assert.Equal(t, "require", cfg.Options["sslmode"])
}

func TestTableMetadata_ColumnNames(t *testing.T) {
	md := &TableMetadata{Columns: []Column{{Name: "id", Position: 1}, {Name: "amount", Position: 2}}}
	assert.Equal(t, []string{"id", "amount"}, md.ColumnNames())
}
