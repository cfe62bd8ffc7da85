package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/config"
)

func TestWriteResolvedConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Driver = config.DriverPostgres
	cfg.Store.DSN = "postgres://relay:hunter2@db:5432/relay"

	var buf bytes.Buffer
	require.NoError(t, writeResolvedConfig(&buf, &cfg))

	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), "ping_interval: 50s")

	var got config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "postgres://relay:xxxxx@db:5432/relay", got.Store.DSN)
	assert.Equal(t, cfg.Relay, got.Relay)
	assert.Equal(t, "postgres://relay:hunter2@db:5432/relay", cfg.Store.DSN)
}

func TestExtractFieldErrors(t *testing.T) {
	assert.Nil(t, extractFieldErrors(nil))

	cfg := config.DefaultConfig()
	cfg.Store.Driver = "sqlite"
	fieldErrs := extractFieldErrors(cfg.Validate())
	require.Len(t, fieldErrs, 1)
	assert.Equal(t, "store.driver", fieldErrs[0].Field)
}
