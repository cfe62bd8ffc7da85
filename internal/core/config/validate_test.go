package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Store.Driver = DriverJSONFile
	cfg.Store.DataDir = filepath.Join(cfg.DataDir, "conversations")
	cfg.HTTP.AllowedOrigins = []string{"https://shop.example"}
	return &cfg
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field)
	}
	return fields
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)

	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_ConfigPathIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	err := cfg.ValidateDeep(t.TempDir())
	assert.Equal(t, []string{"config"}, fieldsOf(t, err))
}

func TestValidateDeep_MissingConfigFileIsFine(t *testing.T) {
	cfg := validConfig(t)

	assert.NoError(t, cfg.ValidateDeep(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestValidateDeep_BadListenAddress(t *testing.T) {
	cfg := validConfig(t)
	cfg.HTTP.Addr = "8080"

	err := cfg.ValidateDeep("")
	assert.Equal(t, []string{"http.addr"}, fieldsOf(t, err))
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	cfg.Store.DataDir = file

	err := cfg.ValidateDeep("")
	assert.Equal(t, []string{"store.data_dir"}, fieldsOf(t, err))
}

func TestValidateDeep_DSN(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		wantErr bool
	}{
		{name: "url", dsn: "postgres://relay@localhost:5432/relay?sslmode=disable"},
		{name: "postgresql scheme", dsn: "postgresql://relay@localhost/relay"},
		{name: "key value", dsn: "host=localhost dbname=relay"},
		{name: "wrong scheme", dsn: "mysql://relay@localhost/relay", wantErr: true},
		{name: "no host", dsn: "postgres:///relay", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			cfg.Store.Driver = DriverPostgres
			cfg.Store.DSN = tt.dsn

			err := cfg.ValidateDeep("")
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, []string{"store.dsn"}, fieldsOf(t, err))
		})
	}
}

func TestValidateDeep_IncludesBasicValidation(t *testing.T) {
	cfg := validConfig(t)
	cfg.Relay.WriteWait = 0
	cfg.HTTP.Addr = "nope"

	err := cfg.ValidateDeep("")
	assert.ElementsMatch(t, []string{"relay.write_wait", "http.addr"}, fieldsOf(t, err))
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	cfg.Store.Driver = DriverPostgres
	cfg.Store.DSN = "postgres://relay@localhost/relay"
	assert.Empty(t, cfg.Warnings())

	cfg.HTTP.AllowedOrigins = nil
	cfg.Store.Driver = DriverJSONFile
	warnings := cfg.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "allowed_origins", warnings[0].Item)
	assert.Equal(t, "driver", warnings[1].Item)
}
