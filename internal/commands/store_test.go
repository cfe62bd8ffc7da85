package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/config"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/store/jsonfile"
)

func TestOpenStore_JSONFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Driver = config.DriverJSONFile
	cfg.Store.DataDir = filepath.Join(t.TempDir(), "conversations")

	store, err := openStore(context.Background(), &cfg)
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &jsonfile.MsgStore{}, store)

	require.NoError(t, migrate(context.Background(), store))
	info, err := os.Stat(cfg.Store.DataDir)
	require.NoError(t, err, "migrate creates the conversations directory")
	assert.True(t, info.IsDir())
}

func TestOpenStore_Errors(t *testing.T) {
	_, err := openStore(context.Background(), nil)
	assert.Error(t, err)

	cfg := config.DefaultConfig()
	cfg.Store.Driver = "sqlite"
	_, err = openStore(context.Background(), &cfg)
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestDefaultPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")

	assert.Equal(t, "/tmp/cfg/supportrelay/config.yaml", DefaultConfigPath())
	assert.Equal(t, "/tmp/data/supportrelay", DefaultDataDir())
}
