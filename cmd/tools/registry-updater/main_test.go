package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"intelligence-workers/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitAddNeighborValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "reference-data.json")

	require.NoError(t, initRegistry(path, false))
	assert.Error(t, initRegistry(path, false))
	require.NoError(t, initRegistry(path, true))

	require.NoError(t, addNeighbor(path, "kings", "tulare", true))
	require.NoError(t, setMultiplier(path, "hotel", "1.75"))
	require.NoError(t, validateRegistry(path))

	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"tulare"}, reg.NeighborsOf("kings"))
	assert.Equal(t, []string{"kings"}, reg.NeighborsOf("tulare"))
	m, _ := reg.Multiplier("hotel")
	assert.Equal(t, 1.75, m)
}

func TestSetMultiplier_Rejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference-data.json")
	assert.Error(t, setMultiplier(path, "hotel", "abc"))
	assert.Error(t, setMultiplier(path, "food_truck", "1.1"))
	assert.Error(t, setMultiplier(path, "hotel", "-2"))
}

func TestAddNeighbor_RejectsSelfReference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference-data.json")
	assert.Error(t, addNeighbor(path, "kings", "kings", false))
}

func TestValidateRegistry_SchemaFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reference-data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"neighbors":{}}`), 0o600))
	err := validateRegistry(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestHelp_PrintsUsageOnce(t *testing.T) {
	var buf bytes.Buffer
	help(&buf)

	out := buf.String()
	assert.Contains(t, out, "Usage: registry-updater <command> [flags]")
	assert.Contains(t, out, "set-multiplier")
	assert.True(t, strings.HasSuffix(out, "command.\n"))
}
