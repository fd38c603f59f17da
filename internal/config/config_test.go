package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFromPath_CreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	params, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, Default().ConceptBagSize, params.ConceptBagSize)
	assert.FileExists(t, path)
}

func TestLoadFromPath_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := Default()
	original.ConceptBagSize = 42
	original.NoveltyHorizon = 7
	require.NoError(t, original.SaveToPath(path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.ConceptBagSize)
	assert.Equal(t, int64(7), loaded.NoveltyHorizon)
}

func TestLoadFromPath_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	t.Setenv("ALANN_CONCEPT_BAG_SIZE", "9999")

	params, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, params.ConceptBagSize)
}

func TestValidate_RejectsNegativeCapacity(t *testing.T) {
	p := Default()
	p.ConceptBagSize = -1
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concept_bag_size")
}

func TestValidate_RejectsZeroDuration(t *testing.T) {
	p := Default()
	p.Duration = 0
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration")
}

func TestValidate_RejectsOutOfRangeVolume(t *testing.T) {
	p := Default()
	p.Volume = 150
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volume")
}

func TestValidate_RejectsOutOfRangeUnitInterval(t *testing.T) {
	p := Default()
	p.QualityRescaled = 1.5
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quality_rescaled")
}

func TestExpandPath_Tilde(t *testing.T) {
	expanded := expandPath("~/.alann/snapshot.db")
	assert.NotContains(t, expanded, "~")
	assert.Contains(t, expanded, ".alann/snapshot.db")
}

func TestExpandPath_LeavesAbsolutePathAlone(t *testing.T) {
	assert.Equal(t, "/var/lib/alann/snapshot.db", expandPath("/var/lib/alann/snapshot.db"))
}

func TestCycles(t *testing.T) {
	p := Default()
	p.Duration = 5
	assert.Equal(t, 10.0, p.Cycles(2))
}
