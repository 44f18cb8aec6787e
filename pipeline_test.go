package sentinel2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNormalize(t *testing.T) {
	cfg := Config{OutputDir: "/tmp/out"}
	require.NoError(t, cfg.Normalize())
	assert.Equal(t, 1, cfg.NProcs)
	assert.Equal(t, "minimum", cfg.Method)
	assert.Equal(t, 0.5, cfg.AggQuantile)
	assert.Equal(t, DefaultCloudBuffer, cfg.CloudBuffer)
	assert.NotEmpty(t, cfg.TmpDir)
}

func TestConfigNormalizeNoOutput(t *testing.T) {
	cfg := Config{}
	assert.ErrorIs(t, cfg.Normalize(), ErrNoOutput)

	// 三种输出之一即可
	assert.NoError(t, (&Config{LossVector: "a.gpkg"}).Normalize())
	assert.NoError(t, (&Config{LossRaster: "a.tif"}).Normalize())
}

func TestConfigNormalizeBadValues(t *testing.T) {
	cfg := Config{OutputDir: "x", NProcs: -2}
	assert.ErrorIs(t, cfg.Normalize(), ErrBadNProcs)

	cfg = Config{OutputDir: "x", Method: "nonsense"}
	assert.ErrorIs(t, cfg.Normalize(), ErrBadAggMethod)
}

func TestGridSize(t *testing.T) {
	grid := Grid{SRID: 32632, Span: [4]float64{500000, 501000, 5200000, 5200500}, Res: 10}
	assert.Equal(t, 100, grid.SizeX())
	assert.Equal(t, 50, grid.SizeY())
}

func TestNewInterval(t *testing.T) {
	cat := Catalog{Scenes: []Scene{
		{Sensed: mustTime(t, "20220604T102601")},
		{Sensed: mustTime(t, "20220614T102601")},
		{Sensed: mustTime(t, "20220619T102601")},
	}}
	iv := newInterval(cat)
	assert.Equal(t, []float64{0, 10, 15}, iv.times)
	assert.Len(t, iv.warped[BandRed], 3)
	assert.Len(t, iv.masks, 3)
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	parsed, err := ParseSceneName("S2A_MSIL2A_" + s + "_N0400_R108_T32UNB_" + s + ".SAFE")
	require.NoError(t, err)
	return parsed.Sensed
}
