package sentinel2

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mundialis/go-sentinel2/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.SetNop()
	os.Exit(m.Run())
}

const testSceneName = "S2A_MSIL2A_20220604T102601_N0400_R108_T32UNB_20220604T164902.SAFE"

func TestParseSceneName(t *testing.T) {
	sc, err := ParseSceneName(testSceneName)
	require.NoError(t, err)
	assert.Equal(t, "S2A", sc.Mission)
	assert.Equal(t, "MSIL2A", sc.Level)
	assert.Equal(t, "N0400", sc.Baseline)
	assert.Equal(t, "R108", sc.Orbit)
	assert.Equal(t, "T32UNB", sc.Tile)
	assert.Equal(t, time.Date(2022, 6, 4, 10, 26, 1, 0, time.UTC), sc.Sensed)
	assert.True(t, sc.NeedsOffset())

	old, err := ParseSceneName("S2B_MSIL2A_20200604T102601_N0214_R108_T32UNB_20200604T164902.SAFE")
	require.NoError(t, err)
	assert.False(t, old.NeedsOffset())
}

func TestParseSceneNameInvalid(t *testing.T) {
	for _, name := range []string{
		"landsat_scene",
		"S2A_MSIL2A_20220604T102601_N0400_R108_T32UNB.SAFE",
		"S2A_MSIL2A_notadate_N0400_R108_T32UNB_20220604T164902.SAFE",
	} {
		_, err := ParseSceneName(name)
		assert.ErrorIs(t, err, ErrBadSceneName, name)
	}
}

func TestTileSrid(t *testing.T) {
	cases := []struct {
		tile string
		srid int
	}{
		{"T32UNB", 32632},
		{"T33TWN", 32633},
		{"T19HBA", 32719},
		{"T01CCV", 32701},
		{"T60XWQ", 32660},
	}
	for _, c := range cases {
		srid, err := TileSrid(c.tile)
		require.NoError(t, err, c.tile)
		assert.Equal(t, c.srid, srid, c.tile)
	}
	for _, bad := range []string{"", "32UNB", "T00UNB", "T61UNB", "T32INB"} {
		_, err := TileSrid(bad)
		assert.Error(t, err, bad)
	}
}

func makeTestScene(t *testing.T, dir, name string, bands []string) {
	t.Helper()
	granule := filepath.Join(dir, name, "GRANULE", "L2A_T32UNB_A036311_20220604T102955", "IMG_DATA")
	for _, b := range bands {
		resDir, suffix := ResDir10m, "_10m.jp2"
		switch b {
		case "SCL", "B8A", "B11", "B12":
			resDir, suffix = ResDir20m, "_20m.jp2"
		}
		p := filepath.Join(granule, resDir, "T32UNB_20220604T102601_"+b+suffix)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), os.ModePerm))
		require.NoError(t, os.WriteFile(p, []byte{0}, os.ModePerm))
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	makeTestScene(t, dir, testSceneName, []string{"B04", "B08", "SCL"})
	makeTestScene(t, dir,
		"S2B_MSIL2A_20220609T102559_N0400_R108_T32UNB_20220609T164902.SAFE",
		[]string{"B04", "B08", "SCL"})

	cat, err := LoadCatalog(dir, -1000, []Band{BandRed, BandNIR, BandSCL})
	require.NoError(t, err)
	require.Len(t, cat.Scenes, 2)
	assert.Equal(t, -1000, cat.Offset)
	// 目录序即时间序
	assert.True(t, cat.Scenes[0].Sensed.Before(cat.Scenes[1].Sensed))
	for _, sc := range cat.Scenes {
		assert.FileExists(t, sc.BandFiles[BandRed])
		assert.FileExists(t, sc.BandFiles[BandNIR])
		assert.Contains(t, sc.BandFiles[BandSCL], ResDir20m)
	}
	srid, err := cat.Srid()
	require.NoError(t, err)
	assert.Equal(t, 32632, srid)
}

// B8A/B11/B12在granule的R20m目录下
func TestLoadCatalog20mBands(t *testing.T) {
	dir := t.TempDir()
	makeTestScene(t, dir, testSceneName, []string{"B04", "B8A", "B11", "B12"})

	cat, err := LoadCatalog(dir, 0, []Band{BandRed, BandNIRNarrow, BandSWIR, BandSWIR2})
	require.NoError(t, err)
	require.Len(t, cat.Scenes, 1)
	sc := cat.Scenes[0]
	assert.Contains(t, sc.BandFiles[BandRed], ResDir10m)
	for _, b := range []Band{BandNIRNarrow, BandSWIR, BandSWIR2} {
		assert.Contains(t, sc.BandFiles[b], ResDir20m, b)
		assert.Contains(t, sc.BandFiles[b], "_20m.jp2", b)
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	empty := t.TempDir()
	_, err := LoadCatalog(empty, 0, []Band{BandRed})
	assert.ErrorIs(t, err, ErrNoScenes)

	mixed := t.TempDir()
	makeTestScene(t, mixed, testSceneName, []string{"B04", "B08"})
	require.NoError(t, os.MkdirAll(filepath.Join(mixed, "LC08_L1TP_194026"), os.ModePerm))
	_, err = LoadCatalog(mixed, 0, []Band{BandRed})
	assert.ErrorIs(t, err, ErrMixedScenes)

	missing := t.TempDir()
	makeTestScene(t, missing, testSceneName, []string{"B04"})
	_, err = LoadCatalog(missing, 0, []Band{BandRed, BandNIR})
	assert.ErrorIs(t, err, ErrBandMissing)
}

func TestCatalogSridMixedTiles(t *testing.T) {
	cat := Catalog{Scenes: []Scene{{Tile: "T32UNB"}, {Tile: "T33UUB"}}}
	_, err := cat.Srid()
	assert.ErrorIs(t, err, ErrMixedTiles)
}
