package sentinel2

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorDriverByExt(t *testing.T) {
	dir := t.TempDir()

	shp := filepath.Join(dir, "aoi.shp")
	name, opts := vectorDriverByExt(shp)
	assert.Equal(t, SHP_DRIVER_NAME, name)
	// 无cpg按UTF-8读取，不带编码选项
	assert.Empty(t, opts)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "aoi.cpg"), []byte("GBK"), os.ModePerm))
	_, opts = vectorDriverByExt(shp)
	assert.Equal(t, []string{OO_ENCODING}, opts)

	name, _ = vectorDriverByExt("aoi.gpkg")
	assert.Equal(t, GPKG_DRIVER, name)

	name, _ = vectorDriverByExt("aoi.geojson")
	assert.Equal(t, "GeoJSON", name)
}

// cutline坐标是UTM值，无crs成员时OGR会按4326解读并在warp时变换失败
func TestCutlineJSONDeclaresCrs(t *testing.T) {
	geom := AnyJson(`{"type":"Polygon","coordinates":[[[500000,5200000],[501000,5200000],[501000,5201000],[500000,5200000]]]}`)
	fc := cutlineJSON(geom, 32632)

	var parsed struct {
		Type string `json:"type"`
		Crs  struct {
			Type       string `json:"type"`
			Properties struct {
				Name string `json:"name"`
			} `json:"properties"`
		} `json:"crs"`
		Features []struct {
			Geometry json.RawMessage `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal([]byte(fc), &parsed))
	assert.Equal(t, "FeatureCollection", parsed.Type)
	assert.Equal(t, "name", parsed.Crs.Type)
	assert.Equal(t, "urn:ogc:def:crs:EPSG::32632", parsed.Crs.Properties.Name)
	require.Len(t, parsed.Features, 1)
	assert.JSONEq(t, string(geom), string(parsed.Features[0].Geometry))
}

func TestEncodedShpPath(t *testing.T) {
	out := encodedShpPath("/tmp/work", "/data/區域/aoi.shp")
	assert.Equal(t, filepath.Join("/tmp/work", "aoi_utf8.shp"), out)
	assert.True(t, strings.HasSuffix(out, FILE_EXT_SHP))
}
