package sentinel2

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/mundialis/go-sentinel2/log"
	"github.com/mundialis/go-sentinel2/utils"

	"github.com/google/uuid"
	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 分析范围矢量（单一多边形并集）
type AOI struct {
	Geom GdalGeo // WKB
	Srid int
}

func vectorDriverByExt(path string) (name string, opts []string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case FILE_EXT_SHP:
		name = SHP_DRIVER_NAME
		if !utils.ShpIsUtf8(path) {
			// 无cpg或非UTF-8的shp按GBK读取
			opts = []string{OO_ENCODING}
		}
	case FILE_EXT_GPKG:
		name = GPKG_DRIVER
	default:
		name = "GeoJSON"
	}
	return
}

func encodedShpPath(tmpDir, shp string) string {
	return filepath.Join(tmpDir, utils.GetFilenameWithoutExt(shp)+"_utf8"+FILE_EXT_SHP)
}

// GBK编码的shp先转出一份UTF-8副本再解析
func (g *GdalToolbox) encodeShapefile(shp string) (out string, err error) {
	sds, err := gdal.OpenEx(shp, gdal.OFVector, nil, []string{OO_ENCODING}, nil)
	if err != nil {
		log.Error(g.logTag+"open shp error", zap.Error(err))
		return
	}
	defer sds.Close()
	out = encodedShpPath(g.tmpDir, shp)
	dds, err := gdal.VectorTranslate(out, []gdal.Dataset{sds}, []string{"-lco", ENCODING_OPTION})
	if err != nil {
		log.Error(g.logTag+"VectorTranslate failed", zap.String("shp", shp), zap.Error(err))
		return
	}
	dds.Close() // 生成转换后的shp文件
	log.Info(g.logTag+"shp re-encoded", zap.String("out", out))
	return
}

// 读取AOI矢量文件，所有要素取并集
func (g *GdalToolbox) LoadAOI(path string) (aoi AOI, err error) {
	log.Info(g.logTag+"load AOI", zap.String("path", path))
	drvName, opts := vectorDriverByExt(path)
	if len(opts) > 0 {
		if path, err = g.encodeShapefile(path); err != nil {
			return
		}
	}
	driver := gdal.OGRDriverByName(drvName)
	ds, ok := driver.Open(path, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	var (
		layer   = ds.LayerByIndex(0)
		feature *gdal.Feature
		gc      []destroyable
	)
	if aoi.Srid, err = g.getSrid(layer.SpatialReference()); err != nil {
		if drvName != "GeoJSON" {
			return
		}
		// GeoJSON可省略坐标系声明，按规范默认为4326
		aoi.Srid, err = GEOJSON_SRID, nil
	}
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	union := gdal.Create(gdal.GT_Polygon)
	gc = append(gc, union)
	for {
		if feature = layer.NextFeature(); feature != nil {
			gc = append(gc, *feature)
			union = union.Union(feature.Geometry())
			gc = append(gc, union)
		} else {
			break
		}
	}
	if union.IsEmpty() {
		err = ErrEmptyAOI
		return
	}
	aoi.Geom, err = union.ToWKB()
	log.Info(g.logTag+"AOI loaded", zap.Int("srid", aoi.Srid), zap.Int("wkbSize", len(aoi.Geom)))
	return
}

// 按目标坐标系与分辨率对齐AOI范围，得到处理网格（对应g.region -a语义）
func (g *GdalToolbox) MakeGrid(aoi AOI, tSrid int, res float64) (grid Grid, err error) {
	wkb, err := g.TransformWkb(aoi.Geom, aoi.Srid, tSrid)
	if err != nil {
		return
	}
	span, err := g.GetWkbSpan(wkb, tSrid)
	if err != nil {
		return
	}
	grid.SRID = tSrid
	grid.Res = res
	grid.Span[0] = math.Floor(span[0]/res) * res
	grid.Span[1] = math.Ceil(span[1]/res) * res
	grid.Span[2] = math.Floor(span[2]/res) * res
	grid.Span[3] = math.Ceil(span[3]/res) * res
	log.Info(g.logTag+"grid aligned", zap.Int("srid", tSrid),
		zap.Int("cols", grid.SizeX()), zap.Int("rows", grid.SizeY()))
	return
}

// 无crs的GeoJSON会被OGR按RFC 7946当作4326读取，
// 故cutline必须带legacy crs成员声明目标坐标系
func cutlineJSON(geom AnyJson, srid int) string {
	crs := fmt.Sprintf(`{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::%d"}}`, srid)
	feat := fmt.Sprintf(`{"type":"Feature","properties":{},"geometry":%s}`, geom)
	return fmt.Sprintf(`{"type":"FeatureCollection","crs":%s,"features":[%s]}`, crs, feat)
}

// 将AOI写为目标坐标系下的GeoJSON，供warp的cutline使用
func (g *GdalToolbox) WriteCutline(aoi AOI, tSrid int) (path string, err error) {
	wkb, err := g.TransformWkb(aoi.Geom, aoi.Srid, tSrid)
	if err != nil {
		return
	}
	geoJson, err := g.WkbToGeoJSON(wkb, tSrid)
	if err != nil {
		return
	}
	path = filepath.Join(g.tmpDir, fmt.Sprintf(TMP_GEOJSON, uuid.NewString()))
	err = os.WriteFile(path, utils.S2B(cutlineJSON(geoJson, tSrid)), os.ModePerm)
	return
}
