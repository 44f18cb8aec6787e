package sentinel2

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mundialis/go-sentinel2/log"

	godal "github.com/airbusgeo/godal"
	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 损失栅格矢量化为多边形（r.to.vect type=area语义）
// 栅格无效值0不参与，结果写入工作目录下的GeoJSON
func (g *GdalToolbox) PolygonizeLoss(lossTif, workDir string) (out string, err error) {
	sds, band, _, err := openSingleBand(lossTif)
	if err != nil {
		return
	}
	defer sds.Close()
	out = filepath.Join(workDir,
		strings.TrimSuffix(filepath.Base(lossTif), FILE_EXT_TIF)+FILE_EXT_JSON)
	vds, err := godal.CreateVector(godal.GeoJSON, out)
	if err != nil {
		log.Error(g.logTag+"create vector failed", zap.String("out", out), zap.Error(err))
		return
	}
	defer vds.Close()
	layer, err := vds.CreateLayer(LossLayerName, sds.SpatialRef(), godal.GTPolygon)
	if err != nil {
		return
	}
	if err = band.Polygonize(layer); err != nil {
		log.Error(g.logTag+"polygonize failed", zap.String("loss", lossTif), zap.Error(err))
		return
	}
	log.Info(g.logTag+"loss raster polygonized", zap.String("out", out))
	return
}

// 读取矢量化结果并剔除小于minSize（地图单位，UTM下为平方米）的图斑
// minSize<=0时不过滤（v.clean tool=rmarea语义）
func (g *GdalToolbox) FilterLossPolygons(vec string, minSize float64) (ret []LossPolygon, err error) {
	driver := gdal.OGRDriverByName("GeoJSON")
	ds, ok := driver.Open(vec, 0)
	if !ok {
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Destroy()
	var (
		layer   = ds.LayerByIndex(0)
		feature *gdal.Feature
		dropped int
		gc      []destroyable
	)
	defer func() {
		for _, v := range gc {
			v.Destroy()
		}
	}()
	for {
		if feature = layer.NextFeature(); feature == nil {
			break
		}
		gc = append(gc, *feature)
		geo := feature.Geometry()
		area := geo.Area()
		if minSize > 0 && area < minSize {
			dropped++
			continue
		}
		wkb, e := geo.ToWKB()
		if e != nil {
			log.Error(g.logTag+"err in wkb convert", zap.Int64("fid", feature.FID()), zap.Error(e))
			continue
		}
		ret = append(ret, LossPolygon{Geom: wkb, Area: area})
	}
	log.Info(g.logTag+"loss polygons filtered", zap.Int("kept", len(ret)),
		zap.Int("dropped", dropped), zap.Float64("minSize", minSize))
	return
}

// 将损失图斑写入shp，带面积字段
func (g *GdalToolbox) WriteLossShapefile(shp string, srid int, polygons []LossPolygon) (err error) {
	log.Info(g.logTag+"output shp files", zap.String("shp", shp), zap.Int("srid", srid))
	driver := gdal.OGRDriverByName(SHP_DRIVER_NAME)
	ds, ok := driver.Create(shp, nil)
	if !ok {
		return ErrGdalDriverCreate
	}
	defer ds.Destroy() // 生成shp文件 + 释放资源
	ref, err := g.getSridRef(srid)
	if err != nil {
		return
	}
	layer := ds.CreateLayer(LossLayerName, ref, gdal.GT_Polygon, []string{ENCODING_OPTION})
	valueField := gdal.CreateFieldDefinition(SHP_FIELD_VALUE, gdal.FT_Integer)
	if err = layer.CreateField(valueField, false); err != nil {
		return
	}
	areaField := gdal.CreateFieldDefinition(SHP_FIELD_AREA, gdal.FT_Real)
	if err = layer.CreateField(areaField, false); err != nil {
		return
	}
	var (
		def      = layer.Definition()
		valueIdx = def.FieldIndex(SHP_FIELD_VALUE)
		areaIdx  = def.FieldIndex(SHP_FIELD_AREA)
		feature  gdal.Feature
		geo      gdal.Geometry
		valid    int
		e        error
		gc       = make([]destroyable, 0, len(polygons))
	)
	for i, p := range polygons {
		feature = def.Create()
		gc = append(gc, feature)
		if e = feature.SetFID(int64(i)); e != nil {
			log.Error(g.logTag+"err in set feature fid", zap.Error(e))
			continue
		}
		feature.SetFieldInteger(valueIdx, 1)
		feature.SetFieldFloat64(areaIdx, p.Area)
		if geo, e = g.parseWKB(p.Geom, ref); e != nil {
			continue
		}
		if e = feature.SetGeometryDirectly(geo); e != nil {
			log.Error(g.logTag+"err in set geom of feature", zap.Error(e))
			continue
		}
		if e = layer.Create(feature); e != nil {
			log.Error(g.logTag+"err in create feature of layer", zap.Error(e))
			continue
		}
		valid++
	}
	for _, v := range gc {
		v.Destroy()
	}
	log.Info(g.logTag+"loss shp created", zap.String("shp", shp),
		zap.Int("total", len(polygons)), zap.Int("valid", valid))
	return
}

// shp转GeoPackage
func (g *GdalToolbox) ShapefileToGpkg(shp, out string) (err error) {
	sds, err := gdal.OpenEx(shp, gdal.OFVector, nil, nil, nil)
	if err != nil {
		log.Error(g.logTag+"open shp error", zap.Error(err))
		return
	}
	defer sds.Close()
	dds, err := gdal.VectorTranslate(out, []gdal.Dataset{sds}, []string{"-f", GPKG_DRIVER})
	if err != nil {
		log.Error(g.logTag+"VectorTranslate failed", zap.String("out", out), zap.Error(err))
		return fmt.Errorf("vector translate to gpkg: %w", err)
	}
	dds.Close() // 生成转换后的gpkg文件
	log.Info(g.logTag+"gpkg written", zap.String("out", out))
	return
}
