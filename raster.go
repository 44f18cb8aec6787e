package sentinel2

import (
	"context"

	"github.com/mundialis/go-sentinel2/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

func init() {
	gdal.RegisterAll()
}

// 栅格尺寸与数据类型
type rasterInfo struct {
	SizeX, SizeY int
	DataType     gdal.DataType
}

// 读取单波段Tif整体到float32缓冲
func (g *GdalToolbox) ParseRaster(tif string) (buf []float32, info rasterInfo, err error) {
	sds, err := gdal.Open(tif, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open tif failed", zap.String("tif", tif), zap.Error(err))
		err = ErrInvalidTif
		return
	}
	defer sds.Close()
	bands := sds.Bands()
	if len(bands) < 1 {
		err = ErrWrongTif
		return
	}
	band := bands[0]
	st := band.Structure()
	info = rasterInfo{SizeX: st.SizeX, SizeY: st.SizeY, DataType: st.DataType}
	buf = make([]float32, st.SizeX*st.SizeY)
	if err = band.IO(gdal.IORead, 0, 0, buf, st.SizeX, st.SizeY); err != nil {
		log.Error(g.logTag+"read tif band failed", zap.String("tif", tif), zap.Error(err))
		err = ErrTifReadFailed
	}
	return
}

func openSingleBand(tif string) (ds *gdal.Dataset, band gdal.Band, info rasterInfo, err error) {
	ds, err = gdal.Open(tif, gdal.RasterOnly())
	if err != nil {
		err = ErrInvalidTif
		return
	}
	bands := ds.Bands()
	if len(bands) < 1 {
		ds.Close()
		err = ErrWrongTif
		return
	}
	band = bands[0]
	st := band.Structure()
	info = rasterInfo{SizeX: st.SizeX, SizeY: st.SizeY, DataType: st.DataType}
	return
}

// 按处理网格新建单波段GTiff
func createGridTif(path string, grid Grid, dt gdal.DataType, nodata float64) (ds *gdal.Dataset, err error) {
	ds, err = gdal.Create(gdal.GTiff, path, 1, dt, grid.SizeX(), grid.SizeY(),
		gdal.CreationOption("COMPRESS=LZW", "TILED=YES"))
	if err != nil {
		log.Error("create tif failed", zap.String("tif", path), zap.Error(err))
		return
	}
	gt := [6]float64{grid.Span[0], grid.Res, 0, grid.Span[3], 0, -grid.Res}
	if err = ds.SetGeoTransform(gt); err != nil {
		ds.Close()
		return
	}
	sr, err := gdal.NewSpatialRefFromEPSG(grid.SRID)
	if err != nil {
		ds.Close()
		return
	}
	defer sr.Close()
	if err = ds.SetSpatialRef(sr); err != nil {
		ds.Close()
		return
	}
	err = ds.Bands()[0].SetNoData(nodata)
	return
}

// 行块迭代，batch为一次处理的行数；每块前检查ctx以便及时中止
func forEachRowBlock(ctx context.Context, height, batch int, fn func(yOff, rows int) error) error {
	for y := 0; y < height; y += batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows := batch
		if y+rows > height {
			rows = height - y
		}
		if err := fn(y, rows); err != nil {
			return err
		}
	}
	return nil
}
