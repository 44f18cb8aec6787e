package sentinel2

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mundialis/go-sentinel2/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

const aggRowBatch = 256

// 将单景单波段warp到处理网格
// SCL用最近邻重采样，反射率波段用双线性；cutline限定AOI范围
func (g *GdalToolbox) WarpSceneBand(sc Scene, band Band, grid Grid, cutline, workDir string) (out string, err error) {
	src, ok := sc.BandFiles[band]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrBandMissing, band)
		return
	}
	resample := "bilinear"
	if band == BandSCL {
		resample = "near"
	}
	base := strings.TrimSuffix(filepath.Base(sc.Dir), FILE_EXT_SAFE)
	out = filepath.Join(workDir, fmt.Sprintf("%s_%s%s", base, band, FILE_EXT_TIF))
	sds, err := gdal.Open(src, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open band file failed", zap.String("src", src), zap.Error(err))
		err = ErrInvalidTif
		return
	}
	defer sds.Close()
	opts := []string{
		"-t_srs", fmt.Sprintf("epsg:%d", grid.SRID),
		"-te", fmt.Sprintf("%f", grid.Span[0]), fmt.Sprintf("%f", grid.Span[2]),
		fmt.Sprintf("%f", grid.Span[1]), fmt.Sprintf("%f", grid.Span[3]),
		"-tr", fmt.Sprintf("%f", grid.Res), fmt.Sprintf("%f", grid.Res),
		"-r", resample,
		"-dstnodata", "0",
		"-overwrite",
	}
	if cutline != "" {
		opts = append(opts, "-cutline", cutline)
	}
	ods, err := gdal.Warp(out, []*gdal.Dataset{sds}, opts)
	if err != nil {
		log.Error(g.logTag+"warp band failed", zap.String("src", src), zap.Error(err))
		return
	}
	ods.Close()
	log.Debug(g.logTag+"band warped", zap.String("scene", base), zap.String("band", string(band)))
	return
}

// 对齐后的同波段多景时序聚合
// paths与times一一对应；maskPaths可为nil或与paths等长（空串表示该景无掩膜）
// 像元值0视为无数据，有效值加offset后参与聚合；无任何有效样本的像元输出AggNoData
func (g *GdalToolbox) AggregateBand(ctx context.Context, paths, maskPaths []string,
	times []float64, offset int, agg AggFunc, grid Grid, out string) (err error) {
	n := len(paths)
	if n == 0 {
		return ErrEmptyTif
	}
	w, h := grid.SizeX(), grid.SizeY()
	type layer struct {
		ds   *gdal.Dataset
		band gdal.Band
		mask *gdal.Dataset
		mb   gdal.Band
	}
	layers := make([]layer, n)
	defer func() {
		for _, l := range layers {
			if l.ds != nil {
				l.ds.Close()
			}
			if l.mask != nil {
				l.mask.Close()
			}
		}
	}()
	for i, p := range paths {
		var info rasterInfo
		if layers[i].ds, layers[i].band, info, err = openSingleBand(p); err != nil {
			return
		}
		if info.SizeX != w || info.SizeY != h {
			log.Error(g.logTag+"band tif does not match grid", zap.String("tif", p),
				zap.Int("sizeX", info.SizeX), zap.Int("sizeY", info.SizeY))
			return ErrWrongTif
		}
		if maskPaths != nil && maskPaths[i] != "" {
			if layers[i].mask, layers[i].mb, _, err = openSingleBand(maskPaths[i]); err != nil {
				return
			}
		}
	}
	ods, err := createGridTif(out, grid, gdal.Float32, AggNoData)
	if err != nil {
		return
	}
	defer ods.Close()
	oband := ods.Bands()[0]

	var (
		rows     = make([][]float32, n)
		masks    = make([][]uint8, n)
		outRow   = make([]float32, w*aggRowBatch)
		samples  = make([]float64, 0, n)
		stimes   = make([]float64, 0, n)
		sceneIdx = make([]int, 0, n)
	)
	for i := range rows {
		rows[i] = make([]float32, w*aggRowBatch)
		if layers[i].mask != nil {
			masks[i] = make([]uint8, w*aggRowBatch)
		}
	}
	err = forEachRowBlock(ctx, h, aggRowBatch, func(yOff, nRows int) error {
		for i, l := range layers {
			if e := l.band.IO(gdal.IORead, 0, yOff, rows[i][:w*nRows], w, nRows); e != nil {
				return ErrTifReadFailed
			}
			if l.mask != nil {
				if e := l.mb.IO(gdal.IORead, 0, yOff, masks[i][:w*nRows], w, nRows); e != nil {
					return ErrTifReadFailed
				}
			}
		}
		for p := 0; p < w*nRows; p++ {
			samples = samples[:0]
			stimes = stimes[:0]
			sceneIdx = sceneIdx[:0]
			for i := range layers {
				v := rows[i][p]
				if v == 0 || (masks[i] != nil && masks[i][p] != 0) {
					continue
				}
				samples = append(samples, float64(v)+float64(offset))
				stimes = append(stimes, times[i])
				sceneIdx = append(sceneIdx, i)
			}
			if len(samples) == 0 {
				outRow[p] = AggNoData
			} else {
				outRow[p] = float32(agg(samples, stimes, sceneIdx))
			}
		}
		return oband.IO(gdal.IOWrite, 0, yOff, outRow[:w*nRows], w, nRows)
	})
	if err != nil {
		log.Error(g.logTag+"aggregate band failed", zap.String("out", out), zap.Error(err))
		return
	}
	log.Info(g.logTag+"band aggregated", zap.String("out", out), zap.Int("scenes", n))
	return
}
