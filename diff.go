package sentinel2

import (
	"context"
	"sort"

	"github.com/mundialis/go-sentinel2/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// NDVI差值图：second - first
func (g *GdalToolbox) ComputeDiff(ctx context.Context, firstTif, secondTif string, grid Grid, out string) (err error) {
	fds, fBand, fInfo, err := openSingleBand(firstTif)
	if err != nil {
		return
	}
	defer fds.Close()
	sds, sBand, sInfo, err := openSingleBand(secondTif)
	if err != nil {
		return
	}
	defer sds.Close()
	if fInfo.SizeX != sInfo.SizeX || fInfo.SizeY != sInfo.SizeY {
		return ErrWrongTif
	}
	ods, err := createGridTif(out, grid, gdal.Float32, AggNoData)
	if err != nil {
		return
	}
	defer ods.Close()
	w, h := fInfo.SizeX, fInfo.SizeY
	var (
		oband    = ods.Bands()[0]
		firstRow = make([]float32, w*aggRowBatch)
		secRow   = make([]float32, w*aggRowBatch)
		outRow   = make([]float32, w*aggRowBatch)
	)
	err = forEachRowBlock(ctx, h, aggRowBatch, func(yOff, nRows int) error {
		if e := fBand.IO(gdal.IORead, 0, yOff, firstRow[:w*nRows], w, nRows); e != nil {
			return ErrTifReadFailed
		}
		if e := sBand.IO(gdal.IORead, 0, yOff, secRow[:w*nRows], w, nRows); e != nil {
			return ErrTifReadFailed
		}
		for i := 0; i < w*nRows; i++ {
			if firstRow[i] == AggNoData || secRow[i] == AggNoData {
				outRow[i] = AggNoData
			} else {
				outRow[i] = secRow[i] - firstRow[i]
			}
		}
		return oband.IO(gdal.IOWrite, 0, yOff, outRow[:w*nRows], w, nRows)
	})
	if err != nil {
		log.Error(g.logTag+"compute diff failed", zap.String("out", out), zap.Error(err))
		return
	}
	log.Info(g.logTag+"ndvi diff computed", zap.String("out", out))
	return
}

// 差值图有效像元的全量分位统计（r.univar -ge语义）
func (g *GdalToolbox) DiffQuantiles(ctx context.Context, diffTif string) (stats DiffStats, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	buf, _, err := g.ParseRaster(diffTif)
	if err != nil {
		return
	}
	vals := make([]float64, 0, len(buf))
	var sum float64
	for _, v := range buf {
		if v == AggNoData {
			continue
		}
		vals = append(vals, float64(v))
		sum += float64(v)
	}
	if len(vals) == 0 {
		err = ErrNoValidPixels
		return
	}
	sort.Float64s(vals)
	stats.Count = len(vals)
	stats.Min = vals[0]
	stats.Max = vals[len(vals)-1]
	stats.Mean = sum / float64(len(vals))
	stats.Quart1 = sortedQuantile(vals, 0.25)
	stats.Median = sortedQuantile(vals, 0.5)
	stats.Quart3 = sortedQuantile(vals, 0.75)
	return
}

func sortedQuantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	i := int(pos)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i] + frac*(sorted[i+1]-sorted[i])
}

// 未显式给定阈值时的默认阈值：Q1 - 1.5*(Q3-Q1)
func LossThreshold(stats DiffStats) float64 {
	return stats.Quart1 - 1.5*(stats.Quart3-stats.Quart1)
}

// NDVI损失图：差值不高于阈值的像元置1，其余为无效值
// relevantMin限定首期NDVI不低于该值的像元（排除本就无植被的区域）
func (g *GdalToolbox) ComputeLoss(ctx context.Context, diffTif, firstNdviTif string, thr float64,
	relevantMin float64, hasRelevantMin bool, grid Grid, out string) (lossPx int, err error) {
	dds, dBand, dInfo, err := openSingleBand(diffTif)
	if err != nil {
		return
	}
	defer dds.Close()
	nds, nBand, nInfo, err := openSingleBand(firstNdviTif)
	if err != nil {
		return
	}
	defer nds.Close()
	if dInfo.SizeX != nInfo.SizeX || dInfo.SizeY != nInfo.SizeY {
		err = ErrWrongTif
		return
	}
	ods, err := createGridTif(out, grid, gdal.Byte, 0)
	if err != nil {
		return
	}
	defer ods.Close()
	w, h := dInfo.SizeX, dInfo.SizeY
	var (
		oband   = ods.Bands()[0]
		diffRow = make([]float32, w*aggRowBatch)
		baseRow = make([]float32, w*aggRowBatch)
		outRow  = make([]uint8, w*aggRowBatch)
	)
	err = forEachRowBlock(ctx, h, aggRowBatch, func(yOff, nRows int) error {
		if e := dBand.IO(gdal.IORead, 0, yOff, diffRow[:w*nRows], w, nRows); e != nil {
			return ErrTifReadFailed
		}
		if e := nBand.IO(gdal.IORead, 0, yOff, baseRow[:w*nRows], w, nRows); e != nil {
			return ErrTifReadFailed
		}
		for i := 0; i < w*nRows; i++ {
			outRow[i] = 0
			if diffRow[i] == AggNoData || float64(diffRow[i]) > thr {
				continue
			}
			if hasRelevantMin && (baseRow[i] == AggNoData || float64(baseRow[i]) < relevantMin) {
				continue
			}
			outRow[i] = 1
			lossPx++
		}
		return oband.IO(gdal.IOWrite, 0, yOff, outRow[:w*nRows], w, nRows)
	})
	if err != nil {
		log.Error(g.logTag+"compute loss failed", zap.String("out", out), zap.Error(err))
		return
	}
	log.Info(g.logTag+"ndvi loss raster computed", zap.String("out", out),
		zap.Float64("threshold", thr), zap.Int("lossPx", lossPx))
	return
}
