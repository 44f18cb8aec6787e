package sentinel2

import (
	"context"
	"fmt"
	"math"

	"github.com/mundialis/go-sentinel2/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// 支持的光谱指数
type IndexKind string

const (
	IndexNDVI IndexKind = "NDVI" // (nir-red)/(nir+red)
	IndexNDWI IndexKind = "NDWI" // (green-nir)/(green+nir)
	IndexNDBI IndexKind = "NDBI" // (swir-nir)/(swir+nir)
	IndexBSI  IndexKind = "BSI"  // ((swir+red)-(nir+blue))/((swir+red)+(nir+blue))
)

// 各指数所需波段
func (k IndexKind) RequiredBands() ([]Band, error) {
	switch k {
	case IndexNDVI:
		return []Band{BandRed, BandNIR}, nil
	case IndexNDWI:
		return []Band{BandGreen, BandNIR}, nil
	case IndexNDBI:
		return []Band{BandSWIR, BandNIR}, nil
	case IndexBSI:
		return []Band{BandBlue, BandRed, BandNIR, BandSWIR}, nil
	}
	return nil, fmt.Errorf("index not found: %q, use one of NDVI,NDWI,NDBI,BSI", k)
}

// 单行NDVI：无效输入或零分母输出AggNoData
func ndviRow(nir, red, out []float32) {
	for i := range out {
		n, r := nir[i], red[i]
		if n == AggNoData || r == AggNoData {
			out[i] = AggNoData
			continue
		}
		sum := n + r
		if sum == 0 {
			out[i] = AggNoData
			continue
		}
		out[i] = (n - r) / sum
	}
}

// 由聚合后的红与近红外波段计算浮点NDVI
func (g *GdalToolbox) ComputeNDVI(ctx context.Context, redTif, nirTif string, grid Grid, out string) (err error) {
	rds, rBand, rInfo, err := openSingleBand(redTif)
	if err != nil {
		return
	}
	defer rds.Close()
	nds, nBand, nInfo, err := openSingleBand(nirTif)
	if err != nil {
		return
	}
	defer nds.Close()
	if rInfo.SizeX != nInfo.SizeX || rInfo.SizeY != nInfo.SizeY {
		return ErrWrongTif
	}
	ods, err := createGridTif(out, grid, gdal.Float32, AggNoData)
	if err != nil {
		return
	}
	defer ods.Close()
	w, h := rInfo.SizeX, rInfo.SizeY
	var (
		oband  = ods.Bands()[0]
		redRow = make([]float32, w*aggRowBatch)
		nirRow = make([]float32, w*aggRowBatch)
		outRow = make([]float32, w*aggRowBatch)
	)
	err = forEachRowBlock(ctx, h, aggRowBatch, func(yOff, nRows int) error {
		if e := rBand.IO(gdal.IORead, 0, yOff, redRow[:w*nRows], w, nRows); e != nil {
			return ErrTifReadFailed
		}
		if e := nBand.IO(gdal.IORead, 0, yOff, nirRow[:w*nRows], w, nRows); e != nil {
			return ErrTifReadFailed
		}
		ndviRow(nirRow[:w*nRows], redRow[:w*nRows], outRow[:w*nRows])
		return oband.IO(gdal.IOWrite, 0, yOff, outRow[:w*nRows], w, nRows)
	})
	if err != nil {
		log.Error(g.logTag+"compute ndvi failed", zap.String("out", out), zap.Error(err))
		return
	}
	log.Info(g.logTag+"ndvi computed", zap.String("out", out))
	return
}

// 单像元byte定标：round(255*(1+x)/2)，输出限定在[1,255]，0保留为无效值
func scaleIndexValue(x float64) uint8 {
	v := math.Round(255 * (1 + x) / 2)
	if v < 1 {
		v = 1
	} else if v > 255 {
		v = 255
	}
	return uint8(v)
}

func scaledIndexRow(kind IndexKind, rows map[Band][]float32, n int, out []uint8) {
	for i := 0; i < n; i++ {
		var num, den float64
		valid := true
		for _, b := range rows {
			if b[i] == 0 || b[i] == AggNoData {
				valid = false
				break
			}
		}
		if !valid {
			out[i] = 0
			continue
		}
		switch kind {
		case IndexNDVI:
			num = float64(rows[BandNIR][i] - rows[BandRed][i])
			den = float64(rows[BandNIR][i] + rows[BandRed][i])
		case IndexNDWI:
			num = float64(rows[BandGreen][i] - rows[BandNIR][i])
			den = float64(rows[BandGreen][i] + rows[BandNIR][i])
		case IndexNDBI:
			num = float64(rows[BandSWIR][i] - rows[BandNIR][i])
			den = float64(rows[BandSWIR][i] + rows[BandNIR][i])
		case IndexBSI:
			sr := float64(rows[BandSWIR][i]) + float64(rows[BandRed][i])
			nb := float64(rows[BandNIR][i]) + float64(rows[BandBlue][i])
			num, den = sr-nb, sr+nb
		}
		if den == 0 {
			out[i] = 0
			continue
		}
		out[i] = scaleIndexValue(num / den)
	}
}

// 从对齐的波段文件计算byte定标指数，地理参考沿用第一个输入
func (g *GdalToolbox) ComputeScaledIndex(ctx context.Context, kind IndexKind, bandFiles map[Band]string, out string) (err error) {
	required, err := kind.RequiredBands()
	if err != nil {
		return
	}
	type input struct {
		ds   *gdal.Dataset
		band gdal.Band
	}
	var (
		inputs = make(map[Band]input, len(required))
		w, h   int
		first  *gdal.Dataset
	)
	defer func() {
		for _, in := range inputs {
			in.ds.Close()
		}
	}()
	for _, b := range required {
		path, ok := bandFiles[b]
		if !ok || path == "" {
			return fmt.Errorf("%w: band %s required for index %s", ErrBandMissing, b, kind)
		}
		ds, band, info, e := openSingleBand(path)
		if e != nil {
			return e
		}
		inputs[b] = input{ds: ds, band: band}
		if first == nil {
			first, w, h = ds, info.SizeX, info.SizeY
		} else if info.SizeX != w || info.SizeY != h {
			return ErrWrongTif
		}
	}
	gt, err := first.GeoTransform()
	if err != nil {
		return
	}
	ods, err := gdal.Create(gdal.GTiff, out, 1, gdal.Byte, w, h,
		gdal.CreationOption("COMPRESS=LZW", "TILED=YES"))
	if err != nil {
		return
	}
	defer ods.Close()
	if err = ods.SetGeoTransform(gt); err != nil {
		return
	}
	if err = ods.SetSpatialRef(first.SpatialRef()); err != nil {
		return
	}
	if err = ods.Bands()[0].SetNoData(0); err != nil {
		return
	}
	var (
		oband  = ods.Bands()[0]
		rows   = make(map[Band][]float32, len(required))
		outRow = make([]uint8, w*aggRowBatch)
	)
	for _, b := range required {
		rows[b] = make([]float32, w*aggRowBatch)
	}
	err = forEachRowBlock(ctx, h, aggRowBatch, func(yOff, nRows int) error {
		for _, b := range required {
			if e := inputs[b].band.IO(gdal.IORead, 0, yOff, rows[b][:w*nRows], w, nRows); e != nil {
				return ErrTifReadFailed
			}
		}
		scaledIndexRow(kind, rows, w*nRows, outRow)
		return oband.IO(gdal.IOWrite, 0, yOff, outRow[:w*nRows], w, nRows)
	})
	if err != nil {
		log.Error(g.logTag+"compute scaled index failed", zap.String("index", string(kind)), zap.Error(err))
		return
	}
	log.Info(g.logTag+"scaled index computed", zap.String("index", string(kind)), zap.String("out", out))
	return
}
