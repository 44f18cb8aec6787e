package sentinel2

import (
	"github.com/mundialis/go-sentinel2/log"

	gdal "github.com/airbusgeo/godal"
	"go.uber.org/zap"
)

// SCL分类值是否属于云/阴影
func sclMasked(class uint8) bool {
	switch class {
	case SCL_SHADOW, SCL_CLOUD_MEDIUM, SCL_CLOUD_HIGH, SCL_CIRRUS:
		return true
	}
	return false
}

// 从warp到处理网格的SCL波段生成云/阴影掩膜（1=剔除，0=保留）
// bufferPx为方形结构元的膨胀半径，用于吸收掩膜边缘误差
func (g *GdalToolbox) BuildCloudMask(sclTif string, bufferPx int, grid Grid, out string) (err error) {
	buf, info, err := g.ParseRaster(sclTif)
	if err != nil {
		return
	}
	w, h := info.SizeX, info.SizeY
	if w != grid.SizeX() || h != grid.SizeY() {
		return ErrWrongTif
	}
	mask := make([]uint8, w*h)
	cnt := 0
	for i, v := range buf {
		if sclMasked(uint8(v)) {
			mask[i] = 1
			cnt++
		}
	}
	if bufferPx > 0 && cnt > 0 {
		mask = dilate(mask, w, h, bufferPx)
	}
	ds, err := createGridTif(out, grid, gdal.Byte, 0)
	if err != nil {
		return
	}
	defer ds.Close()
	if err = ds.Bands()[0].IO(gdal.IOWrite, 0, 0, mask, w, h); err != nil {
		log.Error(g.logTag+"write cloud mask failed", zap.String("out", out), zap.Error(err))
		err = ErrTifReadFailed
		return
	}
	log.Info(g.logTag+"cloud mask built", zap.String("scl", sclTif),
		zap.Int("maskedPx", cnt), zap.Int("bufferPx", bufferPx))
	return
}

// 方形结构元二值膨胀，水平、垂直两次一维最大值滤波等价实现
func dilate(mask []uint8, w, h, r int) []uint8 {
	tmp := make([]uint8, len(mask))
	for y := 0; y < h; y++ {
		row := mask[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			lo, hi := x-r, x+r
			if lo < 0 {
				lo = 0
			}
			if hi >= w {
				hi = w - 1
			}
			var m uint8
			for i := lo; i <= hi; i++ {
				if row[i] > m {
					m = 1
					break
				}
			}
			tmp[y*w+x] = m
		}
	}
	out := make([]uint8, len(mask))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			lo, hi := y-r, y+r
			if lo < 0 {
				lo = 0
			}
			if hi >= h {
				hi = h - 1
			}
			var m uint8
			for i := lo; i <= hi; i++ {
				if tmp[i*w+x] > m {
					m = 1
					break
				}
			}
			out[y*w+x] = m
		}
	}
	return out
}
