package sentinel2

import (
	"os"
	"path/filepath"

	"github.com/mundialis/go-sentinel2/log"

	gdal "github.com/airbusgeo/godal"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 结果栅格落盘：LZW压缩、分块、5级金字塔（对应r.out.gdal -cm的导出配置）
func (g *GdalToolbox) ExportGTiff(src, out string) (err error) {
	sds, err := gdal.Open(src, gdal.RasterOnly())
	if err != nil {
		log.Error(g.logTag+"open raster failed", zap.String("src", src), zap.Error(err))
		return ErrInvalidTif
	}
	defer sds.Close()
	ods, err := sds.Translate(out, []string{"-co", "COMPRESS=LZW", "-co", "TILED=YES"})
	if err != nil {
		log.Error(g.logTag+"failed to translate raster", zap.String("out", out), zap.Error(err))
		return
	}
	defer ods.Close()
	if err = ods.BuildOverviews(gdal.Levels(2, 4, 8, 16, 32)); err != nil {
		log.Error(g.logTag+"failed to build overviews", zap.String("out", out), zap.Error(err))
		return
	}
	log.Info(g.logTag+"raster exported", zap.String("out", out))
	return
}

// 多个单波段tif合成一个多波段GTiff（RGBI分组导出）
func (g *GdalToolbox) ExportComposite(bandTifs []string, out string) (err error) {
	if len(bandTifs) == 0 {
		return ErrEmptyTif
	}
	tmpVrt := filepath.Join(g.tmpDir, "rgbi_"+uuid.NewString()+".vrt")
	defer os.Remove(tmpVrt)
	vds, err := gdal.BuildVRT(tmpVrt, bandTifs, []string{"-separate", "-overwrite"})
	if err != nil {
		log.Error(g.logTag+"failed to build vrt", zap.Error(err))
		return
	}
	defer vds.Close()
	ods, err := vds.Translate(out, []string{"-co", "COMPRESS=LZW", "-co", "TILED=YES"})
	if err != nil {
		log.Error(g.logTag+"failed to translate vrt", zap.Error(err))
		return
	}
	defer ods.Close()
	if err = ods.BuildOverviews(gdal.Levels(2, 4, 8, 16, 32)); err != nil {
		log.Error(g.logTag+"failed to build overviews", zap.String("out", out), zap.Error(err))
		return
	}
	log.Info(g.logTag+"composite exported", zap.String("out", out), zap.Int("bands", len(bandTifs)))
	return
}
