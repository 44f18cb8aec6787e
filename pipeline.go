package sentinel2

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mundialis/go-sentinel2/log"
	"github.com/mundialis/go-sentinel2/utils"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var intervalNames = [2]string{"first", "second"}

// 配置检查，未设的项填入默认值
func (cfg *Config) Normalize() (err error) {
	if cfg.OutputDir == "" && cfg.LossVector == "" && cfg.LossRaster == "" {
		return ErrNoOutput
	}
	if cfg.NProcs == 0 {
		cfg.NProcs = 1
	}
	if cfg.NProcs < 0 {
		return ErrBadNProcs
	}
	if cfg.Method == "" {
		cfg.Method = "minimum"
	}
	if cfg.AggQuantile == 0 {
		cfg.AggQuantile = 0.5
	}
	if cfg.CloudBuffer == 0 {
		cfg.CloudBuffer = DefaultCloudBuffer
	}
	if cfg.TmpDir == "" {
		cfg.TmpDir = os.TempDir()
	}
	_, err = NewAggregator(cfg.Method, cfg.AggQuantile)
	return
}

// 某一时间区间的中间产物
type interval struct {
	cat    Catalog
	warped map[Band][]string // 波段 -> 各景对齐后的tif
	masks  []string          // 各景云/阴影掩膜（未启用时为空串）
	times  []float64         // 各景距首景的天数
	agg    map[Band]string   // 波段 -> 聚合tif
	ndvi   string
}

// NDVI差值检测流水线主入口
func Run(ctx context.Context, cfg Config) (res Result, err error) {
	if err = cfg.Normalize(); err != nil {
		return
	}
	if cfg.OutputDir != "" {
		if err = os.MkdirAll(cfg.OutputDir, os.ModePerm); err != nil {
			return res, fmt.Errorf("cannot create directory %s: %w", cfg.OutputDir, err)
		}
	}
	workDir := filepath.Join(cfg.TmpDir,
		fmt.Sprintf("ndvidiff_%s_%.8s", utils.GetNowTimeTag(), uuid.NewString()))
	if err = os.MkdirAll(workDir, os.ModePerm); err != nil {
		return
	}
	defer func() {
		// 对应原流程的atexit清理：工作目录整体移除
		err = multierr.Append(err, os.RemoveAll(workDir))
	}()
	g := NewGdalToolbox(workDir)
	agg, err := NewAggregator(cfg.Method, cfg.AggQuantile)
	if err != nil {
		return
	}

	// 波段需求：NDVI只要红与近红外，RGBI导出时补齐蓝绿
	bands := []Band{BandRed, BandNIR}
	if cfg.RGBIBasename != "" || cfg.OutputDir != "" {
		bands = []Band{BandBlue, BandGreen, BandRed, BandNIR}
	}
	catBands := bands
	if cfg.CloudMask {
		catBands = append(append([]Band{}, bands...), BandSCL)
	}

	var ivs [2]*interval
	for x, dir := range [2]string{cfg.InputFirst, cfg.InputSecond} {
		log.Info("importing imagery data", zap.String("dir", dir), zap.String("interval", intervalNames[x]))
		cat, e := LoadCatalog(dir, cfg.Offset, catBands)
		if e != nil {
			return res, e
		}
		ivs[x] = newInterval(cat)
	}
	srid, err := ivs[0].cat.Srid()
	if err != nil {
		return
	}
	srid2, err := ivs[1].cat.Srid()
	if err != nil {
		return
	}
	if srid2 != srid {
		return res, ErrMixedTiles
	}

	aoi, err := g.LoadAOI(cfg.AOI)
	if err != nil {
		return
	}
	grid, err := g.MakeGrid(aoi, srid, TargetRes)
	if err != nil {
		return
	}
	cutline, err := g.WriteCutline(aoi, srid)
	if err != nil {
		return
	}

	// 两个区间所有景、所有波段的warp与掩膜并行执行，worker数受nprocs限制
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.NProcs)
	for _, iv := range ivs {
		iv := iv
		for si := range iv.cat.Scenes {
			si := si
			for _, b := range catBands {
				b := b
				eg.Go(func() error {
					if e := egCtx.Err(); e != nil {
						return e
					}
					p, e := g.WarpSceneBand(iv.cat.Scenes[si], b, grid, cutline, workDir)
					if e != nil {
						return e
					}
					if b == BandSCL {
						maskOut := p[:len(p)-len(FILE_EXT_TIF)] + "_mask" + FILE_EXT_TIF
						if e = g.BuildCloudMask(p, cfg.CloudBuffer, grid, maskOut); e != nil {
							return e
						}
						iv.masks[si] = maskOut
					} else {
						iv.warped[b][si] = p
					}
					return nil
				})
			}
		}
	}
	if err = eg.Wait(); err != nil {
		return
	}

	// 各波段时序聚合
	eg, egCtx = errgroup.WithContext(ctx)
	eg.SetLimit(cfg.NProcs)
	for x, iv := range ivs {
		x, iv := x, iv
		log.Info("temporally aggregating spectral bands", zap.String("interval", intervalNames[x]),
			zap.String("method", cfg.Method))
		for _, b := range bands {
			b := b
			eg.Go(func() error {
				out := filepath.Join(workDir,
					fmt.Sprintf("s2_%s_%s_aggregated%s", intervalNames[x], b, FILE_EXT_TIF))
				var maskPaths []string
				if cfg.CloudMask {
					maskPaths = iv.masks
				}
				if e := g.AggregateBand(egCtx, iv.warped[b], maskPaths, iv.times,
					cfg.Offset, agg, grid, out); e != nil {
					return e
				}
				iv.agg[b] = out
				return nil
			})
		}
	}
	if err = eg.Wait(); err != nil {
		return
	}

	// 各区间聚合NDVI
	for x, iv := range ivs {
		log.Info("calculating aggregated NDVI", zap.String("interval", intervalNames[x]))
		iv.ndvi = filepath.Join(workDir, fmt.Sprintf("s2_%s_ndvi%s", intervalNames[x], FILE_EXT_TIF))
		if err = g.ComputeNDVI(ctx, iv.agg[BandRed], iv.agg[BandNIR], grid, iv.ndvi); err != nil {
			return
		}
	}

	log.Info("calculating NDVI difference and loss maps")
	diffTif := filepath.Join(workDir, "ndvi_diff"+FILE_EXT_TIF)
	if err = g.ComputeDiff(ctx, ivs[0].ndvi, ivs[1].ndvi, grid, diffTif); err != nil {
		return
	}
	thr := cfg.Threshold
	if !cfg.HasThreshold {
		var stats DiffStats
		if stats, err = g.DiffQuantiles(ctx, diffTif); err != nil {
			return
		}
		thr = LossThreshold(stats)
	}
	log.Info("NDVI loss threshold is set", zap.Float64("threshold", thr))
	res.Threshold = thr

	lossTif := filepath.Join(workDir, "ndvi_loss"+FILE_EXT_TIF)
	lossPx, err := g.ComputeLoss(ctx, diffTif, ivs[0].ndvi, thr,
		cfg.RelevantMin, cfg.HasRelevantMin, grid, lossTif)
	if err != nil {
		return
	}

	if err = ctx.Err(); err != nil {
		return
	}
	log.Info("vectorizing results")
	lossVec, err := g.PolygonizeLoss(lossTif, workDir)
	if err != nil {
		return
	}
	polygons, err := g.FilterLossPolygons(lossVec, cfg.MinSize)
	if err != nil {
		return
	}
	res.LossCount = len(polygons)
	if lossPx == 0 {
		log.Warn("no NDVI loss detected below threshold", zap.Float64("threshold", thr))
	}
	lossShp := filepath.Join(workDir, "ndvi_loss"+FILE_EXT_SHP)
	if err = g.WriteLossShapefile(lossShp, srid, polygons); err != nil {
		return
	}

	if err = ctx.Err(); err != nil {
		return
	}
	if err = exportResults(g, cfg, ivs, diffTif, lossTif, lossShp, &res); err != nil {
		return
	}
	log.Info("pipeline finished", zap.Float64("threshold", res.Threshold),
		zap.Int("lossPolygons", res.LossCount))
	return
}

func newInterval(cat Catalog) *interval {
	iv := &interval{
		cat:    cat,
		warped: make(map[Band][]string),
		masks:  make([]string, len(cat.Scenes)),
		times:  make([]float64, len(cat.Scenes)),
		agg:    make(map[Band]string),
	}
	first := cat.Scenes[0].Sensed
	for i, sc := range cat.Scenes {
		iv.times[i] = sc.Sensed.Sub(first).Hours() / 24
	}
	for _, b := range []Band{BandBlue, BandGreen, BandRed, BandNIR} {
		iv.warped[b] = make([]string, len(cat.Scenes))
	}
	return iv
}

// 结果导出：显式请求的单品 + output_dir下的整组产品
func exportResults(g *GdalToolbox, cfg Config, ivs [2]*interval,
	diffTif, lossTif, lossShp string, res *Result) (err error) {
	type job struct{ src, dst string }
	var jobs []job
	if cfg.NDVIFirst != "" {
		jobs = append(jobs, job{ivs[0].ndvi, cfg.NDVIFirst})
		res.NDVIFirst = cfg.NDVIFirst
	}
	if cfg.NDVISecond != "" {
		jobs = append(jobs, job{ivs[1].ndvi, cfg.NDVISecond})
		res.NDVISecond = cfg.NDVISecond
	}
	if cfg.DiffMap != "" {
		jobs = append(jobs, job{diffTif, cfg.DiffMap})
		res.DiffMap = cfg.DiffMap
	}
	if cfg.LossRaster != "" {
		jobs = append(jobs, job{lossTif, cfg.LossRaster})
		res.LossRaster = cfg.LossRaster
	}
	if cfg.OutputDir != "" {
		log.Info("exporting result maps", zap.String("dir", cfg.OutputDir))
		if res.NDVIFirst == "" {
			res.NDVIFirst = filepath.Join(cfg.OutputDir, "ndvi_first"+FILE_EXT_TIF)
			jobs = append(jobs, job{ivs[0].ndvi, res.NDVIFirst})
		}
		if res.NDVISecond == "" {
			res.NDVISecond = filepath.Join(cfg.OutputDir, "ndvi_second"+FILE_EXT_TIF)
			jobs = append(jobs, job{ivs[1].ndvi, res.NDVISecond})
		}
		if res.DiffMap == "" {
			res.DiffMap = filepath.Join(cfg.OutputDir, "ndvi_diff"+FILE_EXT_TIF)
			jobs = append(jobs, job{diffTif, res.DiffMap})
		}
		if res.LossRaster == "" {
			res.LossRaster = filepath.Join(cfg.OutputDir, "ndvi_loss"+FILE_EXT_TIF)
			jobs = append(jobs, job{lossTif, res.LossRaster})
		}
	}
	for _, j := range jobs {
		if err = g.ExportGTiff(j.src, j.dst); err != nil {
			return
		}
	}
	// RGBI分组：按红绿蓝近红外的次序合成
	if cfg.RGBIBasename != "" || cfg.OutputDir != "" {
		basename := cfg.RGBIBasename
		if basename == "" {
			basename = "rgbi_s2"
		}
		outDir := cfg.OutputDir
		if outDir == "" {
			outDir = filepath.Dir(cfg.LossVector)
		}
		for x, iv := range ivs {
			if iv.agg[BandBlue] == "" {
				continue
			}
			out := filepath.Join(outDir,
				fmt.Sprintf("%s_%s%s", basename, intervalNames[x], FILE_EXT_TIF))
			group := []string{iv.agg[BandRed], iv.agg[BandGreen], iv.agg[BandBlue], iv.agg[BandNIR]}
			if err = g.ExportComposite(group, out); err != nil {
				return
			}
			res.RGBI[x] = out
		}
	}
	// 损失图斑矢量：显式路径或output_dir下的gpkg
	vecOut := cfg.LossVector
	if vecOut == "" && cfg.OutputDir != "" {
		vecOut = filepath.Join(cfg.OutputDir, "ndvi_loss"+FILE_EXT_GPKG)
	}
	if vecOut != "" {
		if err = g.ShapefileToGpkg(lossShp, vecOut); err != nil {
			return
		}
		res.LossVector = vecOut
	}
	return
}
