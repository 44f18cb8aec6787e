package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	sentinel2 "github.com/mundialis/go-sentinel2"
	"github.com/mundialis/go-sentinel2/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	cfg        sentinel2.Config
	configFile string
	debug      bool

	// index subcommand
	idxKind  string
	idxOut   string
	idxBlue  string
	idxGreen string
	idxRed   string
	idxNIR   string
	idxSWIR  string
)

var rootCmd = &cobra.Command{
	Use:   "s2-ndvidiff",
	Short: "Calculates NDVI difference maps from Sentinel-2 data",
	Long: `s2-ndvidiff detects vegetation loss between two time intervals of
Sentinel-2 L2A imagery. Scenes of each interval are warped to an AOI-aligned
10 m grid, optionally cloud/shadow masked via the SCL band, temporally
aggregated, and the NDVI difference is thresholded and vectorized.

At least one of --output-dir, --loss-vector or --loss-raster is required.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetDebug(debug)
		if configFile == "" {
			return nil
		}
		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return applyConfigFile(cmd, &cfg, data)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.HasThreshold = cmd.Flags().Changed("threshold") || cfg.HasThreshold
		cfg.HasRelevantMin = cmd.Flags().Changed("relevant-min-ndvi") || cfg.HasRelevantMin
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		res, err := sentinel2.Run(ctx, cfg)
		if err != nil {
			return err
		}
		fmt.Printf("threshold: %g\nloss polygons: %d\n", res.Threshold, res.LossCount)
		if res.LossVector != "" {
			fmt.Printf("loss vector: %s\n", res.LossVector)
		}
		return nil
	},
	SilenceUsage: true,
}

// 配置文件只填补命令行未显式给出的项
// threshold与relevant_min_ndvi需区分"未给"与"给了零值"，用指针字段探测键是否出现
func applyConfigFile(cmd *cobra.Command, dst *sentinel2.Config, data []byte) error {
	fileCfg := sentinel2.Config{}
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	var opt struct {
		Threshold   *float64 `yaml:"threshold"`
		RelevantMin *float64 `yaml:"relevant_min_ndvi"`
	}
	_ = yaml.Unmarshal(data, &opt) // 语法错误已在上面返回
	mergeConfig(cmd, dst, fileCfg)
	if !cmd.Flags().Changed("threshold") && opt.Threshold != nil {
		dst.Threshold, dst.HasThreshold = *opt.Threshold, true
	}
	if !cmd.Flags().Changed("relevant-min-ndvi") && opt.RelevantMin != nil {
		dst.RelevantMin, dst.HasRelevantMin = *opt.RelevantMin, true
	}
	return nil
}

func mergeConfig(cmd *cobra.Command, dst *sentinel2.Config, src sentinel2.Config) {
	if !cmd.Flags().Changed("input-first") && src.InputFirst != "" {
		dst.InputFirst = src.InputFirst
	}
	if !cmd.Flags().Changed("input-second") && src.InputSecond != "" {
		dst.InputSecond = src.InputSecond
	}
	if !cmd.Flags().Changed("aoi") && src.AOI != "" {
		dst.AOI = src.AOI
	}
	if !cmd.Flags().Changed("output-dir") && src.OutputDir != "" {
		dst.OutputDir = src.OutputDir
	}
	if !cmd.Flags().Changed("loss-vector") && src.LossVector != "" {
		dst.LossVector = src.LossVector
	}
	if !cmd.Flags().Changed("loss-raster") && src.LossRaster != "" {
		dst.LossRaster = src.LossRaster
	}
	if !cmd.Flags().Changed("diff-map") && src.DiffMap != "" {
		dst.DiffMap = src.DiffMap
	}
	if !cmd.Flags().Changed("ndvi-first") && src.NDVIFirst != "" {
		dst.NDVIFirst = src.NDVIFirst
	}
	if !cmd.Flags().Changed("ndvi-second") && src.NDVISecond != "" {
		dst.NDVISecond = src.NDVISecond
	}
	if !cmd.Flags().Changed("rgbi-basename") && src.RGBIBasename != "" {
		dst.RGBIBasename = src.RGBIBasename
	}
	if !cmd.Flags().Changed("nprocs") && src.NProcs != 0 {
		dst.NProcs = src.NProcs
	}
	if !cmd.Flags().Changed("offset") && src.Offset != 0 {
		dst.Offset = src.Offset
	}
	if !cmd.Flags().Changed("cloud-mask") && src.CloudMask {
		dst.CloudMask = true
	}
	if !cmd.Flags().Changed("cloud-buffer") && src.CloudBuffer != 0 {
		dst.CloudBuffer = src.CloudBuffer
	}
	if !cmd.Flags().Changed("min-size") && src.MinSize != 0 {
		dst.MinSize = src.MinSize
	}
	if !cmd.Flags().Changed("method") && src.Method != "" {
		dst.Method = src.Method
	}
	if !cmd.Flags().Changed("agg-quantile") && src.AggQuantile != 0 {
		dst.AggQuantile = src.AggQuantile
	}
	if !cmd.Flags().Changed("tmp-dir") && src.TmpDir != "" {
		dst.TmpDir = src.TmpDir
	}
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Calculate a byte-scaled spectral index from band files",
	Long: `Computes one of NDVI, NDWI, NDBI or BSI from explicit band files and
writes a byte raster scaled as round(255*(1+index)/2).

Example:
  s2-ndvidiff index --index NDVI --red B04.tif --nir B08.tif --output ndvi.tif`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g := sentinel2.NewGdalToolbox(os.TempDir())
		files := map[sentinel2.Band]string{
			sentinel2.BandBlue:  idxBlue,
			sentinel2.BandGreen: idxGreen,
			sentinel2.BandRed:   idxRed,
			sentinel2.BandNIR:   idxNIR,
			sentinel2.BandSWIR:  idxSWIR,
		}
		return g.ComputeScaledIndex(ctx, sentinel2.IndexKind(idxKind), files, idxOut)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfg.InputFirst, "input-first", "", "input directory holding imagery of the first time interval")
	f.StringVar(&cfg.InputSecond, "input-second", "", "input directory holding imagery of the second time interval")
	f.StringVar(&cfg.AOI, "aoi", "", "vector file holding the AOI area/s (shp, GeoJSON or GPKG)")
	f.StringVar(&cfg.OutputDir, "output-dir", "", "output directory to write result files (RGBI/ndvi/loss rasters & vectors)")
	f.StringVar(&cfg.LossVector, "loss-vector", "", "output GPKG containing areas of NDVI loss")
	f.StringVar(&cfg.LossRaster, "loss-raster", "", "output raster containing areas of NDVI loss (intermediate result)")
	f.StringVar(&cfg.DiffMap, "diff-map", "", "output raster containing the NDVI difference map (intermediate result)")
	f.StringVar(&cfg.NDVIFirst, "ndvi-first", "", "NDVI raster of the first time interval (intermediate result)")
	f.StringVar(&cfg.NDVISecond, "ndvi-second", "", "NDVI raster of the second time interval (intermediate result)")
	f.StringVar(&cfg.RGBIBasename, "rgbi-basename", "", "basename to save aggregated RGBI composites")
	f.Float64Var(&cfg.Threshold, "threshold", 0, "threshold for the NDVI difference map; default is Q1-1.5*(Q3-Q1) of the map")
	f.Float64Var(&cfg.RelevantMin, "relevant-min-ndvi", 0, "only report loss where first-interval NDVI is at least this value")
	f.IntVar(&cfg.NProcs, "nprocs", 1, "number of parallel processes to use")
	f.IntVar(&cfg.Offset, "offset", 0, "offset to add to the Sentinel bands due to processing baseline (e.g. -1000)")
	f.IntVar(&cfg.CloudBuffer, "cloud-buffer", sentinel2.DefaultCloudBuffer, "buffer in pixels to account for inaccuracies in cloud/shadow masks")
	f.Float64Var(&cfg.MinSize, "min-size", 0, "minimum size of detected NDVI loss areas (in map units)")
	f.StringVar(&cfg.Method, "method", "minimum", "temporal aggregation method ("+strings.Join(sentinel2.AggMethods, ",")+")")
	f.Float64Var(&cfg.AggQuantile, "agg-quantile", 0.5, "quantile for method=quantile")
	f.StringVar(&cfg.TmpDir, "tmp-dir", "", "directory for intermediate files (default: system temp)")
	f.BoolVarP(&cfg.CloudMask, "cloud-mask", "c", false, "run cloud/shadow masking from the SCL band before aggregation")
	_ = rootCmd.MarkFlagRequired("input-first")
	_ = rootCmd.MarkFlagRequired("input-second")
	_ = rootCmd.MarkFlagRequired("aoi")

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "yaml config file presetting any flag")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	fi := indexCmd.Flags()
	fi.StringVar(&idxKind, "index", "NDVI", "index to be calculated (NDVI, NDWI, NDBI, BSI)")
	fi.StringVar(&idxOut, "output", "", "output raster file")
	fi.StringVar(&idxBlue, "blue", "", "blue band file")
	fi.StringVar(&idxGreen, "green", "", "green band file")
	fi.StringVar(&idxRed, "red", "", "red band file")
	fi.StringVar(&idxNIR, "nir", "", "NIR band file")
	fi.StringVar(&idxSWIR, "swir", "", "SWIR band file")
	_ = indexCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(indexCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}
