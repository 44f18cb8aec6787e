package sentinel2

import (
	"encoding/json"
	"time"
)

type AnyJson = json.RawMessage

type GdalGeo = []byte

// Sentinel-2波段标识
type Band string

const (
	BandBlue      Band = "B02"
	BandGreen     Band = "B03"
	BandRed       Band = "B04"
	BandNIR       Band = "B08"
	BandNIRNarrow Band = "B8A"
	BandSWIR      Band = "B11"
	BandSWIR2     Band = "B12"
	BandSCL       Band = "SCL"
)

// 单景Sentinel-2 L2A影像（.SAFE目录）
type Scene struct {
	Dir       string          // .SAFE目录路径
	Mission   string          // S2A/S2B/S2C
	Level     string          // MSIL2A
	Sensed    time.Time       // 成像时刻（UTC）
	Baseline  string          // 处理基线，如N0400
	Orbit     string          // 相对轨道，如R108
	Tile      string          // MGRS瓦片，如T32UNB
	BandFiles map[Band]string // 波段对应的jp2文件
}

// 时间区间的景集合
type Catalog struct {
	Scenes []Scene
	Offset int // 辐射偏移（基线>=N0400时一般为-1000）
}

// 处理网格：目标坐标系与对齐后的范围
type Grid struct {
	SRID int        // EPSG代码（UTM）
	Span [4]float64 // minx, maxx, miny, maxy
	Res  float64    // 像元大小（米）
}

func (g Grid) SizeX() int {
	return int((g.Span[1]-g.Span[0])/g.Res + 0.5)
}

func (g Grid) SizeY() int {
	return int((g.Span[3]-g.Span[2])/g.Res + 0.5)
}

// 检测出的NDVI损失图斑
type LossPolygon struct {
	Geom GdalGeo // WKB
	Area float64 // 图斑面积（地图单位）
}

// NDVI差值图的分位统计
type DiffStats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Quart1 float64
	Median float64
	Quart3 float64
}

// 流水线配置
type Config struct {
	InputFirst     string  `yaml:"input_first"`
	InputSecond    string  `yaml:"input_second"`
	AOI            string  `yaml:"aoi"`
	OutputDir      string  `yaml:"output_dir"`
	LossVector     string  `yaml:"loss_vector"`
	LossRaster     string  `yaml:"loss_raster"`
	DiffMap        string  `yaml:"diff_map"`
	NDVIFirst      string  `yaml:"ndvi_first"`
	NDVISecond     string  `yaml:"ndvi_second"`
	RGBIBasename   string  `yaml:"rgbi_basename"`
	Threshold      float64 `yaml:"threshold"`
	HasThreshold   bool    `yaml:"-"`
	RelevantMin    float64 `yaml:"relevant_min_ndvi"`
	HasRelevantMin bool    `yaml:"-"`
	NProcs         int     `yaml:"nprocs"`
	Offset         int     `yaml:"offset"`
	CloudMask      bool    `yaml:"cloud_mask"`
	CloudBuffer    int     `yaml:"cloud_buffer"`
	MinSize        float64 `yaml:"min_size"`
	Method         string  `yaml:"method"`
	AggQuantile    float64 `yaml:"agg_quantile"`
	TmpDir         string  `yaml:"tmp_dir"`
}

// 流水线结果文件路径
type Result struct {
	NDVIFirst  string
	NDVISecond string
	DiffMap    string
	LossRaster string
	LossVector string
	RGBI       [2]string
	Threshold  float64
	LossCount  int
}
