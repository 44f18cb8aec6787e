package sentinel2

const (
	FILE_EXT_SHP    = ".shp"
	FILE_EXT_CPG    = ".cpg"
	FILE_EXT_JSON   = ".json"
	FILE_EXT_GPKG   = ".gpkg"
	FILE_EXT_TIF    = ".tif"
	FILE_EXT_SAFE   = ".SAFE"
	SHAPE_ENCODING  = "UTF-8"
	UTF8_ENC        = "UTF8"
	ZH_ENC          = "GBK"
	SHP_DRIVER_NAME = "ESRI Shapefile"
	GPKG_DRIVER     = "GPKG"
	ENCODING_OPTION = "ENCODING=" + SHAPE_ENCODING
	OO_ENCODING     = "ENCODING=" + ZH_ENC
	UNIVERSAL_SRID  = 4326
	GEOJSON_SRID    = 4326

	// 目标分辨率（米），与g.region res=10对齐
	TargetRes = 10.0

	// 波段文件名模式所在的分辨率目录
	ResDir10m = "R10m"
	ResDir20m = "R20m"

	// SCL分类值（L2A scene classification）
	SCL_NO_DATA      = 0
	SCL_SHADOW       = 3
	SCL_CLOUD_MEDIUM = 8
	SCL_CLOUD_HIGH   = 9
	SCL_CIRRUS       = 10

	// 默认云/阴影掩膜缓冲（像素）
	DefaultCloudBuffer = 5

	// 聚合输出的无效值
	AggNoData = -9999

	// 处理基线>=N0400时Sentinel-2的辐射偏移
	BaselineWithOffset = "N0400"
	BaselineOffset     = -1000

	SHP_FIELD_VALUE = "value"
	SHP_FIELD_AREA  = "area_sqm"

	TMP_GEOJSON = "aoi_%s.json"

	LossLayerName = "ndvi_loss"
)

// t.rast.mosaic的聚合方法选项
var AggMethods = []string{
	"average", "count", "median", "mode", "minimum", "min_raster",
	"maximum", "max_raster", "stddev", "range", "sum", "variance",
	"diversity", "slope", "offset", "detcoeff", "quart1", "quart3",
	"perc90", "quantile", "skewness", "kurtosis",
}
