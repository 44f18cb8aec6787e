package sentinel2

import "errors"

var (
	ErrGdalDriverCreate = errors.New("gdal driver create err")
	ErrGdalDriverOpen   = errors.New("gdal driver open err")
	ErrVoidSrid         = errors.New("gdal vector with void srid")
	ErrInvalidTif       = errors.New("invalid tif")
	ErrWrongTif         = errors.New("malformed tif")
	ErrTifReadFailed    = errors.New("tif read failed")
	ErrEmptyTif         = errors.New("empty tif")
	ErrEmptyAOI         = errors.New("AOI is empty")
	ErrNoScenes         = errors.New("no Sentinel-2 scenes in input dir")
	ErrMixedScenes      = errors.New("both S2 and non-S2 entries in input dir")
	ErrBadSceneName     = errors.New("unrecognized Sentinel-2 scene name")
	ErrBandMissing      = errors.New("required band file missing in scene")
	ErrMixedTiles       = errors.New("scenes from different UTM zones")
	ErrBadAggMethod     = errors.New("unknown aggregation method")
	ErrNoValidPixels    = errors.New("no valid pixels in difference map")
	ErrNoOutput         = errors.New("no output requested: need output dir, loss vector or loss raster")
	ErrBadNProcs        = errors.New("nprocs must be positive")
)
