package sentinel2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredBands(t *testing.T) {
	b, err := IndexNDVI.RequiredBands()
	assert.NoError(t, err)
	assert.Equal(t, []Band{BandRed, BandNIR}, b)

	b, err = IndexBSI.RequiredBands()
	assert.NoError(t, err)
	assert.Len(t, b, 4)

	_, err = IndexKind("EVI").RequiredBands()
	assert.Error(t, err)
}

func TestNdviRow(t *testing.T) {
	nir := []float32{8000, 4000, 0, AggNoData, 1000}
	red := []float32{2000, 4000, 0, 1000, AggNoData}
	out := make([]float32, 5)
	ndviRow(nir, red, out)
	assert.InDelta(t, 0.6, out[0], 1e-6)
	assert.InDelta(t, 0.0, out[1], 1e-6)
	// 零分母与无效输入均输出无效值
	assert.EqualValues(t, AggNoData, out[2])
	assert.EqualValues(t, AggNoData, out[3])
	assert.EqualValues(t, AggNoData, out[4])
}

func TestScaleIndexValue(t *testing.T) {
	assert.EqualValues(t, 128, scaleIndexValue(0))
	assert.EqualValues(t, 255, scaleIndexValue(1))
	// 0保留为无效值，下限钳到1
	assert.EqualValues(t, 1, scaleIndexValue(-1))
	assert.EqualValues(t, 255, scaleIndexValue(2))
}

func TestScaledIndexRow(t *testing.T) {
	rows := map[Band][]float32{
		BandRed: {2000, 0, 3000},
		BandNIR: {8000, 5000, 3000},
	}
	out := make([]uint8, 3)
	scaledIndexRow(IndexNDVI, rows, 3, out)
	// ndvi=0.6 -> round(255*1.6/2)=204
	assert.EqualValues(t, 204, out[0])
	// 红波段为0视为无数据
	assert.EqualValues(t, 0, out[1])
	// ndvi=0 -> 128
	assert.EqualValues(t, 128, out[2])

	rows = map[Band][]float32{
		BandGreen: {3000, 1000},
		BandNIR:   {1000, 3000},
	}
	out = make([]uint8, 2)
	scaledIndexRow(IndexNDWI, rows, 2, out)
	// ndwi=0.5 -> round(255*1.5/2)=191
	assert.EqualValues(t, 191, out[0])
	// ndwi=-0.5 -> round(255*0.5/2)=64
	assert.EqualValues(t, 64, out[1])
}
