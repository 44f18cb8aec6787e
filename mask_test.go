package sentinel2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSclMasked(t *testing.T) {
	masked := []uint8{SCL_SHADOW, SCL_CLOUD_MEDIUM, SCL_CLOUD_HIGH, SCL_CIRRUS}
	for _, c := range masked {
		assert.True(t, sclMasked(c), c)
	}
	// 植被4、裸土5、水6、雪11等保留
	for _, c := range []uint8{0, 1, 2, 4, 5, 6, 7, 11} {
		assert.False(t, sclMasked(c), c)
	}
}

func TestDilate(t *testing.T) {
	// 5x5中心单点，半径1膨胀出3x3
	w, h := 5, 5
	mask := make([]uint8, w*h)
	mask[2*w+2] = 1
	out := dilate(mask, w, h, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := uint8(0)
			if x >= 1 && x <= 3 && y >= 1 && y <= 3 {
				want = 1
			}
			assert.Equal(t, want, out[y*w+x], "pixel (%d,%d)", x, y)
		}
	}
}

func TestDilateEdge(t *testing.T) {
	// 角点膨胀不越界
	w, h := 3, 3
	mask := make([]uint8, w*h)
	mask[0] = 1
	out := dilate(mask, w, h, 1)
	assert.Equal(t, []uint8{1, 1, 0, 1, 1, 0, 0, 0, 0}, out)
}

func TestDilateZeroRadius(t *testing.T) {
	w, h := 4, 1
	mask := []uint8{0, 1, 0, 0}
	out := dilate(mask, w, h, 0)
	assert.Equal(t, mask, out)
}
