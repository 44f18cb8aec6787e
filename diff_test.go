package sentinel2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedQuantile(t *testing.T) {
	sorted := []float64{-0.4, -0.2, -0.1, 0, 0.1, 0.2, 0.3, 0.4, 0.5}
	assert.InDelta(t, -0.1, sortedQuantile(sorted, 0.25), 1e-9)
	assert.InDelta(t, 0.1, sortedQuantile(sorted, 0.5), 1e-9)
	assert.InDelta(t, 0.3, sortedQuantile(sorted, 0.75), 1e-9)
	assert.Equal(t, -0.4, sortedQuantile(sorted, 0))
	assert.Equal(t, 0.5, sortedQuantile(sorted, 1))
	assert.Equal(t, 7.0, sortedQuantile([]float64{7}, 0.75))
}

func TestLossThreshold(t *testing.T) {
	stats := DiffStats{Quart1: -0.1, Quart3: 0.3}
	// Q1 - 1.5*(Q3-Q1) = -0.1 - 1.5*0.4 = -0.7
	assert.InDelta(t, -0.7, LossThreshold(stats), 1e-9)

	// 无离散度时阈值即Q1
	flat := DiffStats{Quart1: 0.2, Quart3: 0.2}
	assert.InDelta(t, 0.2, LossThreshold(flat), 1e-9)
}
