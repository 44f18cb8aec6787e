package sentinel2

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachRowBlock(t *testing.T) {
	var blocks [][2]int
	err := forEachRowBlock(context.Background(), 10, 4, func(yOff, rows int) error {
		blocks = append(blocks, [2]int{yOff, rows})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 4}, {4, 4}, {8, 2}}, blocks)
}

// 取消后不再进入下一块
func TestForEachRowBlockCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := forEachRowBlock(ctx, 100, 10, func(yOff, rows int) error {
		calls++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)

	err = forEachRowBlock(ctx, 100, 10, func(yOff, rows int) error {
		t.Fatal("block fn should not run on canceled ctx")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
