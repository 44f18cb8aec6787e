package main

import (
	"testing"

	sentinel2 "github.com/mundialis/go-sentinel2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyConfigFile(t *testing.T) {
	var c sentinel2.Config
	data := []byte("input_first: /data/a\nthreshold: -0.3\nrelevant_min_ndvi: 0.0\nmethod: average\n")
	require.NoError(t, applyConfigFile(rootCmd, &c, data))
	assert.Equal(t, "/data/a", c.InputFirst)
	assert.Equal(t, "average", c.Method)
	// threshold键出现即生效，哪怕配的是零值
	assert.True(t, c.HasThreshold)
	assert.Equal(t, -0.3, c.Threshold)
	assert.True(t, c.HasRelevantMin)
	assert.Equal(t, 0.0, c.RelevantMin)
}

func TestApplyConfigFileAbsentKeys(t *testing.T) {
	var c sentinel2.Config
	require.NoError(t, applyConfigFile(rootCmd, &c, []byte("input_first: /data/a\n")))
	assert.False(t, c.HasThreshold)
	assert.False(t, c.HasRelevantMin)
}

func TestApplyConfigFileBadYaml(t *testing.T) {
	var c sentinel2.Config
	assert.Error(t, applyConfigFile(rootCmd, &c, []byte(":\n :bad")))
}

// 命令行显式给出的标志优先于配置文件
// 注意Set会置Changed，须保持在本文件测试的最后
func TestApplyConfigFileFlagWins(t *testing.T) {
	require.NoError(t, rootCmd.Flags().Set("threshold", "-0.1"))
	require.NoError(t, rootCmd.Flags().Set("method", "median"))
	c := sentinel2.Config{Threshold: -0.1, Method: "median"}
	require.NoError(t, applyConfigFile(rootCmd, &c, []byte("threshold: -0.5\nmethod: average\n")))
	assert.Equal(t, -0.1, c.Threshold)
	assert.Equal(t, "median", c.Method)
}
