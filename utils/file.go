package utils

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	FILE_EXT_SHP = ".shp"
	FILE_EXT_CPG = ".cpg"

	UTF8  = "UTF8"
	UTF_8 = "UTF-8"
)

func GetFilenameWithoutExt(path string) (name string) {
	name = filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(path))
	return
}

// shp旁路cpg文件是否声明UTF-8编码
func ShpIsUtf8(shp string) bool {
	cpg := strings.TrimSuffix(shp, FILE_EXT_SHP) + FILE_EXT_CPG
	enc, err := os.ReadFile(cpg)
	if err != nil || len(enc) == 0 {
		return true // 无cpg时GDAL按UTF-8处理
	}
	encStr := strings.ToUpper(strings.TrimSpace(string(enc)))
	return encStr == UTF_8 || encStr == UTF8
}
