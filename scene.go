package sentinel2

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mundialis/go-sentinel2/log"

	"go.uber.org/zap"
)

const sceneTimeLayout = "20060102T150405"

// 解析.SAFE目录名，例如
// S2A_MSIL2A_20220604T102601_N0400_R108_T32UNB_20220604T164902.SAFE
func ParseSceneName(name string) (sc Scene, err error) {
	base := strings.TrimSuffix(name, FILE_EXT_SAFE)
	parts := strings.Split(base, "_")
	if len(parts) != 7 || !strings.HasPrefix(parts[0], "S2") {
		err = fmt.Errorf("%w: %s", ErrBadSceneName, name)
		return
	}
	sensed, e := time.Parse(sceneTimeLayout, parts[2])
	if e != nil {
		err = fmt.Errorf("%w: %s", ErrBadSceneName, name)
		return
	}
	sc = Scene{
		Mission:  parts[0],
		Level:    parts[1],
		Sensed:   sensed.UTC(),
		Baseline: parts[3],
		Orbit:    parts[4],
		Tile:     parts[5],
	}
	return
}

// 由MGRS瓦片名推出UTM带的EPSG代码，如T32UNB -> 32632
func TileSrid(tile string) (srid int, err error) {
	if len(tile) < 4 || tile[0] != 'T' {
		err = fmt.Errorf("%w: tile %q", ErrBadSceneName, tile)
		return
	}
	zone := int(tile[1]-'0')*10 + int(tile[2]-'0')
	if zone < 1 || zone > 60 {
		err = fmt.Errorf("%w: tile %q", ErrBadSceneName, tile)
		return
	}
	band := tile[3]
	if band < 'C' || band > 'X' || band == 'I' || band == 'O' {
		err = fmt.Errorf("%w: tile %q", ErrBadSceneName, tile)
		return
	}
	if band >= 'N' {
		srid = 32600 + zone
	} else {
		srid = 32700 + zone
	}
	return
}

// 基线>=N0400的景带辐射偏移，需要用offset选项抵消
func (sc Scene) NeedsOffset() bool {
	return sc.Baseline >= BaselineWithOffset
}

func findBandFile(sceneDir string, band Band) (path string, err error) {
	resDir, suffix := ResDir10m, "_10m.jp2"
	switch band {
	case BandSCL, BandNIRNarrow, BandSWIR, BandSWIR2:
		resDir, suffix = ResDir20m, "_20m.jp2"
	}
	pattern := filepath.Join(sceneDir, "GRANULE", "*", "IMG_DATA", resDir,
		"*_"+string(band)+suffix)
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		err = fmt.Errorf("%w: %s in %s", ErrBandMissing, band, sceneDir)
		return
	}
	path = matches[0]
	return
}

// 扫描输入目录，建立某一时间区间的景目录
// 目录内.SAFE与非.SAFE条目混杂视为错误（隐藏文件除外）
func LoadCatalog(dir string, offset int, bands []Band) (cat Catalog, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "S2") ||
			!strings.HasSuffix(e.Name(), FILE_EXT_SAFE) {
			err = fmt.Errorf("%w: %s", ErrMixedScenes, filepath.Join(dir, e.Name()))
			return
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		err = fmt.Errorf("%w: %s", ErrNoScenes, dir)
		return
	}
	sort.Strings(names)
	cat.Offset = offset
	for _, name := range names {
		sc, e := ParseSceneName(name)
		if e != nil {
			err = e
			return
		}
		sc.Dir = filepath.Join(dir, name)
		sc.BandFiles = make(map[Band]string, len(bands))
		for _, b := range bands {
			if sc.BandFiles[b], err = findBandFile(sc.Dir, b); err != nil {
				return
			}
		}
		if sc.NeedsOffset() && offset == 0 {
			log.Warn("scene baseline carries radiometric offset but no offset option set",
				zap.String("scene", name), zap.String("baseline", sc.Baseline))
		}
		cat.Scenes = append(cat.Scenes, sc)
	}
	log.Info("catalog loaded", zap.String("dir", dir), zap.Int("scenes", len(cat.Scenes)))
	return
}

// 目录中所有景须属于同一UTM带，返回该带的EPSG
func (c Catalog) Srid() (srid int, err error) {
	for i, sc := range c.Scenes {
		s, e := TileSrid(sc.Tile)
		if e != nil {
			err = e
			return
		}
		if i == 0 {
			srid = s
		} else if s != srid {
			err = fmt.Errorf("%w: %s", ErrMixedTiles, sc.Tile)
			return
		}
	}
	return
}
