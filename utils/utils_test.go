package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestB2SAndS2B(t *testing.T) {
	s := "T32UNB_20220604T102601_B04_10m.jp2"
	if B2S(S2B(s)) != s {
		t.Fatal("roundtrip mismatch")
	}
}

func TestGetFilenameWithoutExt(t *testing.T) {
	if name := GetFilenameWithoutExt("/data/out/ndvi_diff.tif"); name != "ndvi_diff" {
		t.Fatalf("got %q", name)
	}
	if name := GetFilenameWithoutExt("aoi.shp"); name != "aoi" {
		t.Fatalf("got %q", name)
	}
}

func TestShpIsUtf8(t *testing.T) {
	dir := t.TempDir()
	shp := filepath.Join(dir, "aoi.shp")
	if !ShpIsUtf8(shp) {
		t.Fatal("missing cpg should default to UTF-8")
	}
	if err := os.WriteFile(filepath.Join(dir, "aoi.cpg"), []byte("UTF-8\n"), os.ModePerm); err != nil {
		t.Fatal(err)
	}
	if !ShpIsUtf8(shp) {
		t.Fatal("UTF-8 cpg not recognized")
	}
	if err := os.WriteFile(filepath.Join(dir, "aoi.cpg"), []byte("GBK"), os.ModePerm); err != nil {
		t.Fatal(err)
	}
	if ShpIsUtf8(shp) {
		t.Fatal("GBK cpg reported as UTF-8")
	}
}

func TestGbkRoundtrip(t *testing.T) {
	s := "图斑"
	gbk, err := Utf8StrToGbk(s)
	if err != nil {
		t.Fatal(err)
	}
	back, err := GbkStrToUtf8(gbk)
	if err != nil {
		t.Fatal(err)
	}
	if back != s {
		t.Fatalf("roundtrip mismatch: %q", back)
	}
}
