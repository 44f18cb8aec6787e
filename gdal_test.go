package sentinel2

import (
	"strings"
	"testing"
)

func TestNewGdalToolbox(t *testing.T) {
	g := NewGdalToolbox()
	if g == nil {
		t.Fatal()
	}
	if g.tmpDir != "" {
		t.Fatalf("default tmpDir should be empty, got %q", g.tmpDir)
	}
	g = NewGdalToolbox("/tmp/work")
	if g.tmpDir != "/tmp/work" {
		t.Fatalf("tmpDir not set: %q", g.tmpDir)
	}
}

func TestSpanToWkt(t *testing.T) {
	span := [4]float64{113.695688629, 115.075725846, 29.971802123, 31.360788281}
	wkt := SpanToWkt(span)
	if !strings.HasPrefix(wkt, "POLYGON((") {
		t.Fatalf("unexpected wkt: %s", wkt)
	}
	if strings.Count(wkt, ",") != 4 {
		t.Fatalf("ring should have 5 points: %s", wkt)
	}
	t.Log(wkt)
}
