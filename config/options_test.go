package config

import (
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := ParseOptions([]byte(`
export:
  merge_vertices: true
  version: Legion
import:
  time_import_method: bake
`))
	if err != nil {
		t.Fatal(err)
	}
	if opts.Export.Version != Legion {
		t.Errorf("version = %v, want Legion", opts.Export.Version)
	}
	if !opts.Export.MergeVertices {
		t.Errorf("merge_vertices not parsed")
	}
	if opts.Export.Scale != 1 || opts.Export.ForwardAxis != ForwardPosX {
		t.Errorf("defaults not resolved: %+v", opts.Export)
	}
	if opts.Import.TimeImportMethod != TimeImportBake || opts.Import.BakeFPS != 30 {
		t.Errorf("import options: %+v", opts.Import)
	}
}

func TestParseOptionsRejectsBadAxis(t *testing.T) {
	if _, err := ParseOptions([]byte("export:\n  forward_axis: +Z\n")); err == nil {
		t.Errorf("expected error for +Z forward axis")
	}
}

var versionTests = []struct {
	in   uint32
	out  Version
	okay bool
}{
	{264, WotLK, true},
	{265, Cata, true},
	{272, MoP, true},
	{274, Legion, true},
	{256, VersionUnknown, false},
}

func TestVersionFromM2(t *testing.T) {
	for _, test := range versionTests {
		v, ok := VersionFromM2(test.in)
		if v != test.out || ok != test.okay {
			t.Errorf("VersionFromM2(%d)=%v,%v; expected %v,%v", test.in, v, ok, test.out, test.okay)
		}
	}
}

func TestForwardAxisRotation(t *testing.T) {
	q := ForwardPosY.Rotation()
	v := q.Rotate([3]float32{0, 1, 0})
	if v[0] < 0.999 || v[1] > 0.001 || v[1] < -0.001 {
		t.Errorf("+Y forward should map to +X, got %v", v)
	}
}

func TestSetEncoding(t *testing.T) {
	defer SetEncoding("Windows 1252")
	for _, tc := range []struct {
		name string
		want *charmap.Charmap
	}{
		{"Windows 1251", charmap.Windows1251},
		{"windows-1250", charmap.Windows1250},
		{"CP1252", charmap.Windows1252},
		{"iso_8859_5", charmap.ISO8859_5},
	} {
		if err := SetEncoding(tc.name); err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if GetEncoding() != tc.want {
			t.Errorf("%s: got %v", tc.name, GetEncoding())
		}
	}
	if err := SetEncoding("klingon"); err == nil {
		t.Errorf("unknown encoding accepted")
	}
	if GetEncoding() != charmap.ISO8859_5 {
		t.Errorf("failed lookup changed the encoding to %v", GetEncoding())
	}
}
