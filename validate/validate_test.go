package validate

import (
	"testing"

	"github.com/pkg/errors"
)

func TestDiagnosticsSummary(t *testing.T) {
	var d Diagnostics
	d.Warnf(EmptyGeoset, "geoset %d has no triangles", 3)
	d.Infof(BoneSetSplit, "split")
	d.Warnf(MissingTexturePath, "texture 0")
	if got := d.Summary(); got != "exported with 2 warnings" {
		t.Errorf("Summary() = %q", got)
	}
	if d.Count(EmptyGeoset) != 1 || !d.Has(MissingTexturePath) || d.Has(PortalNonPlanar) {
		t.Errorf("unexpected counts: %v", d.Entries)
	}

	var nilDiag *Diagnostics
	nilDiag.Warnf(EmptyGeoset, "ignored")
	if nilDiag.Warnings() != 0 {
		t.Errorf("nil diagnostics counted warnings")
	}
}

func TestErrorKinds(t *testing.T) {
	base := errors.New("short read")
	err := errors.Wrap(Format("a.m2", base), "import")
	kind, ok := KindOf(err)
	if !ok || kind != KindFormat {
		t.Fatalf("KindOf = %v, %v", kind, ok)
	}
	if !errors.Is(err, base) {
		t.Errorf("cause lost")
	}
	// already classified errors keep their kind
	if kind, _ := KindOf(IO("b.m2", err)); kind != KindFormat {
		t.Errorf("reclassified to %v", kind)
	}
	if _, ok := KindOf(base); ok {
		t.Errorf("plain error has a kind")
	}
}
