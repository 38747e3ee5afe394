package wmo

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/utils"
	"github.com/mogaika/wow_model_browser/validate"
)

// GroupPath names group i of the root at rootPath.
func GroupPath(rootPath string, i int) string {
	base := strings.TrimSuffix(rootPath, ".wmo")
	base = strings.TrimSuffix(base, ".WMO")
	return fmt.Sprintf("%s_%03d.wmo", base, i)
}

type File struct {
	Path string
	Data []byte
}

// Write serializes the root and every group. Group names and descriptions are
// laid out in MOGN in group order.
func (w *WMO) Write(rootPath string) ([]File, error) {
	if len(w.Groups) != len(w.Root.Groups) {
		return nil, validate.Policyf("%d group files for %d group infos", len(w.Groups), len(w.Root.Groups))
	}
	for i, g := range w.Groups {
		if g == nil {
			return nil, validate.Policyf("group %d is missing", i)
		}
		if len(g.PolyFlags) != g.Triangles() || len(g.PolyMaterials) != g.Triangles() {
			return nil, validate.Policyf("group %d: %d triangle flags for %d triangles", i, len(g.PolyFlags), g.Triangles())
		}
	}
	mogn, names, descs := groupNames(&w.Root, w.Groups)
	files := []File{{Path: rootPath, Data: writeRoot(&w.Root, mogn, names)}}
	for i, g := range w.Groups {
		files = append(files, File{Path: GroupPath(rootPath, i), Data: writeGroup(g, names[i], descs[i])})
	}
	return files, nil
}

// Read loads a root and its groups through open.
func Read(rootPath string, open func(path string) ([]byte, error), log *utils.Logger, diag *validate.Diagnostics) (*WMO, error) {
	data, err := open(rootPath)
	if err != nil {
		return nil, validate.IO(rootPath, err)
	}
	root, err := ReadRoot(data, log, diag)
	if err != nil {
		return nil, validate.Format(rootPath, err)
	}
	names, err := rootChunk(data, fourccMOGN)
	if err != nil {
		return nil, validate.Format(rootPath, err)
	}

	w := &WMO{Root: *root}
	for i := range root.Groups {
		path := GroupPath(rootPath, i)
		gdata, err := open(path)
		if err != nil {
			return nil, validate.IO(path, err)
		}
		g, err := ReadGroup(gdata, names, log, diag)
		if err != nil {
			return nil, validate.Format(path, errors.Wrapf(err, "group %d", i))
		}
		w.Groups = append(w.Groups, g)
	}
	return w, nil
}
