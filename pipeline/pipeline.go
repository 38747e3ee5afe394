// Package pipeline drives import and export: it reads game files through a
// BlobSource, hands snapshots to a scene adapter and writes validated files back.
package pipeline

import (
	"log"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/texture"
	"github.com/mogaika/wow_model_browser/utils"
	"github.com/mogaika/wow_model_browser/validate"
	"github.com/mogaika/wow_model_browser/vfs"
)

var ErrCanceled = errors.New("pipeline: canceled")

// ProgressReporter is told when a stage starts. Returning false cancels the run
// before anything is written.
type ProgressReporter interface {
	Stage(name string) bool
}

// ProgressFunc adapts a function to ProgressReporter.
type ProgressFunc func(name string) bool

func (f ProgressFunc) Stage(name string) bool {
	return f(name)
}

func stage(p ProgressReporter, name string) error {
	if p != nil && !p.Stage(name) {
		return errors.Wrapf(ErrCanceled, "at %s", name)
	}
	return nil
}

// File is one output blob and the path it goes to.
type File struct {
	Path string
	Data []byte
}

// commit writes files through a staging batch, so either all of them land or none.
func commit(files []File) ([]string, error) {
	var b vfs.Batch
	for _, f := range files {
		if err := b.Stage(f.Path, f.Data); err != nil {
			b.Discard()
			return nil, validate.IO(f.Path, err)
		}
	}
	paths := b.Paths()
	if err := b.Commit(); err != nil {
		return nil, validate.IO(filepath.Dir(files[0].Path), err)
	}
	return paths, nil
}

// classify keeps an already classified error and marks everything else as a format error.
func classify(path string, err error) error {
	if _, ok := validate.KindOf(err); ok {
		return err
	}
	return validate.Format(path, err)
}

func newDiagnostics(l *log.Logger) *validate.Diagnostics {
	return &validate.Diagnostics{Log: l}
}

// sceneToGame is the rotation and scale export applies, import applies the inverse.
func sceneToGame(axis config.ForwardAxis, scale float32) (mgl32.Quat, float32) {
	return axis.Rotation(), scale
}

func gameToScene(axis config.ForwardAxis, scale float32) (mgl32.Quat, float32) {
	return axis.Rotation().Conjugate(), 1 / scale
}

// Exporter writes models and world objects. Close releases the shared texture cache.
type Exporter struct {
	Progress ProgressReporter
	// Log receives verbose traces, DiagLog echoes every diagnostic
	Log     *utils.Logger
	DiagLog *log.Logger
}

func (e *Exporter) Close() error {
	texture.ReleaseShared()
	return nil
}
