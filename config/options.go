package config

import (
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type ForwardAxis string

const (
	ForwardPosY ForwardAxis = "+Y"
	ForwardNegY ForwardAxis = "-Y"
	ForwardPosX ForwardAxis = "+X"
	ForwardNegX ForwardAxis = "-X"
)

func (a ForwardAxis) Valid() bool {
	switch a {
	case ForwardPosY, ForwardNegY, ForwardPosX, ForwardNegX:
		return true
	}
	return false
}

// Rotation turns scene space so that the authored forward axis becomes game +X.
func (a ForwardAxis) Rotation() mgl32.Quat {
	switch a {
	case ForwardPosY:
		return mgl32.QuatRotate(-mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	case ForwardNegY:
		return mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	case ForwardNegX:
		return mgl32.QuatRotate(mgl32.DegToRad(180), mgl32.Vec3{0, 0, 1})
	}
	return mgl32.QuatIdent()
}

type TimeImportMethod string

const (
	TimeImportKeyframe TimeImportMethod = "keyframe"
	TimeImportBake     TimeImportMethod = "bake"
)

type ExportOptions struct {
	ForwardAxis   ForwardAxis `yaml:"forward_axis"`
	Scale         float32     `yaml:"scale"`
	SelectedOnly  bool        `yaml:"selected_only"`
	FillTextures  bool        `yaml:"fill_textures"`
	MergeVertices bool        `yaml:"merge_vertices"`
	Version       Version     `yaml:"version"`
}

type ImportOptions struct {
	ForwardAxis      ForwardAxis      `yaml:"forward_axis"`
	Scale            float32          `yaml:"scale"`
	FillTextures     bool             `yaml:"fill_textures"`
	TimeImportMethod TimeImportMethod `yaml:"time_import_method"`
	BakeFPS          int              `yaml:"bake_fps"`
}

// Options is the on-disk layout of an options file.
type Options struct {
	Export   ExportOptions `yaml:"export"`
	Import   ImportOptions `yaml:"import"`
	Encoding string        `yaml:"encoding,omitempty"`
}

func DefaultExportOptions() ExportOptions {
	o := ExportOptions{}
	o.Resolve()
	return o
}

func DefaultImportOptions() ImportOptions {
	o := ImportOptions{}
	o.Resolve()
	return o
}

// Resolve fills zero fields with defaults.
func (o *ExportOptions) Resolve() {
	if o.ForwardAxis == "" {
		o.ForwardAxis = ForwardPosX
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.Version == VersionUnknown {
		o.Version = WotLK
	}
}

func (o *ExportOptions) Validate() error {
	if !o.ForwardAxis.Valid() {
		return errors.Errorf("invalid forward axis %q", o.ForwardAxis)
	}
	if o.Scale <= 0 {
		return errors.Errorf("scale must be positive, got %v", o.Scale)
	}
	if !o.Version.Valid() {
		return errors.Errorf("invalid version %v", o.Version)
	}
	return nil
}

func (o *ImportOptions) Resolve() {
	if o.ForwardAxis == "" {
		o.ForwardAxis = ForwardPosX
	}
	if o.Scale <= 0 {
		o.Scale = 1
	}
	if o.TimeImportMethod == "" {
		o.TimeImportMethod = TimeImportKeyframe
	}
	if o.BakeFPS <= 0 {
		o.BakeFPS = 30
	}
}

func (o *ImportOptions) Validate() error {
	if !o.ForwardAxis.Valid() {
		return errors.Errorf("invalid forward axis %q", o.ForwardAxis)
	}
	if o.Scale <= 0 {
		return errors.Errorf("scale must be positive, got %v", o.Scale)
	}
	switch o.TimeImportMethod {
	case TimeImportKeyframe, TimeImportBake:
	default:
		return errors.Errorf("invalid time import method %q", o.TimeImportMethod)
	}
	return nil
}

// LoadOptions reads a yaml options file. Missing fields keep their defaults.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, errors.Wrapf(err, "config: read %s", path)
	}
	return ParseOptions(data)
}

func ParseOptions(data []byte) (Options, error) {
	var opts Options
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, errors.Wrap(err, "config: parse options")
	}
	opts.Export.Resolve()
	opts.Import.Resolve()
	if err := opts.Export.Validate(); err != nil {
		return Options{}, err
	}
	if err := opts.Import.Validate(); err != nil {
		return Options{}, err
	}
	if opts.Encoding != "" {
		if err := SetEncoding(opts.Encoding); err != nil {
			return Options{}, err
		}
	}
	return opts, nil
}
