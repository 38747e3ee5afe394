package validate

import (
	"fmt"
	"log"
)

type Level int

const (
	LevelInfo Level = iota
	LevelWarning
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

type Category string

const (
	BoneInfluenceOverflow Category = "bone-influence-overflow"
	EmptyGeoset           Category = "empty-geoset"
	MissingTexturePath    Category = "missing-texture-path"
	UnresolvedAlias       Category = "unresolved-alias"
	PortalNonPlanar       Category = "portal-non-planar"
	BSPDepthExceeded      Category = "bsp-depth-exceeded"
	DoodadOutOfSet        Category = "doodad-out-of-set"

	TrackDecode      Category = "track-decode"
	ShaderUnknown    Category = "shader-unknown"
	SequenceDuration Category = "sequence-duration"
	BoneOrder        Category = "bone-order"
	KeyBoneDuplicate Category = "key-bone-duplicate"
	BoneSetSplit     Category = "bone-set-split"
	UVTransformLimit Category = "uv-transform-limit"
	UnknownChunk     Category = "unknown-chunk"
	MissingSidecar   Category = "missing-sidecar"
	WeightNormalized Category = "weight-normalized"
	DegenerateFace   Category = "degenerate-face"
	VariationChain   Category = "variation-chain"
)

// Sink receives diagnostics from the codec core.
type Sink interface {
	Push(level Level, category Category, message string)
}

type Entry struct {
	Level    Level    `json:"level" yaml:"level"`
	Category Category `json:"category" yaml:"category"`
	Message  string   `json:"message" yaml:"message"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%s [%s] %s", e.Level, e.Category, e.Message)
}

// Diagnostics collects entries in push order. A nil *Diagnostics drops everything.
type Diagnostics struct {
	Entries []Entry
	// Log echoes every pushed entry when set
	Log *log.Logger
}

func (d *Diagnostics) Push(level Level, category Category, message string) {
	if d == nil {
		return
	}
	e := Entry{Level: level, Category: category, Message: message}
	d.Entries = append(d.Entries, e)
	if d.Log != nil {
		d.Log.Println(e.String())
	}
}

func (d *Diagnostics) Warnf(category Category, format string, args ...interface{}) {
	d.Push(LevelWarning, category, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) Infof(category Category, format string, args ...interface{}) {
	d.Push(LevelInfo, category, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) Warnings() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, e := range d.Entries {
		if e.Level == LevelWarning {
			n++
		}
	}
	return n
}

func (d *Diagnostics) Count(category Category) int {
	if d == nil {
		return 0
	}
	n := 0
	for _, e := range d.Entries {
		if e.Category == category {
			n++
		}
	}
	return n
}

func (d *Diagnostics) Has(category Category) bool {
	return d.Count(category) != 0
}

// Merge appends all entries of other.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if d == nil || other == nil {
		return
	}
	for _, e := range other.Entries {
		d.Push(e.Level, e.Category, e.Message)
	}
}

func (d *Diagnostics) Summary() string {
	n := d.Warnings()
	if n == 1 {
		return "exported with 1 warning"
	}
	return fmt.Sprintf("exported with %d warnings", n)
}
