package config

import (
	"strings"

	"github.com/pkg/errors"
)

// Version is the game client expansion a file is read or written for.
// Values are totally ordered, schemas gate fields with min/max versions.
type Version int

const (
	VersionUnknown Version = iota
	WotLK
	Cata
	MoP
	WoD
	Legion
	BfA
	SL
	DF
)

const (
	VersionFirst = WotLK
	VersionLast  = DF
)

var versionNames = [...]string{
	VersionUnknown: "unknown",
	WotLK:          "WotLK",
	Cata:           "Cata",
	MoP:            "MoP",
	WoD:            "WoD",
	Legion:         "Legion",
	BfA:            "BfA",
	SL:             "SL",
	DF:             "DF",
}

func (v Version) String() string {
	if v < 0 || int(v) >= len(versionNames) {
		return "unknown"
	}
	return versionNames[v]
}

func (v Version) Valid() bool {
	return v >= VersionFirst && v <= VersionLast
}

// Chunked reports whether M2 files of this version are wrapped into MD21.
func (v Version) Chunked() bool {
	return v >= Legion
}

func ParseVersion(s string) (Version, error) {
	for v := VersionFirst; v <= VersionLast; v++ {
		if strings.EqualFold(versionNames[v], s) {
			return v, nil
		}
	}
	return VersionUnknown, errors.Errorf("unknown client version %q", s)
}

func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// M2Version is the number stored after the MD20 magic.
func (v Version) M2Version() uint32 {
	switch {
	case v >= Legion:
		return 274
	case v >= MoP:
		return 272
	case v == Cata:
		return 265
	default:
		return 264
	}
}

// VersionFromM2 maps the header number to the oldest client that writes it.
func VersionFromM2(n uint32) (Version, bool) {
	switch {
	case n >= 264 && n < 265:
		return WotLK, true
	case n >= 265 && n < 272:
		return Cata, true
	case n >= 272 && n < 274:
		return MoP, true
	case n >= 274 && n <= 276:
		return Legion, true
	}
	return VersionUnknown, false
}

const WMOVersion = 17
