package m2

import (
	"fmt"
)

// TrackRef is the shape-level view of a track of any value type.
type TrackRef interface {
	IsGlobal() bool
	GlobalSequence() int
	Empty() bool
	Resize(numSequences int)
	Remap(newIndex []int, numSequences int)
	Validate(sequenceDurations, globalDurations []uint32) error
}

// Tracks calls fn for every animated value of the model.
func (m *Model) Tracks(fn func(name string, t TrackRef)) {
	for i := range m.Bones {
		b := &m.Bones[i]
		fn(fmt.Sprintf("bone %d translation", i), &b.Translation)
		fn(fmt.Sprintf("bone %d rotation", i), &b.Rotation)
		fn(fmt.Sprintf("bone %d scale", i), &b.Scale)
	}
	for i := range m.Colors {
		fn(fmt.Sprintf("color %d", i), &m.Colors[i].Color)
		fn(fmt.Sprintf("color %d alpha", i), &m.Colors[i].Alpha)
	}
	for i := range m.TextureWeights {
		fn(fmt.Sprintf("texture weight %d", i), &m.TextureWeights[i].Weight)
	}
	for i := range m.TextureTransforms {
		t := &m.TextureTransforms[i]
		fn(fmt.Sprintf("texture transform %d translation", i), &t.Translation)
		fn(fmt.Sprintf("texture transform %d rotation", i), &t.Rotation)
		fn(fmt.Sprintf("texture transform %d scaling", i), &t.Scaling)
	}
	for i := range m.Attachments {
		fn(fmt.Sprintf("attachment %d", i), &m.Attachments[i].AnimateAttached)
	}
	for i := range m.Events {
		fn(fmt.Sprintf("event %d", i), &m.Events[i].Enabled)
	}
	for i := range m.Lights {
		l := &m.Lights[i]
		fn(fmt.Sprintf("light %d ambient color", i), &l.AmbientColor)
		fn(fmt.Sprintf("light %d ambient intensity", i), &l.AmbientIntensity)
		fn(fmt.Sprintf("light %d diffuse color", i), &l.DiffuseColor)
		fn(fmt.Sprintf("light %d diffuse intensity", i), &l.DiffuseIntensity)
		fn(fmt.Sprintf("light %d attenuation start", i), &l.AttenuationStart)
		fn(fmt.Sprintf("light %d attenuation end", i), &l.AttenuationEnd)
		fn(fmt.Sprintf("light %d visibility", i), &l.Visibility)
	}
	for i := range m.Cameras {
		c := &m.Cameras[i]
		fn(fmt.Sprintf("camera %d positions", i), &c.Positions)
		fn(fmt.Sprintf("camera %d target", i), &c.TargetPosition)
		fn(fmt.Sprintf("camera %d roll", i), &c.Roll)
		fn(fmt.Sprintf("camera %d fov", i), &c.FOVTrack)
	}
	for i := range m.Ribbons {
		r := &m.Ribbons[i]
		fn(fmt.Sprintf("ribbon %d color", i), &r.Color)
		fn(fmt.Sprintf("ribbon %d alpha", i), &r.Alpha)
		fn(fmt.Sprintf("ribbon %d height above", i), &r.HeightAbove)
		fn(fmt.Sprintf("ribbon %d height below", i), &r.HeightBelow)
		fn(fmt.Sprintf("ribbon %d tex slot", i), &r.TexSlot)
		fn(fmt.Sprintf("ribbon %d visibility", i), &r.Visibility)
	}
	for i := range m.Particles {
		p := &m.Particles[i]
		for _, ft := range p.floatTracks() {
			fn(fmt.Sprintf("particle %d %s", i, ft.name), ft.t)
		}
		fn(fmt.Sprintf("particle %d enabled", i), &p.EnabledIn)
	}
}
