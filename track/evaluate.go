package track

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Interpolator blends keyframe values. Cubic receives the two neighbours of the
// segment and may be nil, in which case bezier and hermite tracks blend linearly.
type Interpolator[T any] struct {
	Lerp  func(a, b T, f float32) T
	Cubic func(p0, p1, p2, p3 T, f float32) T
}

func catmullRom(p0, p1, p2, p3, f float32) float32 {
	f2 := f * f
	f3 := f2 * f
	return 0.5 * ((2 * p1) + (-p0+p2)*f + (2*p0-5*p1+4*p2-p3)*f2 + (-p0+3*p1-3*p2+p3)*f3)
}

var FloatInterp = Interpolator[float32]{
	Lerp: func(a, b float32, f float32) float32 {
		return a + (b-a)*f
	},
	Cubic: catmullRom,
}

var Vec3Interp = Interpolator[mgl32.Vec3]{
	Lerp: func(a, b mgl32.Vec3, f float32) mgl32.Vec3 {
		return a.Add(b.Sub(a).Mul(f))
	},
	Cubic: func(p0, p1, p2, p3 mgl32.Vec3, f float32) (r mgl32.Vec3) {
		for i := range r {
			r[i] = catmullRom(p0[i], p1[i], p2[i], p3[i], f)
		}
		return
	},
}

var Vec2Interp = Interpolator[mgl32.Vec2]{
	Lerp: func(a, b mgl32.Vec2, f float32) mgl32.Vec2 {
		return a.Add(b.Sub(a).Mul(f))
	},
}

var QuatInterp = Interpolator[mgl32.Quat]{
	Lerp: func(a, b mgl32.Quat, f float32) mgl32.Quat {
		if a.Dot(b) < 0 {
			b = b.Scale(-1)
		}
		return mgl32.QuatSlerp(a, b, f)
	},
}

var CompQuatInterp = Interpolator[CompQuat]{
	Lerp: func(a, b CompQuat, f float32) CompQuat {
		return CompressQuat(QuatInterp.Lerp(a.Quat(), b.Quat(), f))
	},
}

var FixedInterp = Interpolator[Fixed16]{
	Lerp: func(a, b Fixed16, f float32) Fixed16 {
		return FixedFromFloat(FloatInterp.Lerp(a.Float(), b.Float(), f))
	},
}

// Step never blends. Used for integer tracks (visibility, texture slots).
func Step[T any]() Interpolator[T] {
	return Interpolator[T]{Lerp: func(a, b T, f float32) T { return a }}
}

// Time is a sample position: ms into sequence Sequence, and the wall clock
// used for tracks bound to global sequences.
type Time struct {
	Sequence  int
	Ms        uint32
	WallClock uint32
	Globals   []uint32
}

func sample[T any](k Keys[T], interp Interpolation, ms uint32, in Interpolator[T]) T {
	n := len(k.Timestamps)
	if n == 1 || ms <= k.Timestamps[0] {
		return k.Values[0]
	}
	if ms >= k.Timestamps[n-1] {
		return k.Values[n-1]
	}
	b := sort.Search(n, func(i int) bool { return k.Timestamps[i] > ms })
	a := b - 1
	f := float32(ms-k.Timestamps[a]) / float32(k.Timestamps[b]-k.Timestamps[a])

	switch interp {
	case None:
		return k.Values[a]
	case Bezier, Hermite:
		if in.Cubic != nil {
			p0, p3 := a, b
			if a > 0 {
				p0 = a - 1
			}
			if b < n-1 {
				p3 = b + 1
			}
			return in.Cubic(k.Values[p0], k.Values[a], k.Values[b], k.Values[p3], f)
		}
	}
	return in.Lerp(k.Values[a], k.Values[b], f)
}

// Evaluate samples t. Empty tracks and unused sequences yield def.
func Evaluate[T any](t *Track[T], at Time, in Interpolator[T], def T) T {
	k := t.Keys(at.Sequence)
	if len(k.Timestamps) == 0 || len(k.Values) != len(k.Timestamps) {
		return def
	}
	ms := at.Ms
	if t.global {
		if t.globalSeq < len(at.Globals) && at.Globals[t.globalSeq] != 0 {
			ms = at.WallClock % at.Globals[t.globalSeq]
		} else {
			ms = 0
		}
	}
	return sample(k, t.Interpolation, ms, in)
}

func bakeTimes(duration uint32, fps int) []uint32 {
	step := 1000 / float64(fps)
	times := make([]uint32, 0, int(float64(duration)/step)+2)
	for i := 0; ; i++ {
		ts := uint32(math.Round(float64(i) * step))
		if ts >= duration {
			break
		}
		if len(times) == 0 || ts > times[len(times)-1] {
			times = append(times, ts)
		}
	}
	return append(times, duration)
}

// Bake resamples every used slot at fps frames per second into linear keys.
func Bake[T any](t *Track[T], durations, globals []uint32, fps int, in Interpolator[T], def T) Track[T] {
	result := *t
	result.Interpolation = Linear
	result.Sequences = make([]Keys[T], len(t.Sequences))
	if fps <= 0 {
		fps = 30
	}
	for seq, k := range t.Sequences {
		if len(k.Timestamps) == 0 {
			continue
		}
		var duration uint32
		if t.global {
			if t.globalSeq < len(globals) {
				duration = globals[t.globalSeq]
			}
		} else if seq < len(durations) {
			duration = durations[seq]
		}
		if duration == 0 {
			result.Sequences[seq] = k
			continue
		}
		times := bakeTimes(duration, fps)
		baked := Keys[T]{Timestamps: times, Values: make([]T, len(times))}
		for i, ts := range times {
			baked.Values[i] = sample(k, t.Interpolation, ts, in)
		}
		result.Sequences[seq] = baked
	}
	return result
}

// Map converts values while keeping the storage shape.
func Map[T, U any](t *Track[T], f func(T) U) Track[U] {
	result := Track[U]{
		Interpolation: t.Interpolation,
		global:        t.global,
		globalSeq:     t.globalSeq,
	}
	if t.Sequences != nil {
		result.Sequences = make([]Keys[U], len(t.Sequences))
	}
	for seq, k := range t.Sequences {
		if k.Timestamps == nil {
			continue
		}
		u := Keys[U]{Timestamps: append([]uint32(nil), k.Timestamps...), Values: make([]U, len(k.Values))}
		for i, v := range k.Values {
			u.Values[i] = f(v)
		}
		result.Sequences[seq] = u
	}
	return result
}
