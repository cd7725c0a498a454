// Package testdata builds synthetic hand-tracking sessions for tests.
package testdata

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/mjolnir/internal/detector"
	"github.com/ayusman/mjolnir/internal/hand"
	"github.com/ayusman/mjolnir/internal/replay"
)

// Throw scripts one throw: an open hand at Start, a fist that moves at a
// constant Velocity for Hold frames, then an open hand.
type Throw struct {
	Side     hand.Side
	Start    mgl64.Vec3
	Velocity mgl64.Vec3
	// Spin rotates the hand about Y in radians per second while gripping.
	Spin  float64
	Hz    float64
	Lead  int
	Hold  int
	Trail int
	// StartTime offsets every timestamp.
	StartTime float64
}

// OverhandThrow is a right-handed forward throw at 3 m/s sampled at 60 Hz.
func OverhandThrow() Throw {
	return Throw{
		Side:     hand.Right,
		Start:    mgl64.Vec3{0.2, 1.4, -0.3},
		Velocity: mgl64.Vec3{0, 0, -3},
		Hz:       60,
		Lead:     3,
		Hold:     12,
		Trail:    3,
	}
}

// Frames renders the throw as one single-hand frame per sample.
func (t Throw) Frames() [][]hand.Skeleton {
	dt := 1 / t.Hz
	frames := make([][]hand.Skeleton, 0, t.Lead+t.Hold+t.Trail)

	emit := func(s hand.Skeleton, i int, q mgl64.Quat) {
		s.Timestamp = t.StartTime + float64(i)*dt
		s.Orientation = q
		frames = append(frames, []hand.Skeleton{s})
	}

	i := 0
	for ; i < t.Lead; i++ {
		emit(detector.OpenHandSkeleton(t.Side, t.Start), i, mgl64.QuatIdent())
	}

	pos := t.Start
	q := mgl64.QuatIdent()
	for k := 0; k < t.Hold; k++ {
		elapsed := float64(k) * dt
		pos = t.Start.Add(t.Velocity.Mul(elapsed))
		q = mgl64.QuatRotate(t.Spin*elapsed, mgl64.Vec3{0, 1, 0})
		emit(detector.FistSkeleton(t.Side, pos), i, q)
		i++
	}

	for k := 0; k < t.Trail; k++ {
		emit(detector.OpenHandSkeleton(t.Side, pos), i, q)
		i++
	}
	return frames
}

// WriteSession writes frames to a session file at path.
func WriteSession(path string, frames [][]hand.Skeleton) error {
	w, err := replay.Create(path)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := w.Write(f); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
