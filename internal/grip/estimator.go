package grip

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Estimator defaults. Speeds are in metres and radians per second.
const (
	DefaultStride             = 3
	DefaultMaxPairs           = 3
	DefaultMinPairInterval    = 0.02
	DefaultMaxLinearSpeed     = 15.0
	DefaultAngularLookback    = 6
	DefaultMinAngularInterval = 0.05
	DefaultMinAngle           = 0.05
	DefaultMaxAngularSpeed    = 3 * math.Pi
)

// negligibleAxis is the vector-part length below which a relative rotation
// has no usable axis.
const negligibleAxis = 1e-6

// UpAxis is the spin axis used when a rotation axis cannot be recovered.
var UpAxis = mgl64.Vec3{0, 1, 0}

// EstimatorConfig holds the release estimator parameters.
type EstimatorConfig struct {
	// Stride is the sample spacing between the two ends of a velocity pair.
	Stride int `yaml:"stride"`
	// MaxPairs is the number of pairs sampled backward from the newest sample.
	MaxPairs int `yaml:"max_pairs"`
	// MinPairInterval discards pairs whose time delta is this short or shorter.
	MinPairInterval float64 `yaml:"min_pair_interval"`
	// MaxLinearSpeed caps the linear velocity magnitude.
	MaxLinearSpeed float64 `yaml:"max_linear_speed"`
	// AngularLookback is how many samples the rotation is measured across.
	AngularLookback int `yaml:"angular_lookback"`
	// MinAngularInterval and MinAngle reject rotations treated as noise.
	MinAngularInterval float64 `yaml:"min_angular_interval"`
	MinAngle           float64 `yaml:"min_angle"`
	// MaxAngularSpeed caps the angular velocity magnitude.
	MaxAngularSpeed float64 `yaml:"max_angular_speed"`
}

// DefaultEstimatorConfig returns the documented estimator defaults.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Stride:             DefaultStride,
		MaxPairs:           DefaultMaxPairs,
		MinPairInterval:    DefaultMinPairInterval,
		MaxLinearSpeed:     DefaultMaxLinearSpeed,
		AngularLookback:    DefaultAngularLookback,
		MinAngularInterval: DefaultMinAngularInterval,
		MinAngle:           DefaultMinAngle,
		MaxAngularSpeed:    DefaultMaxAngularSpeed,
	}
}

// withDefaults replaces non-positive fields with their defaults.
func (c EstimatorConfig) withDefaults() EstimatorConfig {
	d := DefaultEstimatorConfig()
	if c.Stride <= 0 {
		c.Stride = d.Stride
	}
	if c.MaxPairs <= 0 {
		c.MaxPairs = d.MaxPairs
	}
	if c.MinPairInterval < 0 {
		c.MinPairInterval = d.MinPairInterval
	}
	if c.MaxLinearSpeed <= 0 {
		c.MaxLinearSpeed = d.MaxLinearSpeed
	}
	if c.AngularLookback < 2 {
		c.AngularLookback = d.AngularLookback
	}
	if c.MinAngularInterval < 0 {
		c.MinAngularInterval = d.MinAngularInterval
	}
	if c.MinAngle < 0 {
		c.MinAngle = d.MinAngle
	}
	if c.MaxAngularSpeed <= 0 {
		c.MaxAngularSpeed = d.MaxAngularSpeed
	}
	return c
}

// Release is the velocity pair imparted to an object when it is let go.
type Release struct {
	Linear  mgl64.Vec3 `json:"linear"`
	Angular mgl64.Vec3 `json:"angular"`
}

// Speed returns the linear speed.
func (r Release) Speed() float64 {
	return r.Linear.Len()
}

// AngularSpeed returns the angular speed.
func (r Release) AngularSpeed() float64 {
	return r.Angular.Len()
}

// Estimator turns a grip history into a release velocity. It is a pure
// function of its input: short or degenerate histories yield zero vectors.
type Estimator struct {
	config EstimatorConfig
}

// NewEstimator creates an Estimator.
func NewEstimator(config EstimatorConfig) *Estimator {
	return &Estimator{config: config.withDefaults()}
}

// Config returns the effective configuration.
func (e *Estimator) Config() EstimatorConfig {
	return e.config
}

// Estimate computes the release velocity from samples in chronological order.
func (e *Estimator) Estimate(samples []Sample) Release {
	return Release{
		Linear:  e.Linear(samples),
		Angular: e.Angular(samples),
	}
}

// Linear averages finite-difference velocities over stride-spaced pairs
// walking back from the newest sample. Near the start of the history the
// older end of a pair is clamped to the oldest sample.
func (e *Estimator) Linear(samples []Sample) mgl64.Vec3 {
	n := len(samples)
	if n < 2 {
		return mgl64.Vec3{}
	}

	var sum mgl64.Vec3
	valid := 0
	newer := n - 1
	for pair := 0; pair < e.config.MaxPairs && newer > 0; pair++ {
		older := max(newer-e.config.Stride, 0)

		dt := samples[newer].Timestamp - samples[older].Timestamp
		if dt > e.config.MinPairInterval {
			v := samples[newer].Position.Sub(samples[older].Position).Mul(1 / dt)
			sum = sum.Add(v)
			valid++
		}

		newer -= e.config.Stride
	}

	if valid == 0 {
		return mgl64.Vec3{}
	}

	return clampMagnitude(sum.Mul(1/float64(valid)), e.config.MaxLinearSpeed)
}

// Angular measures the rotation between the AngularLookback-th most recent
// sample and the newest one.
func (e *Estimator) Angular(samples []Sample) mgl64.Vec3 {
	n := len(samples)
	if n < e.config.AngularLookback {
		return mgl64.Vec3{}
	}

	older := samples[n-e.config.AngularLookback]
	newer := samples[n-1]

	dt := newer.Timestamp - older.Timestamp
	rel := newer.Orientation.Mul(older.Orientation.Inverse())
	angle := 2 * math.Acos(math.Min(math.Abs(rel.W), 1))

	if dt <= e.config.MinAngularInterval || angle <= e.config.MinAngle {
		return mgl64.Vec3{}
	}

	axis := UpAxis
	if rel.V.Len() > negligibleAxis {
		axis = rel.V.Normalize()
		// q and -q are the same rotation; the angle above is the short arc,
		// so the axis has to follow the same sign.
		if rel.W < 0 {
			axis = axis.Mul(-1)
		}
	}

	return clampMagnitude(axis.Mul(angle/dt), e.config.MaxAngularSpeed)
}

// clampMagnitude rescales v to limit when it is longer, keeping direction.
func clampMagnitude(v mgl64.Vec3, limit float64) mgl64.Vec3 {
	l := v.Len()
	if l > limit {
		return v.Mul(limit / l)
	}
	return v
}
