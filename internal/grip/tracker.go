package grip

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/ayusman/mjolnir/internal/hand"
)

// State is a Tracker state.
type State int

const (
	Idle State = iota
	Gripping
)

func (s State) String() string {
	if s == Gripping {
		return "gripping"
	}
	return "idle"
}

// Config holds the per-hand grip tracker settings.
type Config struct {
	// HistoryCapacity bounds the pose samples kept while gripping.
	HistoryCapacity int `yaml:"history_capacity"`
	// ObjectKind is the object type requested from the Spawner.
	ObjectKind string `yaml:"object_kind"`
	// Estimator tunes release velocity estimation.
	Estimator EstimatorConfig `yaml:"release"`
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		HistoryCapacity: DefaultHistoryCapacity,
		ObjectKind:      DefaultObjectKind,
		Estimator:       DefaultEstimatorConfig(),
	}
}

// Collaborators bundles the external parties a Tracker talks to.
type Collaborators struct {
	Spawner  Spawner
	Follower Follower
	Applier  Applier
}

// Tracker is the grip state machine for one hand. It is not safe for
// concurrent use; a single consumer drives it.
type Tracker struct {
	side      hand.Side
	state     State
	object    Handle
	kind      string
	last      hand.Transform
	history   *History
	estimator *Estimator
	collab    Collaborators
	logger    *zap.Logger
}

// NewTracker creates an idle Tracker for side.
func NewTracker(side hand.Side, config Config, collab Collaborators, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		side:      side,
		state:     Idle,
		history:   NewHistory(config.HistoryCapacity),
		estimator: NewEstimator(config.Estimator),
		collab:    collab,
		logger:    logger.With(zap.Stringer("side", side)),
	}
}

// Side returns the hand side this tracker follows.
func (t *Tracker) Side() hand.Side {
	return t.side
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}

// Gripping reports whether the tracker holds an object.
func (t *Tracker) Gripping() bool {
	return t.state == Gripping
}

// Object returns the held object handle, empty when idle.
func (t *Tracker) Object() Handle {
	return t.object
}

// History exposes the grip history. Callers must not modify it.
func (t *Tracker) History() *History {
	return t.history
}

// Begin moves an idle tracker to gripping by spawning an object of kind.
// On spawn failure the tracker stays idle and the error is returned for
// reporting; it is never retried.
func (t *Tracker) Begin(ctx context.Context, kind string) (Handle, error) {
	if t.state == Gripping {
		return t.object, nil
	}
	if t.collab.Spawner == nil {
		return "", ErrNoSpawner
	}

	object, err := t.collab.Spawner.Spawn(ctx, kind)
	if err != nil {
		t.logger.Warn("spawn failed, skipping grip", zap.String("kind", kind), zap.Error(err))
		return "", err
	}

	t.history.Reset()
	t.object = object
	t.kind = kind
	t.last = hand.IdentityTransform()
	t.state = Gripping
	t.logger.Debug("grip started", zap.String("object", string(object)), zap.String("kind", kind))
	return object, nil
}

// Track records the grip pose from s while gripping and mirrors it to the
// held object. Updates without a grip center are skipped. It reports
// whether a sample was recorded.
func (t *Tracker) Track(s *hand.Skeleton) bool {
	if t.state != Gripping {
		return false
	}

	center, ok := s.GripCenter()
	if !ok {
		t.logger.Debug("grip joints untracked, skipping update")
		return false
	}

	pose := hand.Transform{Position: center, Orientation: unitOrientation(s.Orientation)}
	recorded := t.history.Push(Sample{
		Position:    pose.Position,
		Orientation: pose.Orientation,
		Timestamp:   s.Timestamp,
	})

	t.last = pose
	if t.collab.Follower != nil {
		t.collab.Follower.Follow(t.object, pose)
	}
	return recorded
}

// End releases the held object: it estimates the release velocity, hands
// the object to the Applier and returns the tracker to idle.
func (t *Tracker) End(ctx context.Context) (Handoff, bool) {
	if t.state != Gripping {
		return Handoff{}, false
	}

	handoff := Handoff{
		Object:    t.object,
		Kind:      t.kind,
		Side:      t.side,
		Transform: t.last,
		Velocity:  t.estimator.Estimate(t.history.Samples()),
		Samples:   t.history.Len(),
	}

	if t.collab.Applier != nil {
		if err := t.collab.Applier.Throw(ctx, handoff); err != nil {
			t.logger.Error("throw handoff failed", zap.String("object", string(t.object)), zap.Error(err))
		}
	}

	t.history.Reset()
	t.object = ""
	t.kind = ""
	t.last = hand.Transform{}
	t.state = Idle

	t.logger.Debug("released",
		zap.String("object", string(handoff.Object)),
		zap.Float64("speed", handoff.Velocity.Speed()),
		zap.Float64("angular_speed", handoff.Velocity.AngularSpeed()),
		zap.Int("samples", handoff.Samples),
	)
	return handoff, true
}

// unitOrientation normalizes q, falling back to identity for a zero quaternion.
func unitOrientation(q mgl64.Quat) mgl64.Quat {
	if q.Len() < 1e-9 {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}
