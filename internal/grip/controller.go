package grip

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/mjolnir/internal/gesture"
	"github.com/ayusman/mjolnir/internal/hand"
)

// Controller routes skeletons to the per-side trackers and drives their
// transitions from the fist classifier. Update must be called from a single
// goroutine; the object kind and observer may be changed concurrently.
type Controller struct {
	classifier *gesture.Classifier
	trackers   [hand.NumSides]*Tracker
	fist       [hand.NumSides]bool

	mu       sync.RWMutex
	kind     string
	observer func(Event)

	logger *zap.Logger
}

// NewController creates a Controller with one idle Tracker per side.
func NewController(gestureCfg gesture.Config, gripCfg Config, collab Collaborators, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}

	kind := gripCfg.ObjectKind
	if kind == "" {
		kind = DefaultObjectKind
	}

	c := &Controller{
		classifier: gesture.NewClassifier(gestureCfg),
		kind:       kind,
		logger:     logger,
	}
	for _, side := range hand.Sides {
		c.trackers[side] = NewTracker(side, gripCfg, collab, logger)
	}
	return c
}

// OnEvent sets the callback invoked synchronously for every grip event.
func (c *Controller) OnEvent(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
}

// SetObjectKind selects the object type spawned by future grips.
func (c *Controller) SetObjectKind(kind string) {
	if kind == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kind = kind
}

// ObjectKind returns the currently selected object type.
func (c *Controller) ObjectKind() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kind
}

// Tracker returns the tracker for side.
func (c *Controller) Tracker(side hand.Side) *Tracker {
	return c.trackers[side]
}

// Classifier returns the fist classifier.
func (c *Controller) Classifier() *gesture.Classifier {
	return c.classifier
}

// Update feeds one skeleton. A fist closing starts a grip, a fist opening
// releases it, and every update in between records the grip pose. If the
// classifier's joints are untracked the gesture keeps its previous value.
func (c *Controller) Update(ctx context.Context, s *hand.Skeleton) {
	if s == nil || !s.Side.Valid() {
		return
	}

	side := s.Side
	tracker := c.trackers[side]

	fist, tracked := c.classifier.Observe(s)
	if !tracked {
		fist = c.fist[side]
	}
	wasFist := c.fist[side]
	c.fist[side] = fist

	switch {
	case fist && !wasFist:
		kind := c.ObjectKind()
		if _, err := tracker.Begin(ctx, kind); err != nil {
			c.emit(Event{Type: EventSpawnFailed, Side: side, Kind: kind, Timestamp: s.Timestamp, Err: err.Error()})
			return
		}
		c.emit(Event{Type: EventGrip, Side: side, Kind: kind, Timestamp: s.Timestamp})
		tracker.Track(s)

	case !fist && wasFist:
		// The opening frame itself is not recorded.
		if handoff, ok := tracker.End(ctx); ok {
			c.emit(Event{Type: EventRelease, Side: side, Kind: handoff.Kind, Timestamp: s.Timestamp, Handoff: &handoff})
		}

	default:
		tracker.Track(s)
	}
}

// UpdateAll feeds every skeleton of one frame.
func (c *Controller) UpdateAll(ctx context.Context, skeletons []hand.Skeleton) {
	for i := range skeletons {
		c.Update(ctx, &skeletons[i])
	}
}

func (c *Controller) emit(e Event) {
	c.mu.RLock()
	fn := c.observer
	c.mu.RUnlock()

	if fn != nil {
		fn(e)
	}
}
