package grip

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mjolnir/internal/gesture"
	"github.com/ayusman/mjolnir/internal/hand"
)

// fakeWorld records every collaborator call.
type fakeWorld struct {
	spawned   []string
	spawnErr  error
	follows   []hand.Transform
	handoffs  []Handoff
	throwErr  error
	nextIndex int
}

func (w *fakeWorld) Spawn(_ context.Context, kind string) (Handle, error) {
	w.spawned = append(w.spawned, kind)
	if w.spawnErr != nil {
		return "", w.spawnErr
	}
	w.nextIndex++
	return Handle(fmt.Sprintf("obj-%d", w.nextIndex)), nil
}

func (w *fakeWorld) Follow(_ Handle, target hand.Transform) {
	w.follows = append(w.follows, target)
}

func (w *fakeWorld) Throw(_ context.Context, h Handoff) error {
	w.handoffs = append(w.handoffs, h)
	return w.throwErr
}

func (w *fakeWorld) collaborators() Collaborators {
	return Collaborators{Spawner: w, Follower: w, Applier: w}
}

// pose builds a skeleton whose grip center is center. A fist curls the
// fingertips to within 5cm of the wrist; an open hand extends them to 18cm.
func pose(side hand.Side, center mgl64.Vec3, fist bool, ts float64) hand.Skeleton {
	s := hand.Skeleton{Side: side, Orientation: mgl64.QuatIdent(), Timestamp: ts}
	wrist := center.Add(mgl64.Vec3{0, -0.05, 0})
	s.SetJoint(hand.Wrist, wrist)
	s.SetJoint(hand.Palm, center)
	s.SetJoint(hand.IndexKnuckle, center.Add(mgl64.Vec3{0.02, 0, 0}))
	s.SetJoint(hand.MiddleKnuckle, center.Add(mgl64.Vec3{-0.02, 0, 0}))

	reach := 0.05
	if !fist {
		reach = 0.18
	}
	s.SetJoint(hand.IndexTip, wrist.Add(mgl64.Vec3{0.01, reach, 0}))
	s.SetJoint(hand.MiddleTip, wrist.Add(mgl64.Vec3{0, reach, 0}))
	s.SetJoint(hand.RingTip, wrist.Add(mgl64.Vec3{-0.01, reach, 0}))
	return s
}

func newTestController(w *fakeWorld) (*Controller, *[]Event) {
	c := NewController(gesture.DefaultConfig(), DefaultConfig(), w.collaborators(), nil)
	var events []Event
	c.OnEvent(func(e Event) { events = append(events, e) })
	return c, &events
}

func TestController_GripLifecycle(t *testing.T) {
	ctx := context.Background()
	w := &fakeWorld{}
	c, events := newTestController(w)
	tracker := c.Tracker(hand.Right)

	// Open hand: nothing happens.
	open := pose(hand.Right, mgl64.Vec3{0, 1, 0}, false, 0)
	c.Update(ctx, &open)
	assert.Equal(t, Idle, tracker.State())
	assert.Empty(t, w.spawned)

	// Fist closes: object spawned, first sample recorded.
	dt := 1.0 / 60
	for i := 1; i <= 12; i++ {
		p := pose(hand.Right, mgl64.Vec3{0, 1, float64(i) * 0.05}, true, float64(i)*dt)
		c.Update(ctx, &p)
	}
	require.Equal(t, Gripping, tracker.State())
	assert.Equal(t, []string{DefaultObjectKind}, w.spawned)
	assert.Equal(t, Handle("obj-1"), tracker.Object())
	assert.Equal(t, 12, tracker.History().Len())
	assert.Len(t, w.follows, 12)
	assert.True(t, w.follows[11].Position.ApproxEqual(mgl64.Vec3{0, 1, 0.6}))

	// Fist opens: object handed off with an estimated velocity.
	release := pose(hand.Right, mgl64.Vec3{0, 1, 0.65}, false, 13*dt)
	c.Update(ctx, &release)

	assert.Equal(t, Idle, tracker.State())
	assert.Equal(t, Handle(""), tracker.Object())
	assert.Equal(t, 0, tracker.History().Len())

	require.Len(t, w.handoffs, 1)
	h := w.handoffs[0]
	assert.Equal(t, Handle("obj-1"), h.Object)
	assert.Equal(t, hand.Right, h.Side)
	assert.Equal(t, 12, h.Samples)
	assert.InDelta(t, 3.0, h.Velocity.Linear.Z(), 1e-9)
	assert.True(t, h.Transform.Position.ApproxEqual(mgl64.Vec3{0, 1, 0.6}))

	require.Len(t, *events, 2)
	assert.Equal(t, EventGrip, (*events)[0].Type)
	assert.Equal(t, EventRelease, (*events)[1].Type)
	require.NotNil(t, (*events)[1].Handoff)
	assert.Equal(t, h, *(*events)[1].Handoff)
}

func TestController_SpawnFailure(t *testing.T) {
	ctx := context.Background()
	w := &fakeWorld{spawnErr: errors.New("no room")}
	c, events := newTestController(w)

	for i := 0; i < 5; i++ {
		p := pose(hand.Left, mgl64.Vec3{}, true, float64(i))
		c.Update(ctx, &p)
	}

	tracker := c.Tracker(hand.Left)
	assert.Equal(t, Idle, tracker.State())
	assert.Equal(t, 0, tracker.History().Len())
	assert.Len(t, w.spawned, 1, "spawn must not be retried while the fist stays closed")
	require.Len(t, *events, 1)
	assert.Equal(t, EventSpawnFailed, (*events)[0].Type)
	assert.Equal(t, "no room", (*events)[0].Err)

	// Opening the hand after a failed spawn releases nothing.
	open := pose(hand.Left, mgl64.Vec3{}, false, 6)
	c.Update(ctx, &open)
	assert.Empty(t, w.handoffs)

	// The next closing fist tries again.
	w.spawnErr = nil
	fist := pose(hand.Left, mgl64.Vec3{}, true, 7)
	c.Update(ctx, &fist)
	assert.Len(t, w.spawned, 2)
	assert.Equal(t, Gripping, tracker.State())
}

func TestController_UntrackedKnuckleSkipsUpdate(t *testing.T) {
	ctx := context.Background()
	w := &fakeWorld{}
	c, _ := newTestController(w)
	tracker := c.Tracker(hand.Right)

	for i := 0; i < 3; i++ {
		p := pose(hand.Right, mgl64.Vec3{}, true, float64(i)*0.1)
		c.Update(ctx, &p)
	}
	require.Equal(t, 3, tracker.History().Len())

	lost := pose(hand.Right, mgl64.Vec3{}, true, 0.3)
	lost.Untrack(hand.IndexKnuckle)
	c.Update(ctx, &lost)

	assert.Equal(t, 3, tracker.History().Len())
	assert.True(t, tracker.Gripping())
	assert.Len(t, w.follows, 3)
}

func TestController_UntrackedWristKeepsGrip(t *testing.T) {
	ctx := context.Background()
	w := &fakeWorld{}
	c, _ := newTestController(w)
	tracker := c.Tracker(hand.Right)

	fist := pose(hand.Right, mgl64.Vec3{}, true, 0)
	c.Update(ctx, &fist)

	lost := pose(hand.Right, mgl64.Vec3{0, 0, 0.1}, false, 0.1)
	lost.Untrack(hand.Wrist)
	c.Update(ctx, &lost)

	assert.True(t, tracker.Gripping())
	assert.Empty(t, w.handoffs)
	assert.Equal(t, 2, tracker.History().Len(), "grip pose still recorded")
}

func TestController_SidesAreIndependent(t *testing.T) {
	ctx := context.Background()
	w := &fakeWorld{}
	c, _ := newTestController(w)

	left := pose(hand.Left, mgl64.Vec3{-0.2, 1, 0}, true, 0)
	right := pose(hand.Right, mgl64.Vec3{0.2, 1, 0}, false, 0)
	c.UpdateAll(ctx, []hand.Skeleton{left, right})

	assert.True(t, c.Tracker(hand.Left).Gripping())
	assert.False(t, c.Tracker(hand.Right).Gripping())

	right = pose(hand.Right, mgl64.Vec3{0.2, 1, 0}, true, 0.1)
	c.Update(ctx, &right)
	left = pose(hand.Left, mgl64.Vec3{-0.2, 1, 0}, false, 0.1)
	c.Update(ctx, &left)

	assert.False(t, c.Tracker(hand.Left).Gripping())
	assert.True(t, c.Tracker(hand.Right).Gripping())
	require.Len(t, w.handoffs, 1)
	assert.Equal(t, hand.Left, w.handoffs[0].Side)
}

func TestController_HistoryBounded(t *testing.T) {
	ctx := context.Background()
	w := &fakeWorld{}
	c, _ := newTestController(w)
	tracker := c.Tracker(hand.Right)

	for i := 0; i < 60; i++ {
		p := pose(hand.Right, mgl64.Vec3{float64(i) * 0.01, 0, 0}, true, float64(i)/90)
		c.Update(ctx, &p)
		assert.LessOrEqual(t, tracker.History().Len(), DefaultHistoryCapacity)
	}
	assert.Equal(t, DefaultHistoryCapacity, tracker.History().Len())
}

func TestController_ReleaseWithoutMotionIsZero(t *testing.T) {
	ctx := context.Background()
	w := &fakeWorld{}
	c, _ := newTestController(w)

	fist := pose(hand.Right, mgl64.Vec3{}, true, 0)
	c.Update(ctx, &fist)
	open := pose(hand.Right, mgl64.Vec3{}, false, 0.1)
	c.Update(ctx, &open)

	require.Len(t, w.handoffs, 1)
	assert.Equal(t, Release{}, w.handoffs[0].Velocity)
	assert.Equal(t, 1, w.handoffs[0].Samples)
}

func TestController_ObjectKind(t *testing.T) {
	ctx := context.Background()
	w := &fakeWorld{}
	c, _ := newTestController(w)

	c.SetObjectKind("axe")
	c.SetObjectKind("")
	assert.Equal(t, "axe", c.ObjectKind())

	fist := pose(hand.Left, mgl64.Vec3{}, true, 0)
	c.Update(ctx, &fist)
	assert.Equal(t, []string{"axe"}, w.spawned)
}

func TestController_IgnoresInvalidInput(t *testing.T) {
	w := &fakeWorld{}
	c, events := newTestController(w)

	c.Update(context.Background(), nil)
	bad := pose(hand.Side(5), mgl64.Vec3{}, true, 0)
	c.Update(context.Background(), &bad)

	assert.Empty(t, w.spawned)
	assert.Empty(t, *events)
}

func TestTracker_ThrowErrorStillReleases(t *testing.T) {
	ctx := context.Background()
	w := &fakeWorld{throwErr: errors.New("applier down")}
	tr := NewTracker(hand.Right, DefaultConfig(), w.collaborators(), nil)

	_, err := tr.Begin(ctx, "ball")
	require.NoError(t, err)

	handoff, ok := tr.End(ctx)
	assert.True(t, ok)
	assert.Equal(t, Handle("obj-1"), handoff.Object)
	assert.Equal(t, Idle, tr.State())

	_, ok = tr.End(ctx)
	assert.False(t, ok)
}

func TestTracker_NoSpawner(t *testing.T) {
	tr := NewTracker(hand.Left, DefaultConfig(), Collaborators{}, nil)
	_, err := tr.Begin(context.Background(), "hammer")
	assert.ErrorIs(t, err, ErrNoSpawner)
	assert.Equal(t, Idle, tr.State())
}
