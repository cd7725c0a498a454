// Package grip tracks fist grips per hand and turns releases into throws.
//
// A Controller owns one Tracker per hand side. Each Tracker is a two-state
// machine (idle, gripping): a closed fist spawns a held object, every pose
// while gripping is recorded into a bounded History and mirrored to the
// held object, and opening the fist estimates a Release velocity from the
// History and hands the object to the physics collaborator.
package grip

import (
	"context"
	"errors"

	"github.com/ayusman/mjolnir/internal/hand"
)

// DefaultObjectKind is the object spawned when nothing else is selected.
const DefaultObjectKind = "hammer"

// Handle identifies an object created by a Spawner.
type Handle string

// Handoff transfers ownership of a held object to the physics collaborator.
// After a Handoff the core keeps no reference to the object.
type Handoff struct {
	Object    Handle         `json:"object"`
	Kind      string         `json:"kind"`
	Side      hand.Side      `json:"side"`
	Transform hand.Transform `json:"transform"`
	Velocity  Release        `json:"velocity"`
	Samples   int            `json:"samples"`
}

// Spawner creates the object held by a gripping hand.
type Spawner interface {
	Spawn(ctx context.Context, kind string) (Handle, error)
}

// Follower moves a held object to the hand every update while gripped.
type Follower interface {
	Follow(object Handle, target hand.Transform)
}

// Applier receives released objects and applies their one-time impulse.
type Applier interface {
	Throw(ctx context.Context, h Handoff) error
}

// ErrNoSpawner is returned by a nil-backed spawner.
var ErrNoSpawner = errors.New("no spawner configured")

// EventType names a grip lifecycle event.
type EventType string

const (
	// EventGrip fires when a hand starts holding an object.
	EventGrip EventType = "grip"
	// EventRelease fires when a held object is thrown.
	EventRelease EventType = "release"
	// EventSpawnFailed fires when a grip could not obtain an object.
	EventSpawnFailed EventType = "spawn_failed"
)

// Event describes a grip state transition.
type Event struct {
	Type      EventType `json:"type"`
	Side      hand.Side `json:"side"`
	Kind      string    `json:"kind,omitempty"`
	Timestamp float64   `json:"timestamp"`
	Handoff   *Handoff  `json:"handoff,omitempty"`
	Err       string    `json:"error,omitempty"`
}
