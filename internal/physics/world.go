// Package physics is a headless rigid-body world that receives thrown
// objects. It spawns the objects held by gripping hands, follows them while
// held and integrates them under gravity after release, with a floor plane
// standing in for the reconstructed scene.
package physics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/mjolnir/internal/grip"
	"github.com/ayusman/mjolnir/internal/hand"
)

var (
	// ErrUnknownKind is returned when spawning an unregistered object kind.
	ErrUnknownKind = errors.New("unknown object kind")
	// ErrWorldFull is returned when every body slot is held by a hand.
	ErrWorldFull = errors.New("world is full")
	// ErrBodyNotFound is returned for a handle the world does not know.
	ErrBodyNotFound = errors.New("body not found")
	// ErrNotHeld is returned when throwing a body that was already released.
	ErrNotHeld = errors.New("body is not held")
)

// Kind describes a throwable object type.
type Kind struct {
	Name   string  `json:"name"`
	Mass   float64 `json:"mass"`
	Radius float64 `json:"radius"`
}

var kinds = map[string]Kind{
	"hammer": {Name: "hammer", Mass: 1.5, Radius: 0.15},
	"axe":    {Name: "axe", Mass: 1.2, Radius: 0.12},
	"ball":   {Name: "ball", Mass: 0.4, Radius: 0.1},
}

// LookupKind returns the registered kind called name.
func LookupKind(name string) (Kind, bool) {
	k, ok := kinds[name]
	return k, ok
}

// Kinds returns the registered kind names in sorted order.
func Kinds() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config holds the world parameters.
type Config struct {
	Gravity     float64 `yaml:"gravity"`
	FloorY      float64 `yaml:"floor_y"`
	Restitution float64 `yaml:"restitution"`
	Friction    float64 `yaml:"friction"`
	// ImpulseScale multiplies release velocities when a body is thrown.
	ImpulseScale float64 `yaml:"impulse_scale"`
	// RestSpeed is the speed below which a body on the floor comes to rest.
	RestSpeed float64 `yaml:"rest_speed"`
	MaxBodies int     `yaml:"max_bodies"`
	TickHz    int     `yaml:"tick_hz"`
}

// DefaultConfig returns the default world parameters.
func DefaultConfig() Config {
	return Config{
		Gravity:      9.81,
		FloorY:       0,
		Restitution:  0.4,
		Friction:     0.2,
		ImpulseScale: 1.0,
		RestSpeed:    0.1,
		MaxBodies:    16,
		TickHz:       60,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Gravity < 0 {
		c.Gravity = d.Gravity
	}
	if c.Restitution < 0 || c.Restitution > 1 {
		c.Restitution = d.Restitution
	}
	if c.Friction < 0 || c.Friction > 1 {
		c.Friction = d.Friction
	}
	if c.ImpulseScale <= 0 {
		c.ImpulseScale = d.ImpulseScale
	}
	if c.RestSpeed <= 0 {
		c.RestSpeed = d.RestSpeed
	}
	if c.MaxBodies <= 0 {
		c.MaxBodies = d.MaxBodies
	}
	if c.TickHz <= 0 {
		c.TickHz = d.TickHz
	}
	return c
}

// Body is a snapshot of one object in the world.
type Body struct {
	ID          grip.Handle `json:"id"`
	Kind        string      `json:"kind"`
	Mass        float64     `json:"mass"`
	Position    mgl64.Vec3  `json:"position"`
	Orientation mgl64.Quat  `json:"orientation"`
	Velocity    mgl64.Vec3  `json:"velocity"`
	Spin        mgl64.Vec3  `json:"spin"`
	Held        bool        `json:"held"`
	Resting     bool        `json:"resting"`
	CreatedAt   time.Time   `json:"created_at"`

	radius float64
	seq    uint64
}

// World owns every spawned body. It implements grip.Spawner, grip.Follower
// and grip.Applier and is safe for concurrent use.
type World struct {
	config Config
	logger *zap.Logger

	mu     sync.Mutex
	bodies map[grip.Handle]*Body
	seq    uint64
}

var (
	_ grip.Spawner  = (*World)(nil)
	_ grip.Follower = (*World)(nil)
	_ grip.Applier  = (*World)(nil)
)

// NewWorld creates an empty World.
func NewWorld(config Config, logger *zap.Logger) *World {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &World{
		config: config.withDefaults(),
		logger: logger,
		bodies: make(map[grip.Handle]*Body),
	}
}

// Config returns the effective configuration.
func (w *World) Config() Config {
	return w.config
}

// Spawn creates a held body of kind at the origin.
func (w *World) Spawn(ctx context.Context, kind string) (grip.Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	k, ok := kinds[kind]
	if !ok {
		return "", fmt.Errorf("spawn %q: %w", kind, ErrUnknownKind)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	held := 0
	for _, b := range w.bodies {
		if b.Held {
			held++
		}
	}
	if held >= w.config.MaxBodies {
		return "", ErrWorldFull
	}

	w.seq++
	id := grip.Handle(uuid.NewString())
	w.bodies[id] = &Body{
		ID:          id,
		Kind:        k.Name,
		Mass:        k.Mass,
		Orientation: mgl64.QuatIdent(),
		Held:        true,
		CreatedAt:   time.Now(),
		radius:      k.Radius,
		seq:         w.seq,
	}
	w.evictLocked()

	w.logger.Debug("body spawned", zap.String("id", string(id)), zap.String("kind", k.Name))
	return id, nil
}

// Follow moves a held body to target. Unknown or released bodies are ignored.
func (w *World) Follow(object grip.Handle, target hand.Transform) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.bodies[object]
	if !ok || !b.Held {
		return
	}
	b.Position = target.Position
	b.Orientation = target.Orientation
}

// Throw releases a held body at the handoff transform with the release
// velocity scaled by ImpulseScale.
func (w *World) Throw(ctx context.Context, h grip.Handoff) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.bodies[h.Object]
	if !ok {
		return fmt.Errorf("throw %s: %w", h.Object, ErrBodyNotFound)
	}
	if !b.Held {
		return fmt.Errorf("throw %s: %w", h.Object, ErrNotHeld)
	}

	b.Held = false
	b.Resting = false
	b.Position = h.Transform.Position
	b.Orientation = h.Transform.Orientation
	if b.Orientation.Len() < 1e-9 {
		b.Orientation = mgl64.QuatIdent()
	}
	b.Velocity = h.Velocity.Linear.Mul(w.config.ImpulseScale)
	b.Spin = h.Velocity.Angular.Mul(w.config.ImpulseScale)

	w.logger.Debug("body thrown",
		zap.String("id", string(b.ID)),
		zap.Float64("speed", b.Velocity.Len()),
		zap.Float64("spin", b.Spin.Len()),
	)
	return nil
}

// Step advances every released body by dt seconds.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// A bounce slower than one step of gravity cannot leave the floor.
	settle := max(w.config.RestSpeed, w.config.Gravity*dt)

	for _, b := range w.bodies {
		if b.Held || b.Resting {
			continue
		}

		b.Velocity = b.Velocity.Add(mgl64.Vec3{0, -w.config.Gravity * dt, 0})
		b.Position = b.Position.Add(b.Velocity.Mul(dt))
		b.Orientation = integrate(b.Orientation, b.Spin, dt)

		floor := w.config.FloorY + b.radius
		if b.Position.Y() > floor {
			continue
		}

		b.Position[1] = floor
		vy := 0.0
		if b.Velocity.Y() < 0 {
			vy = -b.Velocity.Y() * w.config.Restitution
		}
		if vy < settle {
			vy = 0
		}
		keep := 1 - w.config.Friction
		b.Velocity = mgl64.Vec3{b.Velocity.X() * keep, vy, b.Velocity.Z() * keep}
		b.Spin = b.Spin.Mul(keep)

		if vy == 0 && b.Velocity.Len() < settle && b.Spin.Len() < settle {
			b.Velocity = mgl64.Vec3{}
			b.Spin = mgl64.Vec3{}
			b.Resting = true
		}
	}

	w.evictLocked()
}

// Run steps the world at TickHz until ctx is done.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.config.TickHz)
	dt := interval.Seconds()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Step(dt)
		}
	}
}

// Bodies returns a snapshot of every body in spawn order.
func (w *World) Bodies() []Body {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Body, 0, len(w.bodies))
	for _, b := range w.bodies {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Body returns a snapshot of the body with id.
func (w *World) Body(id grip.Handle) (Body, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	b, ok := w.bodies[id]
	if !ok {
		return Body{}, false
	}
	return *b, true
}

// Len returns the number of bodies in the world.
func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bodies)
}

// evictLocked removes the oldest resting bodies while the world holds more
// than MaxBodies.
func (w *World) evictLocked() {
	for len(w.bodies) > w.config.MaxBodies {
		var oldest *Body
		for _, b := range w.bodies {
			if !b.Resting {
				continue
			}
			if oldest == nil || b.seq < oldest.seq {
				oldest = b
			}
		}
		if oldest == nil {
			return
		}
		delete(w.bodies, oldest.ID)
		w.logger.Debug("body evicted", zap.String("id", string(oldest.ID)))
	}
}

// integrate advances q by angular velocity spin over dt.
func integrate(q mgl64.Quat, spin mgl64.Vec3, dt float64) mgl64.Quat {
	if spin.Len() == 0 {
		return q
	}
	dq := mgl64.Quat{W: 0, V: spin}.Mul(q).Scale(0.5 * dt)
	return q.Add(dq).Normalize()
}
