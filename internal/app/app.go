// Package app wires a skeleton source to the grip controller and fans the
// resulting grip events out to subscribers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mjolnir/internal/gesture"
	"github.com/ayusman/mjolnir/internal/grip"
	"github.com/ayusman/mjolnir/internal/hand"
	"github.com/ayusman/mjolnir/internal/store"
)

// Source yields skeleton frames. Next blocks until a frame is available and
// returns io.EOF when the stream ends.
type Source interface {
	Next(ctx context.Context) ([]hand.Skeleton, error)
}

// Config holds the tracking configuration.
type Config struct {
	Gesture gesture.Config
	Grip    grip.Config
}

// DefaultConfig returns the default tracking configuration.
func DefaultConfig() Config {
	return Config{
		Gesture: gesture.DefaultConfig(),
		Grip:    grip.DefaultConfig(),
	}
}

// App is the main application: it pulls frames from a Source, feeds them
// to the grip controller and publishes grip events.
type App struct {
	controller *grip.Controller
	logger     *zap.Logger

	mu          sync.RWMutex
	enabled     bool
	subscribers []func(grip.Event)
	last        *grip.Event
	frames      int
}

// New creates an App whose controller talks to collab. Tracking starts enabled.
func New(config Config, collab grip.Collaborators, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		controller: grip.NewController(config.Gesture, config.Grip, collab, logger.Named("grip")),
		logger:     logger,
		enabled:    true,
	}
	a.controller.OnEvent(a.publish)
	return a
}

// Controller returns the grip controller.
func (a *App) Controller() *grip.Controller {
	return a.controller
}

// SetEnabled enables or disables tracking. While disabled frames are
// drained from the source but not tracked.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled != enabled {
		a.logger.Info("tracking toggled", zap.Bool("enabled", enabled))
	}
	a.enabled = enabled
}

// IsEnabled returns whether tracking is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Subscribe registers fn to receive every grip event. Subscribers run on
// the pipeline goroutine and must not block.
func (a *App) Subscribe(fn func(grip.Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribers = append(a.subscribers, fn)
}

// LastEvent returns the most recent grip event, if any.
func (a *App) LastEvent() (grip.Event, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.last == nil {
		return grip.Event{}, false
	}
	return *a.last, true
}

// Frames returns the number of frames tracked so far.
func (a *App) Frames() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.frames
}

// Run pulls frames from src until it is exhausted or ctx is done.
func (a *App) Run(ctx context.Context, src Source) error {
	a.logger.Info("tracking pipeline started")
	defer a.logger.Info("tracking pipeline stopped")

	for {
		frame, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read source: %w", err)
		}

		if !a.IsEnabled() {
			continue
		}

		a.controller.UpdateAll(ctx, frame)

		a.mu.Lock()
		a.frames++
		a.mu.Unlock()
	}
}

// ApplySetting applies one persisted setting. Unknown keys are ignored.
func (a *App) ApplySetting(key, value string) error {
	switch key {
	case store.SettingObjectKind:
		if value == "" {
			return fmt.Errorf("%s: empty object kind", key)
		}
		a.controller.SetObjectKind(value)
	case store.SettingTracking:
		on, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		a.SetEnabled(on)
	}
	return nil
}

// LoadSettings applies every stored setting. Invalid values are logged and
// skipped.
func (a *App) LoadSettings(settings *store.SettingsRepository) error {
	all, err := settings.All()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	for key, value := range all {
		if err := a.ApplySetting(key, value); err != nil {
			a.logger.Warn("ignoring invalid setting", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// LogThrows returns a subscriber that writes every release to throws.
func LogThrows(throws *store.ThrowRepository, logger *zap.Logger) func(grip.Event) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(e grip.Event) {
		if e.Type != grip.EventRelease || e.Handoff == nil {
			return
		}
		t := store.ThrowFromHandoff(*e.Handoff, time.Now())
		if err := throws.Create(t); err != nil {
			logger.Error("failed to log throw", zap.Error(err))
			return
		}
		logger.Info("throw logged",
			zap.String("id", t.ID),
			zap.Stringer("side", t.Side),
			zap.String("kind", t.Kind),
			zap.Float64("speed", t.Speed),
		)
	}
}

func (a *App) publish(e grip.Event) {
	a.mu.Lock()
	a.last = &e
	subs := make([]func(grip.Event), len(a.subscribers))
	copy(subs, a.subscribers)
	a.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}
