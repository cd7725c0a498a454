// Package tray provides the desktop tray menu: tracking toggle, object
// selection and the last throw.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mjolnir/internal/grip"
)

const (
	titleEnabled  = "● Tracking"
	titleDisabled = "○ Paused"
	lastNone      = "Last throw: none"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onKind      func(kind string)
	onDashboard func()
	onQuit      func()
	enabled     bool
	kinds       []string
	kind        string
	last        string
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuLast   *systray.MenuItem
	menuKinds  map[string]*systray.MenuItem
}

// New creates a Tray offering kinds for selection, with current selected.
// Tracking starts enabled.
func New(kinds []string, current string) *Tray {
	return &Tray{
		enabled: true,
		kinds:   kinds,
		kind:    current,
		last:    lastNone,
	}
}

// OnToggle sets the callback invoked when tracking is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnKind sets the callback invoked when an object kind is picked.
func (t *Tray) OnKind(fn func(kind string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onKind = fn
}

// OnDashboard sets the callback invoked by the dashboard menu item.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback invoked when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
func (t *Tray) onReady() {
	systray.SetTitle("Mjolnir")
	systray.SetTooltip("Mjolnir throw tracking")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle hand tracking")
	systray.AddSeparator()

	menuObject := systray.AddMenuItem("Object", "Object spawned by a fist")
	t.menuKinds = make(map[string]*systray.MenuItem, len(t.kinds))
	for _, k := range t.kinds {
		item := menuObject.AddSubMenuItemCheckbox(k, "Throw a "+k, k == t.kind)
		t.menuKinds[k] = item
		go t.watchKind(k, item)
	}

	t.menuLast = systray.AddMenuItem(t.last, "Most recent throw")
	t.menuLast.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mjolnir")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) watchKind(kind string, item *systray.MenuItem) {
	for range item.ClickedCh {
		t.SelectKind(kind)
	}
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle flips the tracking state.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// SetEnabled updates the toggle without notifying OnToggle.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SelectKind marks kind as the selected object and notifies OnKind.
func (t *Tray) SelectKind(kind string) {
	t.mu.Lock()
	t.kind = kind
	for k, item := range t.menuKinds {
		if k == kind {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	callback := t.onKind
	t.mu.Unlock()

	if callback != nil {
		callback(kind)
	}
}

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// ShowEvent updates the last throw line on releases. It is a grip event
// subscriber.
func (t *Tray) ShowEvent(e grip.Event) {
	if e.Type != grip.EventRelease || e.Handoff == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = throwLabel(e)
	if t.menuLast != nil {
		t.menuLast.SetTitle(t.last)
	}
}

// LastThrow returns the last throw line.
func (t *Tray) LastThrow() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// Kind returns the selected object kind.
func (t *Tray) Kind() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.kind
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return titleEnabled
	}
	return titleDisabled
}

func throwLabel(e grip.Event) string {
	return fmt.Sprintf("Last throw: %s %.1f m/s (%s)", e.Kind, e.Handoff.Velocity.Speed(), e.Side)
}
