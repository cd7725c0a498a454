// Package hook runs external programs when grips and throws happen.
//
// A hook is a directory holding a hook.json manifest and an executable. The
// executable receives a Request as JSON on stdin and answers with a
// Response on stdout.
package hook

import (
	"encoding/json"
	"slices"

	"github.com/ayusman/mjolnir/internal/grip"
)

// ManifestFile is the manifest name looked up in every hook directory.
const ManifestFile = "hook.json"

// Manifest describes a hook's metadata and the events it subscribes to.
type Manifest struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description"`
	Executable  string          `json:"executable"`
	Events      []string        `json:"events"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Request is sent to a hook for one event.
type Request struct {
	Event  grip.Event      `json:"event"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response is the reply read from a hook's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the hook subscribes to t. A manifest without
// events, or with "*", receives every event.
func (h *Hook) Handles(t grip.EventType) bool {
	if len(h.Manifest.Events) == 0 {
		return true
	}
	return slices.Contains(h.Manifest.Events, "*") || slices.Contains(h.Manifest.Events, string(t))
}
