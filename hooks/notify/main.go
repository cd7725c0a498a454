// Package main is a release hook that shows a desktop notification for
// every throw. It uses AppleScript on macOS and notify-send elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
)

// Request represents the input from the hook executor.
type Request struct {
	Event  Event           `json:"event"`
	Config json.RawMessage `json:"config"`
}

// Event is the subset of a grip event this hook reads.
type Event struct {
	Type    string `json:"type"`
	Side    string `json:"side"`
	Kind    string `json:"kind"`
	Handoff *struct {
		Velocity struct {
			Linear [3]float64 `json:"linear"`
		} `json:"velocity"`
	} `json:"handoff"`
}

// Response represents the output to the hook executor.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config is read from the manifest.
type Config struct {
	Title string `json:"title"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	cfg := Config{Title: "Mjolnir"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeResponse(fmt.Errorf("invalid config: %w", err))
			return
		}
	}

	writeResponse(notify(cfg.Title, message(req.Event)))
}

func message(e Event) string {
	if e.Type != "release" || e.Handoff == nil {
		return fmt.Sprintf("%s %s (%s hand)", e.Type, e.Kind, e.Side)
	}
	v := e.Handoff.Velocity.Linear
	speed := v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
	return fmt.Sprintf("%s thrown with the %s hand at %.1f m/s", e.Kind, e.Side, math.Sqrt(speed))
}

// notify shows a desktop notification.
func notify(title, body string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		cmd = exec.Command("osascript", "-e", script)
	} else {
		cmd = exec.Command("notify-send", title, body)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeResponse writes the result of the hook to stdout.
func writeResponse(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
