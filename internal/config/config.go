// Package config loads the service configuration from a YAML file. Every
// section starts from its package's defaults and the file overrides only
// the keys it sets.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mjolnir/internal/capture"
	"github.com/ayusman/mjolnir/internal/detector"
	"github.com/ayusman/mjolnir/internal/gesture"
	"github.com/ayusman/mjolnir/internal/grip"
	"github.com/ayusman/mjolnir/internal/hook"
	"github.com/ayusman/mjolnir/internal/logging"
	"github.com/ayusman/mjolnir/internal/physics"
)

// DefaultPath is where the configuration file is looked up by default.
const DefaultPath = "~/.mjolnir/config.yaml"

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// StoreConfig configures the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Config is the complete service configuration.
type Config struct {
	Log      logging.Config  `yaml:"log"`
	Server   ServerConfig    `yaml:"server"`
	Store    StoreConfig     `yaml:"store"`
	Camera   capture.Config  `yaml:"camera"`
	Detector detector.Config `yaml:"detector"`
	Gesture  gesture.Config  `yaml:"gesture"`
	Grip     grip.Config     `yaml:"grip"`
	Physics  physics.Config  `yaml:"physics"`
	Hooks    hook.Config     `yaml:"hooks"`
	Tray     bool            `yaml:"tray"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log: logging.DefaultConfig(),
		Server: ServerConfig{
			Addr: "127.0.0.1:8765",
		},
		Store: StoreConfig{
			Path: "~/.mjolnir/mjolnir.db",
		},
		Camera:   capture.DefaultConfig(),
		Detector: detector.DefaultConfig(),
		Gesture:  gesture.DefaultConfig(),
		Grip:     grip.DefaultConfig(),
		Physics:  physics.DefaultConfig(),
		Hooks:    hook.DefaultConfig(),
		Tray:     false,
	}
}

// Load reads the file at path over the defaults, expands "~" in paths and
// validates the result. A missing file at DefaultPath yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(ExpandPath(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultPath:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg.expand()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	_, err := logging.ParseLevel(c.Log.Level)
	check(err == nil, "log.level: unknown level %q", c.Log.Level)
	format := strings.ToLower(c.Log.Format)
	check(format == "json" || format == "console", "log.format: must be json or console, got %q", c.Log.Format)

	check(c.Server.Addr != "", "server.addr: must be set")
	check(c.Store.Path != "", "store.path: must be set")
	check(c.Camera.FPS > 0, "camera.fps: must be positive")

	check(c.Gesture.FistThreshold > 0, "gesture.fist_threshold: must be positive")

	check(c.Grip.HistoryCapacity > 0, "grip.history_capacity: must be positive")
	_, known := physics.LookupKind(c.Grip.ObjectKind)
	check(known, "grip.object_kind: unknown kind %q, expected one of %s", c.Grip.ObjectKind, strings.Join(physics.Kinds(), ", "))

	est := c.Grip.Estimator
	check(est.Stride > 0, "grip.release.stride: must be positive")
	check(est.MaxPairs > 0, "grip.release.max_pairs: must be positive")
	check(est.MaxLinearSpeed > 0, "grip.release.max_linear_speed: must be positive")
	check(est.AngularLookback >= 2, "grip.release.angular_lookback: must be at least 2")
	check(est.MaxAngularSpeed > 0, "grip.release.max_angular_speed: must be positive")
	check(est.AngularLookback <= c.Grip.HistoryCapacity, "grip.release.angular_lookback: exceeds grip.history_capacity")

	check(c.Physics.ImpulseScale > 0, "physics.impulse_scale: must be positive")
	check(c.Physics.MaxBodies > 0, "physics.max_bodies: must be positive")
	check(c.Physics.TickHz > 0, "physics.tick_hz: must be positive")

	check(c.Hooks.TimeoutMs > 0, "hooks.timeout_ms: must be positive")
	check(c.Hooks.Workers > 0, "hooks.workers: must be positive")

	return errors.Join(errs...)
}

// Marshal encodes the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) expand() {
	c.Store.Path = ExpandPath(c.Store.Path)
	c.Server.StaticDir = ExpandPath(c.Server.StaticDir)
	c.Hooks.Dir = ExpandPath(c.Hooks.Dir)
	c.Detector.Script = ExpandPath(c.Detector.Script)
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
