// Package detector turns camera frames into hand skeletons.
package detector

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/mjolnir/internal/hand"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns one skeleton per detected
	// hand, in world space. Timestamps are left for the caller to fill.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]hand.Skeleton, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int `yaml:"max_hands"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `yaml:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`

	// Depth is the assumed hand distance from the camera in metres, used to
	// place image-space detections in the world frame.
	Depth float64 `yaml:"depth"`

	// FieldOfView is the camera's horizontal field of view in degrees.
	FieldOfView float64 `yaml:"field_of_view"`

	// AspectRatio is frame width divided by height.
	AspectRatio float64 `yaml:"aspect_ratio"`

	// Script overrides the MediaPipe service script location.
	Script string `yaml:"script"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		Depth:           0.5,
		FieldOfView:     60,
		AspectRatio:     4.0 / 3.0,
	}
}
