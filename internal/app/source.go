package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mjolnir/internal/capture"
	"github.com/ayusman/mjolnir/internal/detector"
	"github.com/ayusman/mjolnir/internal/hand"
)

// CameraSource reads camera frames at the camera's rate and runs hand
// detection on them. Timestamps are seconds since Open.
type CameraSource struct {
	camera   capture.Camera
	detector detector.Detector
	logger   *zap.Logger

	mu     sync.Mutex
	ticker *time.Ticker
	start  time.Time
	last   float64
}

// NewCameraSource creates a CameraSource.
func NewCameraSource(camera capture.Camera, det detector.Detector, logger *zap.Logger) *CameraSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CameraSource{camera: camera, detector: det, logger: logger}
}

// Open opens the camera and starts the frame clock.
func (s *CameraSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.camera.Open(); err != nil {
		return err
	}
	s.start = time.Now()
	s.ticker = time.NewTicker(time.Second / time.Duration(s.camera.FPS()))
	return nil
}

// Next waits for the next tick and returns the hands detected in the
// frame. Transient read and detection errors are logged and skipped.
func (s *CameraSource) Next(ctx context.Context) ([]hand.Skeleton, error) {
	s.mu.Lock()
	ticker := s.ticker
	s.mu.Unlock()
	if ticker == nil {
		return nil, capture.ErrCameraNotOpen
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		hands, err := s.capture()
		if err != nil {
			if errors.Is(err, capture.ErrCameraNotOpen) {
				return nil, err
			}
			s.logger.Warn("skipping frame", zap.Error(err))
			continue
		}
		return hands, nil
	}
}

func (s *CameraSource) capture() ([]hand.Skeleton, error) {
	frame, err := s.camera.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	hands, err := s.detector.Detect(frame)
	if err != nil {
		return nil, err
	}

	ts := time.Since(s.start).Seconds()
	if ts <= s.last {
		ts = s.last + 1e-6
	}
	s.last = ts

	out := make([]hand.Skeleton, len(hands))
	copy(out, hands)
	for i := range out {
		out[i].Timestamp = ts
	}
	return out, nil
}

// Close stops the clock and releases the camera and detector.
func (s *CameraSource) Close() error {
	s.mu.Lock()
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.mu.Unlock()

	return errors.Join(s.camera.Close(), s.detector.Close())
}
