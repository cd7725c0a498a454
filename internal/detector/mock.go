package detector

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"gocv.io/x/gocv"

	"github.com/ayusman/mjolnir/internal/hand"
)

// MockDetector is a test implementation of the Detector interface.
// It returns either a fixed set of hands or, once a sequence is set, one
// frame of the sequence per call.
type MockDetector struct {
	mu       sync.Mutex
	hands    []hand.Skeleton
	sequence [][]hand.Skeleton
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []hand.Skeleton) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
	m.sequence = nil
}

// SetSequence makes Detect play back frames in order, then return no hands.
func (m *MockDetector) SetSequence(frames [][]hand.Skeleton) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = frames
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]hand.Skeleton, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.calls
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if m.sequence != nil {
		if i >= len(m.sequence) {
			return nil, nil
		}
		return m.sequence[i], nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FistSkeleton returns a closed fist for side with its grip center at center.
// The fingertips curl to within 6cm of the wrist.
func FistSkeleton(side hand.Side, center mgl64.Vec3) hand.Skeleton {
	return presetSkeleton(side, center, 0.06)
}

// OpenHandSkeleton returns an open hand for side with its grip center at
// center. The fingertips extend 18cm from the wrist.
func OpenHandSkeleton(side hand.Side, center mgl64.Vec3) hand.Skeleton {
	return presetSkeleton(side, center, 0.18)
}

func presetSkeleton(side hand.Side, center mgl64.Vec3, reach float64) hand.Skeleton {
	s := hand.Skeleton{Side: side, Orientation: mgl64.QuatIdent()}

	// Mirror across X for the left hand.
	mirror := 1.0
	if side == hand.Left {
		mirror = -1
	}
	at := func(x, y, z float64) mgl64.Vec3 {
		return center.Add(mgl64.Vec3{x * mirror, y, z})
	}

	wrist := at(0, -0.06, 0)
	s.SetJoint(hand.Wrist, wrist)
	s.SetJoint(hand.Palm, at(-0.02, -0.01, 0))
	s.SetJoint(hand.IndexKnuckle, at(0.02, 0.005, 0))
	s.SetJoint(hand.MiddleKnuckle, at(0, 0.005, 0))
	s.SetJoint(hand.RingKnuckle, at(-0.02, 0.004, 0))
	s.SetJoint(hand.LittleKnuckle, at(-0.038, 0.0, 0))

	tip := func(x float64) mgl64.Vec3 {
		return wrist.Add(mgl64.Vec3{x * mirror, reach, 0})
	}
	s.SetJoint(hand.ThumbTip, at(0.05, -0.02, 0.02))
	s.SetJoint(hand.IndexTip, tip(0.02))
	s.SetJoint(hand.MiddleTip, tip(0))
	s.SetJoint(hand.RingTip, tip(-0.015))
	s.SetJoint(hand.LittleTip, tip(-0.03))

	return s
}
