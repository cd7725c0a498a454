// Package gesture classifies hand skeletons into grip gestures.
package gesture

import "github.com/ayusman/mjolnir/internal/hand"

// DefaultFistThreshold is the default maximum fingertip-to-wrist distance,
// in metres, for a hand to count as a closed fist.
const DefaultFistThreshold = 0.10

// fistTips are the fingertips that must curl toward the wrist.
var fistTips = [...]int{hand.IndexTip, hand.MiddleTip, hand.RingTip}

// Config holds the classifier thresholds.
type Config struct {
	// FistThreshold is the maximum fingertip-to-wrist distance in metres.
	// Smaller values make the gesture harder to trigger.
	FistThreshold float64 `yaml:"fist_threshold"`
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{FistThreshold: DefaultFistThreshold}
}

// Classifier detects the closed-fist grip gesture.
type Classifier struct {
	threshold float64
}

// NewClassifier creates a Classifier. A non-positive threshold falls back
// to DefaultFistThreshold.
func NewClassifier(config Config) *Classifier {
	threshold := config.FistThreshold
	if threshold <= 0 {
		threshold = DefaultFistThreshold
	}
	return &Classifier{threshold: threshold}
}

// Threshold returns the fingertip-to-wrist threshold in use.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Classify reports whether s is gripping: the wrist and the index, middle
// and ring fingertips are tracked and every fingertip lies within the
// threshold of the wrist.
func (c *Classifier) Classify(s *hand.Skeleton) bool {
	gripping, tracked := c.Observe(s)
	return tracked && gripping
}

// Observe is Classify with the tracked bit split out. tracked is false when
// any required joint is missing, in which case gripping is always false.
func (c *Classifier) Observe(s *hand.Skeleton) (gripping, tracked bool) {
	if s == nil {
		return false, false
	}

	wrist, ok := s.Joint(hand.Wrist)
	if !ok {
		return false, false
	}

	gripping = true
	for _, tip := range fistTips {
		p, ok := s.Joint(tip)
		if !ok {
			return false, false
		}
		if hand.Distance(p, wrist) > c.threshold {
			gripping = false
		}
	}

	return gripping, true
}
