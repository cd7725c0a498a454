package hand

import "github.com/go-gl/mathgl/mgl64"

// Joint names used by the classifier and the grip tracker.
const (
	Wrist = iota
	Palm
	ThumbTip
	IndexKnuckle
	IndexTip
	MiddleKnuckle
	MiddleTip
	RingKnuckle
	RingTip
	LittleKnuckle
	LittleTip
	NumJoints
)

// JointName returns a readable name for a joint index.
func JointName(j int) string {
	switch j {
	case Wrist:
		return "wrist"
	case Palm:
		return "palm"
	case ThumbTip:
		return "thumb_tip"
	case IndexKnuckle:
		return "index_knuckle"
	case IndexTip:
		return "index_tip"
	case MiddleKnuckle:
		return "middle_knuckle"
	case MiddleTip:
		return "middle_tip"
	case RingKnuckle:
		return "ring_knuckle"
	case RingTip:
		return "ring_tip"
	case LittleKnuckle:
		return "little_knuckle"
	case LittleTip:
		return "little_tip"
	default:
		return "unknown"
	}
}

// Joint is a world-space joint position with a tracked flag. Untracked
// joints carry no meaningful position.
type Joint struct {
	Position mgl64.Vec3 `json:"position"`
	Tracked  bool       `json:"tracked"`
}

// Skeleton is one hand's joint snapshot at a point in time. Positions are
// in the shared world frame (metres); Timestamp is monotonic seconds.
type Skeleton struct {
	Side        Side             `json:"side"`
	Joints      [NumJoints]Joint `json:"joints"`
	Orientation mgl64.Quat       `json:"orientation"`
	Timestamp   float64          `json:"timestamp"`
}

// Transform is a world-space position and orientation.
type Transform struct {
	Position    mgl64.Vec3 `json:"position"`
	Orientation mgl64.Quat `json:"orientation"`
}

// IdentityTransform is the origin with no rotation.
func IdentityTransform() Transform {
	return Transform{Orientation: mgl64.QuatIdent()}
}

// Joint returns the position of joint j and whether it is tracked.
func (s *Skeleton) Joint(j int) (mgl64.Vec3, bool) {
	if j < 0 || j >= NumJoints {
		return mgl64.Vec3{}, false
	}
	joint := s.Joints[j]
	return joint.Position, joint.Tracked
}

// SetJoint marks joint j as tracked at position p.
func (s *Skeleton) SetJoint(j int, p mgl64.Vec3) {
	s.Joints[j] = Joint{Position: p, Tracked: true}
}

// Untrack marks joint j as untracked.
func (s *Skeleton) Untrack(j int) {
	s.Joints[j] = Joint{}
}

// GripCenter is the average of the index knuckle, middle knuckle and palm.
// It reports false if any of the three joints is untracked.
func (s *Skeleton) GripCenter() (mgl64.Vec3, bool) {
	var sum mgl64.Vec3
	for _, j := range [...]int{IndexKnuckle, MiddleKnuckle, Palm} {
		p, ok := s.Joint(j)
		if !ok {
			return mgl64.Vec3{}, false
		}
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / 3.0), true
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b mgl64.Vec3) float64 {
	return a.Sub(b).Len()
}
