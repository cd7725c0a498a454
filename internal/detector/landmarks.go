package detector

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/mjolnir/internal/hand"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (p Point3D) vec() mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y, p.Z}
}

// Landmarks is one MediaPipe hand result. Image holds normalized image
// coordinates (x, y in [0,1], y down); World holds metric coordinates
// relative to the hand's geometric center (y down).
type Landmarks struct {
	Image      [NumLandmarks]Point3D `json:"image"`
	World      [NumLandmarks]Point3D `json:"world"`
	Count      int                   `json:"count"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// directJoints maps skeleton joints to the MediaPipe landmark they copy.
var directJoints = map[int]int{
	hand.Wrist:         Wrist,
	hand.ThumbTip:      ThumbTip,
	hand.IndexKnuckle:  IndexMCP,
	hand.IndexTip:      IndexTip,
	hand.MiddleKnuckle: MiddleMCP,
	hand.MiddleTip:     MiddleTip,
	hand.RingKnuckle:   RingMCP,
	hand.RingTip:       RingTip,
	hand.LittleKnuckle: PinkyMCP,
	hand.LittleTip:     PinkyTip,
}

// palmLandmarks are averaged into the palm joint.
var palmLandmarks = [...]int{Wrist, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}

// ToSkeleton converts MediaPipe landmarks into a world-space skeleton.
//
// The world frame is camera-centred with +Y up and -Z away from the viewer.
// The hand is placed where its wrist appears in the image, Depth metres in
// front of the camera; the metric landmarks then give its shape. Landmarks
// beyond Count are treated as untracked.
func ToSkeleton(lm Landmarks, config Config) (hand.Skeleton, error) {
	side, err := hand.ParseSide(lm.Handedness)
	if err != nil {
		return hand.Skeleton{}, err
	}

	s := hand.Skeleton{Side: side, Orientation: mgl64.QuatIdent()}

	count := lm.Count
	if count <= 0 || count > NumLandmarks {
		count = NumLandmarks
	}

	origin := placement(lm.Image[Wrist], config)
	wristLocal := toWorldAxes(lm.World[Wrist].vec())
	world := func(i int) mgl64.Vec3 {
		return origin.Add(toWorldAxes(lm.World[i].vec()).Sub(wristLocal))
	}

	for joint, landmark := range directJoints {
		if landmark < count {
			s.SetJoint(joint, world(landmark))
		}
	}

	if PinkyMCP < count {
		var sum mgl64.Vec3
		for _, i := range palmLandmarks {
			sum = sum.Add(world(i))
		}
		s.SetJoint(hand.Palm, sum.Mul(1/float64(len(palmLandmarks))))
		s.Orientation = orientation(world(Wrist), world(IndexMCP), world(MiddleMCP), world(PinkyMCP))
	}

	return s, nil
}

// placement projects a normalized image point to Depth metres in front of
// the camera.
func placement(p Point3D, config Config) mgl64.Vec3 {
	halfWidth := config.Depth * math.Tan(mgl64.DegToRad(config.FieldOfView)/2)
	aspect := config.AspectRatio
	if aspect <= 0 {
		aspect = 1
	}
	halfHeight := halfWidth / aspect
	return mgl64.Vec3{
		(p.X - 0.5) * 2 * halfWidth,
		(0.5 - p.Y) * 2 * halfHeight,
		-config.Depth,
	}
}

// toWorldAxes converts MediaPipe's y-down, z-away metric axes into the
// world frame.
func toWorldAxes(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), -v.Y(), -v.Z()}
}

// orientation builds the hand rotation from its palm plane: +Y runs from
// the wrist to the middle knuckle, +X across the knuckles from little to
// index finger, and +Z is their right-handed normal.
func orientation(wrist, indexMCP, middleMCP, pinkyMCP mgl64.Vec3) mgl64.Quat {
	up := middleMCP.Sub(wrist)
	across := indexMCP.Sub(pinkyMCP)
	if up.Len() < 1e-9 || across.Len() < 1e-9 {
		return mgl64.QuatIdent()
	}
	up = up.Normalize()

	across = across.Sub(up.Mul(across.Dot(up)))
	if across.Len() < 1e-9 {
		return mgl64.QuatIdent()
	}
	across = across.Normalize()
	normal := across.Cross(up)

	return mgl64.Mat4ToQuat(mgl64.Mat3FromCols(across, up, normal).Mat4()).Normalize()
}
