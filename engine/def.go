package engine

// Landmark indices, MediaPipe Pose convention. Every pose in the system
// shares this indexing; the weight table and the scorer depend on it.
const (
	Nose = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
	NumLandmarks = 33
)

const UNREGISTERED = 0x0001
const REGISTERED = 0x0002
const IDLE = 0x0003
const BUSY = 0x0004

// VisibilityFloor: landmark pairs where either side is at or below this
// are treated as discordant and charged the full penalty distance, so
// staying out of frame can never improve the score.
const VisibilityFloor = 0.5

// PenaltyDistance is the fixed distance charged per invisible pair.
const PenaltyDistance = 1.0

// ScoreScale maps the observed ~0-2 normalized-distance range onto
// 0-100. NoMatchScore is the sentinel when nothing could be compared.
const ScoreScale = 50.0
const NoMatchScore = 100.0

// MinScale floors the normalization divisor for degenerate poses.
const MinScale = 1e-6

// landmarkWeights holds the non-default entries of the weight table.
// Indices without an entry weigh 1.0. Limbs dominate the score, the
// face contributes little.
var landmarkWeights = map[int]float64{
	Nose:          0.5,
	LeftShoulder:  1.3,
	RightShoulder: 1.3,
	LeftElbow:     1.2,
	RightElbow:    1.2,
	LeftWrist:     1.5,
	RightWrist:    1.5,
	LeftHip:       1.3,
	RightHip:      1.3,
	LeftKnee:      1.2,
	RightKnee:     1.2,
	LeftAnkle:     1.5,
	RightAnkle:    1.5,
}

// Weight returns the scoring weight for a landmark index, 1.0 when the
// table has no entry.
func Weight(index int) float64 {
	if w, ok := landmarkWeights[index]; ok {
		return w
	}
	return 1.0
}
