package iface

import "gocv.io/x/gocv"

// Landmark is one anatomical keypoint. X and Y are normalized to [0,1]
// relative to the frame, Z is depth relative to the hip midpoint,
// Visibility is the detector's confidence in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Pose is the raw detector output: exactly 33 landmarks in fixed
// anatomical order. TimestampMs is the capture time in milliseconds,
// 0 when the detector did not supply one.
type Pose struct {
	Landmarks   []Landmark `json:"landmarks"`
	TimestampMs float64    `json:"timestampMs"`
}

// NormalizedPose is a Pose translated so the hip midpoint is the origin
// and scaled by 1/Scale. Timestamp is in seconds.
type NormalizedPose struct {
	Landmarks []Landmark
	Scale     float64
	CenterX   float64
	CenterY   float64
	Timestamp float64
}

// PoseComparison is the result of scoring one live pose against one
// reference pose. A fresh value is produced on every comparison.
type PoseComparison struct {
	DeviationScore    float64   `json:"deviationScore"`
	KeypointDistances []float64 `json:"keypointDistances"`
	Confidence        float64   `json:"confidence"`
	Timestamp         float64   `json:"timestamp"`
}

type RetData struct {
	Success bool
	Data    any
}

// Frame is an explicit "latest decoded frame" snapshot. Pix is RGBA
// interleaved, len = Width*Height*4. Sources copy into the caller's
// Frame so the caller never touches source-owned decode state.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// Resize grows Pix if needed and sets the dimensions. Contents after a
// growing resize are undefined.
func (f *Frame) Resize(w, h int) {
	n := w * h * 4
	if cap(f.Pix) < n {
		f.Pix = make([]uint8, n)
	}
	f.Pix = f.Pix[:n]
	f.Width = w
	f.Height = h
}

// PoseDetector is the external landmark-extraction capability. The
// engine never performs pose detection itself.
type PoseDetector interface {
	Detect(frame gocv.Mat) (Pose, error)
	Close() error
}

// FrameSource yields the currently decoded frame of a live camera or a
// playable reference stream. Snapshot is a non-blocking copy; it
// returns false when no frame is ready yet. Stop must release the
// underlying device before returning.
type FrameSource interface {
	Start() error
	Snapshot(dst *Frame) bool
	Stop() error
}
