package engine

import (
	"math"

	iface "github.com/aryankeluskar/jigglewiggle/interface"
)

// Normalize rescales and recenters a raw pose into comparison-ready
// form: the hip midpoint becomes the origin and every coordinate is
// divided by max(shoulderWidth, torsoHeight, MinScale). Z is already
// hip-relative in the detector output, so it is scaled but not
// translated. Visibility passes through unchanged and the timestamp is
// converted from milliseconds to seconds.
//
// Returns ok=false when the pose has fewer than NumLandmarks landmarks.
// A short pose must fail outright; truncating it would silently
// misalign the weighted indices downstream.
func Normalize(p iface.Pose) (iface.NormalizedPose, bool) {
	if len(p.Landmarks) < NumLandmarks {
		return iface.NormalizedPose{}, false
	}

	ls := p.Landmarks[LeftShoulder]
	rs := p.Landmarks[RightShoulder]
	lh := p.Landmarks[LeftHip]
	rh := p.Landmarks[RightHip]

	centerX := (lh.X + rh.X) / 2
	centerY := (lh.Y + rh.Y) / 2

	shoulderWidth := math.Hypot(ls.X-rs.X, ls.Y-rs.Y)
	shoulderMidX := (ls.X + rs.X) / 2
	shoulderMidY := (ls.Y + rs.Y) / 2
	torsoHeight := math.Hypot(shoulderMidX-centerX, shoulderMidY-centerY)

	scale := math.Max(shoulderWidth, torsoHeight)
	if scale < MinScale {
		scale = MinScale
	}

	out := iface.NormalizedPose{
		Landmarks: make([]iface.Landmark, len(p.Landmarks)),
		Scale:     scale,
		CenterX:   centerX,
		CenterY:   centerY,
		Timestamp: p.TimestampMs / 1000.0,
	}
	for i, lm := range p.Landmarks {
		out.Landmarks[i] = iface.Landmark{
			X:          (lm.X - centerX) / scale,
			Y:          (lm.Y - centerY) / scale,
			Z:          lm.Z / scale,
			Visibility: lm.Visibility,
		}
	}
	return out, true
}
