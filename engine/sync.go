package engine

import (
	"math"

	iface "github.com/aryankeluskar/jigglewiggle/interface"
)

// FindClosestPose returns the reference pose whose Timestamp (seconds)
// is nearest the query, by full linear scan. Reference streams are a
// few seconds of video at low sampling rate, so the scan is cheap and
// makes no sortedness assumption. Ties go to the first minimal element
// in iteration order. ok is false only for an empty sequence.
func FindClosestPose(refs []iface.NormalizedPose, query float64) (iface.NormalizedPose, bool) {
	if len(refs) == 0 {
		return iface.NormalizedPose{}, false
	}
	best := 0
	bestDist := math.Abs(refs[0].Timestamp - query)
	for i := 1; i < len(refs); i++ {
		if d := math.Abs(refs[i].Timestamp - query); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return refs[best], true
}
