package engine

import (
	"math"

	iface "github.com/aryankeluskar/jigglewiggle/interface"
)

// Compare scores a live pose against a reference pose. Landmark pairs
// where both sides are visible contribute their weighted 3-D Euclidean
// distance; pairs where either side is invisible are charged
// PenaltyDistance times the weight instead of being skipped. The final
// score is min(100, weightedMean * ScoreScale); lower is a better
// match. Confidence is the mean of min(visRef, visCur) over the shared
// indices.
//
// Compare has no side effects and returns a fresh PoseComparison; when
// either pose is empty it returns the NoMatchScore sentinel rather
// than dividing by zero.
func Compare(reference, current iface.NormalizedPose) iface.PoseComparison {
	n := len(reference.Landmarks)
	if len(current.Landmarks) < n {
		n = len(current.Landmarks)
	}

	cmp := iface.PoseComparison{
		KeypointDistances: make([]float64, n),
		Timestamp:         current.Timestamp,
	}

	var weightedSum, totalWeight, confSum float64
	for i := 0; i < n; i++ {
		ref := reference.Landmarks[i]
		cur := current.Landmarks[i]
		w := Weight(i)

		var d float64
		if ref.Visibility > VisibilityFloor && cur.Visibility > VisibilityFloor {
			dx := ref.X - cur.X
			dy := ref.Y - cur.Y
			dz := ref.Z - cur.Z
			d = math.Sqrt(dx*dx + dy*dy + dz*dz)
			// Only trustworthy pairs earn a place in the denominator;
			// penalties inflate the numerator alone, so a pose that is
			// fully out of frame pins at the no-match sentinel instead
			// of averaging down to a plausible-looking score.
			totalWeight += w
		} else {
			d = PenaltyDistance
		}
		cmp.KeypointDistances[i] = d
		weightedSum += d * w
		confSum += math.Min(ref.Visibility, cur.Visibility)
	}

	// Confidence is defined over the shared indices regardless of
	// whether anything was comparable.
	if n > 0 {
		cmp.Confidence = confSum / float64(n)
	}

	if totalWeight == 0 {
		cmp.DeviationScore = NoMatchScore
		return cmp
	}

	cmp.DeviationScore = math.Min(NoMatchScore, weightedSum/totalWeight*ScoreScale)
	return cmp
}
