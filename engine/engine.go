package engine

import (
	"fmt"

	iface "github.com/aryankeluskar/jigglewiggle/interface"
	"github.com/aryankeluskar/jigglewiggle/logger"
	"go.uber.org/zap"
)

// Result is what one comparison tick hands back to the caller: the raw
// comparison plus the session-smoothed display values.
type Result struct {
	Comparison   iface.PoseComparison `json:"comparison"`
	Smoothed     float64              `json:"smoothed"`
	MatchPercent float64              `json:"matchPercent"`
	Rating       string               `json:"rating"`
}

// Comparator drives the per-pose pipeline: Normalize the live pose,
// pick the time-closest reference, score, smooth. One Comparator
// serves one comparison session and owns its Smoother; reference poses
// are normalized once at load and treated as immutable afterwards.
type Comparator struct {
	Reference    []iface.NormalizedPose
	State        int
	ErrorMessage string

	smoother *Smoother
	last     Result
	hasLast  bool
}

func (c *Comparator) New() bool {
	c.smoother = NewSmoother(DefaultWindowSize)
	c.State = REGISTERED
	return true
}

// LoadReference normalizes a reference pose stream. Short poses are
// skipped, not truncated. Returns the number of usable poses; zero
// usable poses is an error and leaves the comparator in REGISTERED.
func (c *Comparator) LoadReference(poses []iface.Pose) (int, error) {
	if c.State == UNREGISTERED {
		return 0, fmt.Errorf("comparator not registered")
	}
	refs := make([]iface.NormalizedPose, 0, len(poses))
	skipped := 0
	for _, p := range poses {
		np, ok := Normalize(p)
		if !ok {
			skipped++
			continue
		}
		refs = append(refs, np)
	}
	if skipped > 0 {
		logger.Log().Warn("skipped incomplete reference poses",
			zap.Int("skipped", skipped), zap.Int("loaded", len(refs)))
	}
	if len(refs) == 0 {
		return 0, fmt.Errorf("no usable reference poses in %d supplied", len(poses))
	}
	c.Reference = refs
	c.State = IDLE
	return len(refs), nil
}

// Update runs one comparison tick for a live pose. A short pose is a
// skippable input-shape error: the previous result is kept and
// Success=false reports why. An empty reference set is a valid steady
// state and freezes the last known result.
func (c *Comparator) Update(live iface.Pose) iface.RetData {
	switch c.State {
	case 0, UNREGISTERED:
		return iface.RetData{Success: false, Data: "Comparator not registered"}
	case REGISTERED:
		return iface.RetData{Success: false, Data: "Reference stream not loaded"}
	case BUSY:
		return iface.RetData{Success: false, Data: "Comparator is busy"}
	}
	c.State = BUSY
	defer func() { c.State = IDLE }()

	normalized, ok := Normalize(live)
	if !ok {
		return iface.RetData{Success: false, Data: "incomplete pose, keeping previous score"}
	}

	ref, ok := FindClosestPose(c.Reference, normalized.Timestamp)
	if !ok {
		if c.hasLast {
			return iface.RetData{Success: true, Data: c.last}
		}
		return iface.RetData{Success: false, Data: "no reference available"}
	}

	cmp := Compare(ref, normalized)
	smoothed := c.smoother.Push(cmp.DeviationScore)
	c.last = Result{
		Comparison:   cmp,
		Smoothed:     smoothed,
		MatchPercent: c.smoother.MatchPercent(),
		Rating:       c.smoother.Rating(),
	}
	c.hasLast = true
	return iface.RetData{Success: true, Data: c.last}
}

// Last returns the most recent result, ok=false before the first
// successful comparison.
func (c *Comparator) Last() (Result, bool) {
	return c.last, c.hasLast
}

func (c *Comparator) Destroy() {
	c.Reference = nil
	c.smoother = nil
	c.hasLast = false
	c.State = UNREGISTERED
}
