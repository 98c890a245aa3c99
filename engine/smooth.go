package engine

const (
	HistorySize       = 10
	DefaultWindowSize = 5
)

// Rating buckets for the smoothed deviation score. Bands are half-open
// at the lower bound; 100 falls into RatingPoor.
const (
	RatingExcellent = "excellent"
	RatingGood      = "good"
	RatingFair      = "fair"
	RatingNeedsWork = "needs-work"
	RatingPoor      = "poor"
)

// Smoother keeps the last HistorySize raw deviation scores and exposes
// a moving average over the newest windowSize of them. One Smoother is
// constructed per comparison session; it is the only engine state that
// outlives a single call.
type Smoother struct {
	history    []float64
	windowSize int
}

func NewSmoother(windowSize int) *Smoother {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Smoother{
		history:    make([]float64, 0, HistorySize),
		windowSize: windowSize,
	}
}

// Push records a raw score, evicting the oldest entry when the history
// is full, and returns the new smoothed value.
func (s *Smoother) Push(score float64) float64 {
	if len(s.history) == HistorySize {
		copy(s.history, s.history[1:])
		s.history = s.history[:HistorySize-1]
	}
	s.history = append(s.history, score)
	return s.Smoothed()
}

// Smoothed returns the moving average over the last windowSize history
// entries, 0 when no scores have been pushed.
func (s *Smoother) Smoothed() float64 {
	return MovingAverage(s.history, s.windowSize)
}

// MatchPercent maps the smoothed score onto a 0-100 "how well am I
// doing" value, higher is better.
func (s *Smoother) MatchPercent() float64 {
	p := 100 - s.Smoothed()
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Rating buckets the smoothed score for display.
func (s *Smoother) Rating() string {
	return RatingFor(s.Smoothed())
}

func RatingFor(score float64) string {
	switch {
	case score < 20:
		return RatingExcellent
	case score < 40:
		return RatingGood
	case score < 60:
		return RatingFair
	case score < 80:
		return RatingNeedsWork
	default:
		return RatingPoor
	}
}

// MovingAverage averages the last windowSize values, or all of them
// when fewer are present. An empty input averages to 0.
func MovingAverage(values []float64, windowSize int) float64 {
	if len(values) == 0 {
		return 0
	}
	if windowSize <= 0 || windowSize > len(values) {
		windowSize = len(values)
	}
	var sum float64
	for _, v := range values[len(values)-windowSize:] {
		sum += v
	}
	return sum / float64(windowSize)
}
