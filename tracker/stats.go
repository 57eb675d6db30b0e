package tracker

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
)

// Stats accumulates per-frame outcomes over a run.
type Stats struct {
	clock     clock.Clock
	start     time.Time
	last      time.Time
	frames    int
	outcomes  map[Outcome]int
	distances []float64
}

// NewStats starts collecting. A nil clk uses the wall clock.
func NewStats(clk clock.Clock) *Stats {
	if clk == nil {
		clk = clock.New()
	}
	now := clk.Now()
	return &Stats{clock: clk, start: now, last: now, outcomes: map[Outcome]int{}}
}

// Observe records one frame's result.
func (s *Stats) Observe(r Result) {
	s.frames++
	s.last = s.clock.Now()
	s.outcomes[r.Outcome]++
	if r.Outcome == Tracked && r.Pose != nil {
		s.distances = append(s.distances, r.Pose.Distance())
	}
}

// Summary describes a run. Distance fields are in meters and zero when nothing was tracked.
type Summary struct {
	Frames           int
	NoMarker         int
	EstimationFailed int
	Tracked          int
	Elapsed          time.Duration
	FPS              float64

	DistanceMean   float64
	DistanceMedian float64
	DistanceStdDev float64
	DistanceMin    float64
	DistanceMax    float64
}

// Summary returns the statistics of the frames observed so far.
func (s *Stats) Summary() Summary {
	sum := Summary{
		Frames:           s.frames,
		NoMarker:         s.outcomes[NoMarker],
		EstimationFailed: s.outcomes[EstimationFailed],
		Tracked:          s.outcomes[Tracked],
		Elapsed:          s.last.Sub(s.start),
	}
	if sum.Elapsed > 0 {
		sum.FPS = float64(s.frames) / sum.Elapsed.Seconds()
	}
	if len(s.distances) == 0 {
		return sum
	}
	// the inputs are non-empty so these cannot fail
	//nolint:errcheck
	sum.DistanceMean, _ = stats.Mean(s.distances)
	//nolint:errcheck
	sum.DistanceMedian, _ = stats.Median(s.distances)
	//nolint:errcheck
	sum.DistanceStdDev, _ = stats.StandardDeviation(s.distances)
	//nolint:errcheck
	sum.DistanceMin, _ = stats.Min(s.distances)
	//nolint:errcheck
	sum.DistanceMax, _ = stats.Max(s.distances)
	return sum
}

// String prints the summary as a table.
func (sum Summary) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"frames", sum.Frames})
	t.AppendRow(table.Row{NoMarker.String(), sum.NoMarker})
	t.AppendRow(table.Row{EstimationFailed.String(), sum.EstimationFailed})
	t.AppendRow(table.Row{Tracked.String(), sum.Tracked})
	t.AppendRow(table.Row{"elapsed", sum.Elapsed.Round(time.Millisecond).String()})
	t.AppendRow(table.Row{"fps", fmt.Sprintf("%.1f", sum.FPS)})
	if sum.Tracked > 0 {
		t.AppendRow(table.Row{
			"distance (m)",
			fmt.Sprintf("mean %.3f, median %.3f, sd %.3f, min %.3f, max %.3f",
				sum.DistanceMean, sum.DistanceMedian, sum.DistanceStdDev, sum.DistanceMin, sum.DistanceMax),
		})
	}
	return t.Render()
}
