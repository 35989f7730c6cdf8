package machine

import "math"

// RunningStats accumulates probe readings, keeping summary statistics
// current after every added sample.
type RunningStats struct {
	samples []float64

	Mean  float64
	Sigma float64
	Min   float64
	Max   float64
}

func NewRunningStats() *RunningStats {
	return &RunningStats{Min: 99999.9, Max: -99999.9}
}

// Add appends a reading and recomputes mean and deviation over every
// sample seen so far.
func (s *RunningStats) Add(v float64) {
	s.samples = append(s.samples, v)

	var sum float64
	for _, z := range s.samples {
		sum += z
	}
	s.Mean = sum / float64(len(s.samples))

	s.Min = math.Min(s.Min, v)
	s.Max = math.Max(s.Max, v)

	sum = 0
	for _, z := range s.samples {
		d := z - s.Mean
		sum += d * d
	}
	s.Sigma = math.Sqrt(sum / float64(len(s.samples)))
}

// Count will return the number of samples added so far.
func (s *RunningStats) Count() int { return len(s.samples) }

// Samples will return a copy of the readings added so far.
func (s *RunningStats) Samples() []float64 {
	return append([]float64(nil), s.samples...)
}

func (s *RunningStats) result() *RepeatResult {
	return &RepeatResult{
		Samples: s.Samples(),
		Mean:    s.Mean,
		Sigma:   s.Sigma,
		Min:     s.Min,
		Max:     s.Max,
	}
}
