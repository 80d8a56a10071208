package searcher

import "math"

// Stats is the statistics record of one node. It tracks a Welford running
// mean and variance over every pushed result, win/loss/draw counters and an
// optional solved sentinel. Once windowed, Mean and N only see the most
// recent results.
type Stats struct {
	visits int
	mean   float64
	m2     float64
	wins   int
	losses int
	draws  int
	solved float64

	window []float64
	head   int
	filled int
}

func (s *Stats) Push(v float64) {
	s.visits++
	if s.solved != 0 {
		return
	}
	switch {
	case v > 0:
		s.wins++
	case v < 0:
		s.losses++
	default:
		s.draws++
	}
	delta := v - s.mean
	s.mean += delta / float64(s.visits)
	s.m2 += delta * (v - s.mean)
	if s.window != nil {
		s.window[s.head] = v
		s.head = (s.head + 1) % len(s.window)
		if s.filled < len(s.window) {
			s.filled++
		}
	}
}

// PushN folds v in k times.
func (s *Stats) PushN(v float64, k int) {
	for i := 0; i < k; i++ {
		s.Push(v)
	}
}

// Solve pins the record to a proven value, +Inf for a win and -Inf for a
// loss. Later pushes only count visits.
func (s *Stats) Solve(v float64) {
	if !math.IsInf(v, 0) {
		panic("solved value must be infinite")
	}
	s.solved = v
}

func (s *Stats) Solved() bool {
	return s.solved != 0
}

// Value is the solved sentinel if any, else the mean.
func (s *Stats) Value() float64 {
	if s.solved != 0 {
		return s.solved
	}
	return s.Mean()
}

func (s *Stats) Mean() float64 {
	if s.solved != 0 {
		return s.solved
	}
	if s.filled > 0 {
		sum := 0.0
		for _, v := range s.window[:s.filled] {
			sum += v
		}
		return sum / float64(s.filled)
	}
	return s.mean
}

func (s *Stats) Variance() float64 {
	if s.solved != 0 {
		return 0
	}
	if s.filled > 1 {
		mean := s.Mean()
		sq := 0.0
		for _, v := range s.window[:s.filled] {
			sq += (v - mean) * (v - mean)
		}
		return sq / float64(s.filled)
	}
	if s.visits < 2 {
		return 0
	}
	return s.m2 / float64(s.visits)
}

// Visits is the all-time visit count.
func (s *Stats) Visits() int {
	return s.visits
}

// N is the count used as the exploration denominator: the window fill once
// windowed, else the visit count.
func (s *Stats) N() int {
	if s.filled > 0 {
		return s.filled
	}
	return s.visits
}

// SetWindow switches the record to averaging over the last size results.
// It is a no-op once a window is set.
func (s *Stats) SetWindow(size int) {
	if size <= 0 || s.window != nil {
		return
	}
	s.window = make([]float64, size)
}

func (s *Stats) Windowed() bool {
	return s.window != nil
}

func (s *Stats) Outcomes() (wins, losses, draws int) {
	return s.wins, s.losses, s.draws
}
