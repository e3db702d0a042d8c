package stats

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	durationUs int64
	rejected   bool
}

// Snapshot is a point-in-time aggregate of one operation's samples.
type Snapshot struct {
	Count    int     `json:"count"`
	Rejected int     `json:"rejected"`
	MinUs    int64   `json:"min_us"`
	MaxUs    int64   `json:"max_us"`
	AvgUs    float64 `json:"avg_us"`
	P50Us    float64 `json:"p50_us"`
	P95Us    float64 `json:"p95_us"`
	P99Us    float64 `json:"p99_us"`
}

// MutationStats tracks edit latencies and rejections per operation within a
// rolling window.
type MutationStats struct {
	mu      sync.Mutex
	samples map[string][]sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewMutationStats(maxAge time.Duration) *MutationStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &MutationStats{
		samples: make(map[string][]sample),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one sample for op. A non-nil err counts as a rejection.
func (s *MutationStats) Record(op string, d time.Duration, err error) {
	us := d.Microseconds()
	if us < 0 {
		us = 0
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples[op] = append(prune(s.samples[op], now.Add(-s.maxAge)), sample{
		timestamp:  now,
		durationUs: us,
		rejected:   err != nil,
	})
}

// Time runs fn and records its duration and error under op.
func (s *MutationStats) Time(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.Record(op, time.Since(start), err)
	return err
}

// Snapshot aggregates every operation seen within the window.
func (s *MutationStats) Snapshot() map[string]Snapshot {
	cutoff := s.now().Add(-s.maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Snapshot, len(s.samples))
	for op, samples := range s.samples {
		samples = prune(samples, cutoff)
		s.samples[op] = samples
		if len(samples) == 0 {
			delete(s.samples, op)
			continue
		}
		out[op] = aggregate(samples)
	}
	return out
}

func aggregate(samples []sample) Snapshot {
	values := make([]int64, 0, len(samples))
	var sum int64
	rejected := 0
	for _, sm := range samples {
		values = append(values, sm.durationUs)
		sum += sm.durationUs
		if sm.rejected {
			rejected++
		}
	}
	slices.Sort(values)

	return Snapshot{
		Count:    len(values),
		Rejected: rejected,
		MinUs:    values[0],
		MaxUs:    values[len(values)-1],
		AvgUs:    float64(sum) / float64(len(values)),
		P50Us:    percentile(values, 50),
		P95Us:    percentile(values, 95),
		P99Us:    percentile(values, 99),
	}
}

func prune(samples []sample, cutoff time.Time) []sample {
	writeIdx := 0
	for _, sm := range samples {
		if !sm.timestamp.Before(cutoff) {
			samples[writeIdx] = sm
			writeIdx++
		}
	}
	return samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
