package perfstats

import (
	"fmt"
	"strings"
	"time"
)

// Accumulate samples of how long something took
type TimeAccumulator struct {
	Samples int64
	Total   time.Duration
}

func (a *TimeAccumulator) Reset() {
	a.Samples = 0
	a.Total = 0
}

func (a *TimeAccumulator) AddSample(v time.Duration) {
	a.Samples++
	a.Total += v
}

func (a *TimeAccumulator) Average() time.Duration {
	if a.Samples == 0 {
		return 0
	}
	return time.Duration(a.Total.Nanoseconds() / a.Samples)
}

// Stages measures the named steps of a batch job, such as "load", "draw", "write".
// Stages are reported in the order in which they were first seen.
type Stages struct {
	names []string
	acc   map[string]*TimeAccumulator
}

func NewStages() *Stages {
	return &Stages{
		acc: map[string]*TimeAccumulator{},
	}
}

// Add the time elapsed since start to the named stage.
// Intended use is "start := time.Now(); ...; stages.Since("load", start)".
func (s *Stages) Since(name string, start time.Time) {
	s.Add(name, time.Since(start))
}

func (s *Stages) Add(name string, d time.Duration) {
	a := s.acc[name]
	if a == nil {
		a = &TimeAccumulator{}
		s.acc[name] = a
		s.names = append(s.names, name)
	}
	a.AddSample(d)
}

func (s *Stages) Get(name string) TimeAccumulator {
	if a := s.acc[name]; a != nil {
		return *a
	}
	return TimeAccumulator{}
}

// Summary returns the average of each stage, eg "load: 12ms, draw: 3.1ms"
func (s *Stages) Summary() string {
	parts := make([]string, 0, len(s.names))
	for _, n := range s.names {
		parts = append(parts, fmt.Sprintf("%v: %v", n, s.acc[n].Average().Round(10*time.Microsecond)))
	}
	return strings.Join(parts, ", ")
}
