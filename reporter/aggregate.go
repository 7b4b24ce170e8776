package reporter

import (
	"fmt"
	"math"

	"acceptance/toolkit"
)

type Summary struct {
	Total   int     `json:"total"`
	Passed  int     `json:"passed"`
	Failed  int     `json:"failed"`
	Pending int     `json:"pending,omitempty"`
	Rate    float64 `json:"rate"`
	HasRate bool    `json:"has_rate"`
}

// RateText renders the success rate, or "n/a" when nothing was counted.
func (s Summary) RateText() string {
	if !s.HasRate {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", s.Rate)
}

func Summarize(steps []Step) Summary {
	var s Summary
	for _, step := range steps {
		s.Total++
		switch step.Status {
		case StatusSuccess:
			s.Passed++
		case StatusFailed:
			s.Failed++
		default:
			s.Pending++
		}
	}
	s.computeRate()
	return s
}

func SummarizeChecks(results []toolkit.CheckResult) Summary {
	var s Summary
	for _, r := range results {
		s.Total++
		if r.Passed() {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	s.computeRate()
	return s
}

func (s *Summary) computeRate() {
	if s.Total == 0 {
		return
	}
	s.Rate = math.Round(float64(s.Passed)/float64(s.Total)*1000) / 10
	s.HasRate = true
}
