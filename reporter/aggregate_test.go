package reporter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"acceptance/toolkit"
)

func TestSummarizeSteps(t *testing.T) {
	t.Parallel()

	var steps []Step
	for i := 0; i < 4; i++ {
		steps = append(steps, Step{Status: StatusSuccess})
	}
	steps = append(steps, Step{Status: StatusFailed})

	s := Summarize(steps)
	require.Equal(t, 5, s.Total)
	require.Equal(t, 4, s.Passed)
	require.Equal(t, 1, s.Failed)
	require.True(t, s.HasRate)
	require.Equal(t, 80.0, s.Rate)
	require.Equal(t, "80.0%", s.RateText())
}

func TestSummarizeRoundsToOneDecimal(t *testing.T) {
	t.Parallel()

	s := Summarize([]Step{{Status: StatusSuccess}, {Status: StatusSuccess}, {Status: StatusFailed}})
	require.Equal(t, 66.7, s.Rate)
	require.Equal(t, "66.7%", s.RateText())
}

func TestSummarizeCountsPending(t *testing.T) {
	t.Parallel()

	s := Summarize([]Step{{Status: StatusSuccess}, {Status: StatusPending}})
	require.Equal(t, 2, s.Total)
	require.Equal(t, 1, s.Pending)
	require.Equal(t, 50.0, s.Rate)
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	for _, s := range []Summary{Summarize(nil), SummarizeChecks(nil)} {
		require.Zero(t, s.Total)
		require.Zero(t, s.Passed)
		require.Zero(t, s.Failed)
		require.False(t, s.HasRate)
		require.Equal(t, "n/a", s.RateText())
	}
}

func TestSummarizeChecks(t *testing.T) {
	t.Parallel()

	s := SummarizeChecks([]toolkit.CheckResult{
		{Status: toolkit.CheckPassed},
		{Status: toolkit.CheckFailed},
		{Status: toolkit.CheckPassed},
		{Status: toolkit.CheckPassed},
	})
	require.Equal(t, 4, s.Total)
	require.Equal(t, 3, s.Passed)
	require.Equal(t, 1, s.Failed)
	require.Equal(t, "75.0%", s.RateText())
}
