package reporter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// tickingClock advances one second per reading.
func tickingClock(start time.Time) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(time.Second)
		return t
	}
}

func TestRecordKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	run := NewRun("login", "Login")
	run.Record("open page", StatusSuccess, "")
	run.Record("type email", StatusSuccess, "ana@example.com")
	run.Record("submit", StatusFailed, "button missing")

	steps := run.Steps()
	require.Len(t, steps, 3)
	require.Equal(t, "open page", steps[0].Name)
	require.Equal(t, "type email", steps[1].Name)
	require.Equal(t, StatusFailed, steps[2].Status)
	require.True(t, run.HasFailedSteps())

	steps[0].Name = "mutated"
	require.Equal(t, "open page", run.Steps()[0].Name)
}

func TestFinalizeFirstWriteWins(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run := newRunWithClock("quiz", "", tickingClock(start))
	require.Equal(t, StatusPending, run.Status)
	require.False(t, run.Finalized())

	require.True(t, run.Finalize(StatusFailed))
	end := *run.EndTime
	duration := run.Duration()
	require.Equal(t, time.Second, duration)

	require.False(t, run.Finalize(StatusSuccess))
	require.Equal(t, StatusFailed, run.Status)
	require.Equal(t, end, *run.EndTime)
	require.Equal(t, duration, run.Duration())
}

func TestFinalizeRejectsPending(t *testing.T) {
	t.Parallel()

	run := NewRun("signup", "")
	require.True(t, run.Finalize(StatusPending))
	require.Equal(t, StatusError, run.Status)
}

func TestTrackFailureReturnsStepError(t *testing.T) {
	t.Parallel()

	run := NewRun("upload", "")
	require.NoError(t, run.Track("open form", Succeeded("form visible")))

	err := run.Track("choose file", FromError("", errors.New("no such file")))
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, "choose file", stepErr.Step)

	steps := run.Steps()
	require.Len(t, steps, 2)
	require.Equal(t, StatusSuccess, steps[0].Status)
	require.Equal(t, StatusFailed, steps[1].Status)
	require.Equal(t, "Error: no such file", steps[1].Details)
	require.Len(t, run.Errors, 1)
	require.Contains(t, run.Errors[0].Text, "choose file")
}

func TestInputsKeepOrder(t *testing.T) {
	t.Parallel()

	run := NewRun("signup", "")
	run.SetInput("Nombre", "Ana")
	run.SetInput("Correo", "ana@example.com")
	run.SetInput("Nombre", "Ana María")

	var keys []string
	for pair := run.Inputs.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	require.Equal(t, []string{"Nombre", "Correo"}, keys)
	v, _ := run.Inputs.Get("Nombre")
	require.Equal(t, "Ana María", v)
}

func TestZeroValueRunIsUsable(t *testing.T) {
	t.Parallel()

	run := &TestRun{Suite: "adhoc"}
	doc := BuildDocument(run, DocumentOptions{})
	require.Empty(t, doc.Inputs)

	run.Record("open", StatusSuccess, "home")
	require.Error(t, run.Track("click", Failed("missing %s", "button")))
	run.SetInput("Correo", "ana@example.com")
	require.True(t, run.Finalize(StatusFailed))
	require.False(t, run.EndTime.IsZero())
	require.False(t, run.Steps()[0].Timestamp.IsZero())
	require.False(t, run.Errors[0].Timestamp.IsZero())

	doc = BuildDocument(run, DocumentOptions{})
	require.Equal(t, []Row{{Label: "Correo", Value: "ana@example.com"}}, doc.Inputs)
	require.Len(t, doc.Steps, 2)
}
