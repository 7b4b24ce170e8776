package reporter

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
	StatusError   Status = "ERROR"
)

// Terminal reports whether s ends a run.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusError
}

type Step struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

type Message struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// TestRun is the record of one procedure execution. It is owned by a single
// goroutine and is not safe for concurrent use.
type TestRun struct {
	ID              string
	Suite           string
	Title           string
	StartTime       time.Time
	EndTime         *time.Time
	Status          Status
	Errors          []Message
	SuccessMessages []string
	Inputs          *orderedmap.OrderedMap[string, string]
	FinalURL        string
	ScreenshotPath  string

	steps []Step
	clock func() time.Time
}

func NewRun(suite, title string) *TestRun {
	return newRunWithClock(suite, title, time.Now)
}

func newRunWithClock(suite, title string, clock func() time.Time) *TestRun {
	return &TestRun{
		ID:        uuid.NewString(),
		Suite:     suite,
		Title:     title,
		StartTime: clock(),
		Status:    StatusPending,
		Inputs:    orderedmap.New[string, string](),
		clock:     clock,
	}
}

// Record appends a step stamped with the current time.
func (r *TestRun) Record(name string, status Status, details string) {
	r.steps = append(r.steps, Step{
		Name:      name,
		Status:    status,
		Details:   details,
		Timestamp: r.now(),
	})
}

// Track records res as a step. A failed result is also added to the error
// messages and returned as a *StepError.
func (r *TestRun) Track(name string, res Result) error {
	if res.OK {
		r.Record(name, StatusSuccess, res.Message)
		return nil
	}
	r.Record(name, StatusFailed, res.Message)
	r.AddError(fmt.Sprintf("%s: %s", name, res.Message))
	return &StepError{Step: name, Message: res.Message}
}

func (r *TestRun) AddError(msg string) {
	r.Errors = append(r.Errors, Message{Text: msg, Timestamp: r.now()})
}

func (r *TestRun) AddSuccess(msg string) {
	r.SuccessMessages = append(r.SuccessMessages, msg)
}

func (r *TestRun) SetInput(key, value string) {
	if r.Inputs == nil {
		r.Inputs = orderedmap.New[string, string]()
	}
	r.Inputs.Set(key, value)
}

func (r *TestRun) SetFinalURL(u string) {
	r.FinalURL = u
}

func (r *TestRun) SetScreenshot(path string) {
	r.ScreenshotPath = path
}

// Finalize sets the terminal status and end time. Only the first call has
// an effect; later calls return false and leave the run untouched.
func (r *TestRun) Finalize(status Status) bool {
	if r.EndTime != nil {
		return false
	}
	if !status.Terminal() {
		status = StatusError
	}
	end := r.now()
	r.EndTime = &end
	r.Status = status
	return true
}

// now falls back to the wall clock for runs not built by NewRun.
func (r *TestRun) now() time.Time {
	if r.clock == nil {
		return time.Now()
	}
	return r.clock()
}

func (r *TestRun) Finalized() bool {
	return r.EndTime != nil
}

// Duration is measured to the end time, or to now while the run is open.
func (r *TestRun) Duration() time.Duration {
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return r.now().Sub(r.StartTime)
}

// Steps returns a copy of the recorded steps in execution order.
func (r *TestRun) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// HasFailedSteps reports whether any recorded step failed.
func (r *TestRun) HasFailedSteps() bool {
	for _, s := range r.steps {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Result is the outcome of one attempted action.
type Result struct {
	OK      bool
	Message string
}

func Succeeded(msg string) Result {
	return Result{OK: true, Message: msg}
}

func Failed(format string, args ...any) Result {
	return Result{OK: false, Message: fmt.Sprintf(format, args...)}
}

// FromError turns an action's return values into a Result.
func FromError(details string, err error) Result {
	if err != nil {
		return Result{OK: false, Message: "Error: " + err.Error()}
	}
	return Result{OK: true, Message: details}
}

// StepError aborts the remaining steps of a procedure.
type StepError struct {
	Step    string
	Message string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %s", e.Step, e.Message)
}
