package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"acceptance/browser"
	"acceptance/reporter"
)

// Session is the handle a procedure drives during one run.
type Session struct {
	Env    *Env
	Run    *reporter.TestRun
	Driver browser.Driver

	logger *zap.Logger
}

// Step runs fn and records its outcome. A failing or panicking step aborts
// the procedure with a *reporter.StepError.
func (s *Session) Step(name string, fn func() (string, error)) error {
	details, err := invoke(fn)
	if err != nil {
		s.logger.Warn("scenario.step: failed", zap.String("step", name), zap.Error(err))
		return s.Run.Track(name, reporter.Result{Message: failureText(err)})
	}
	s.logger.Debug("scenario.step: done", zap.String("step", name))
	return s.Run.Track(name, reporter.Succeeded(details))
}

// TryStep records a best-effort step. Failures are recorded but do not stop
// the procedure.
func (s *Session) TryStep(name string, fn func() (string, error)) bool {
	details, err := invoke(fn)
	if err != nil {
		s.logger.Info("scenario.step: skipped", zap.String("step", name), zap.Error(err))
		s.Run.Record(name, reporter.StatusFailed, failureText(err))
		return false
	}
	s.Run.Record(name, reporter.StatusSuccess, details)
	return true
}

// Verify records the final assertion and settles the run status. A failed
// verification yields a FAILED run; a panicking one an ERROR run.
func (s *Session) Verify(name string, fn func() (string, error)) {
	details, err := invoke(fn)
	if err != nil {
		status, msg := reporter.StatusFailed, err.Error()
		var pe *panicError
		if errors.As(err, &pe) {
			status = reporter.StatusError
		}
		s.Run.Record(name, reporter.StatusFailed, msg)
		s.Run.AddError(name + ": " + msg)
		s.Run.Finalize(status)
		s.logger.Warn("scenario.verify: failed", zap.String("step", name), zap.Error(err))
		return
	}
	s.Run.Record(name, reporter.StatusSuccess, details)
	if details != "" {
		s.Run.AddSuccess(details)
	}
	s.Run.Finalize(reporter.StatusSuccess)
}

func (s *Session) Input(key, value string) {
	s.Run.SetInput(key, value)
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// invoke runs fn and reports a panic inside it as a *panicError.
func invoke(fn func() (string, error)) (details string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return fn()
}

func failureText(err error) string {
	var pe *panicError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	return "Error: " + err.Error()
}

var errConditionTimeout = errors.New("condition not met in time")

// waitUntil polls cond until it reports true, the timeout elapses, or ctx
// ends. The last error from cond is wrapped into a timeout.
func (s *Session) waitUntil(ctx context.Context, timeout time.Duration, cond func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(s.Env.pollInterval())
	defer ticker.Stop()

	var last error
	for {
		ok, err := cond(ctx)
		if ok {
			return nil
		}
		last = err
		select {
		case <-ctx.Done():
			if last != nil {
				return fmt.Errorf("%w: %w", errConditionTimeout, last)
			}
			return errConditionTimeout
		case <-ticker.C:
		}
	}
}
