package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"acceptance/browser"
	"acceptance/config"
	"acceptance/metrics"
	"acceptance/publish"
	"acceptance/reporter"
	"acceptance/toolkit"
)

// Launcher opens a fresh browser session for one run.
type Launcher func(ctx context.Context) (browser.Driver, error)

// Env carries everything a procedure may use. Metrics, Backend and Sinks are
// optional.
type Env struct {
	Config   *config.Config
	Logger   *zap.Logger
	Renderer *reporter.Renderer
	Metrics  *metrics.Collector
	Backend  *toolkit.Client
	Launch   Launcher
	Sinks    *publish.Fanout

	// PollInterval paces condition polling; zero means one second.
	PollInterval time.Duration
}

type Procedure struct {
	Name             string
	Title            string
	NeedsCredentials bool
	Run              func(ctx context.Context, s *Session) error
}

type Outcome struct {
	Run        *reporter.TestRun
	ReportPath string
}

// Execute performs proc end to end. The run is always finalized and
// reported; the returned error only covers report rendering.
func Execute(ctx context.Context, env *Env, proc Procedure) (Outcome, error) {
	run := reporter.NewRun(proc.Name, proc.Title)
	logger := env.logger().With(zap.String("suite", proc.Name), zap.String("run_id", run.ID))
	logger.Info("scenario.execute: start")

	var driver browser.Driver
	defer func() {
		if driver == nil {
			return
		}
		if err := driver.Close(); err != nil {
			logger.Warn("scenario.execute: browser close failed", zap.Error(err))
		}
	}()

	runErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		if proc.NeedsCredentials {
			if err := env.Config.RequireCredentials(); err != nil {
				return err
			}
		}
		d, err := env.Launch(ctx)
		if err != nil {
			return fmt.Errorf("launch browser: %w", err)
		}
		driver = d
		return proc.Run(ctx, &Session{Env: env, Run: run, Driver: d, logger: logger})
	}()

	// Reporting still happens when ctx is cancelled.
	tail := context.WithoutCancel(ctx)

	if runErr != nil {
		var stepErr *reporter.StepError
		if !errors.As(runErr, &stepErr) {
			run.AddError("Unexpected error: " + runErr.Error())
		}
		run.Finalize(reporter.StatusError)
		logger.Error("scenario.execute: run aborted", zap.Error(runErr))
	} else if !run.Finalized() {
		status := reporter.StatusSuccess
		if run.HasFailedSteps() {
			status = reporter.StatusFailed
		}
		run.Finalize(status)
	}
	if run.Status == reporter.StatusError && driver != nil {
		captureFailure(tail, env, driver, run, logger)
	}

	if driver != nil && run.FinalURL == "" {
		lctx, cancel := context.WithTimeout(tail, 5*time.Second)
		if loc, err := driver.Location(lctx); err == nil {
			run.SetFinalURL(loc)
		}
		cancel()
	}

	path, err := env.Renderer.Render(run)
	if err != nil {
		logger.Error("scenario.execute: report failed", zap.Error(err))
	}
	observe(env.Metrics, run)
	if err == nil && env.Sinks.Len() > 0 {
		if perr := env.Sinks.Publish(tail, publish.FromRun(run, path)); perr != nil {
			logger.Warn("scenario.execute: publish incomplete", zap.Error(perr))
		}
	}

	logger.Info("scenario.execute: completed",
		zap.String("status", string(run.Status)),
		zap.Int("steps", len(run.Steps())),
		zap.Duration("duration", run.Duration()),
		zap.String("report", path))
	return Outcome{Run: run, ReportPath: path}, err
}

func captureFailure(ctx context.Context, env *Env, driver browser.Driver, run *reporter.TestRun, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := os.MkdirAll(env.Renderer.Dir(), 0o755); err != nil {
		logger.Warn("scenario.execute: screenshot skipped", zap.Error(err))
		return
	}
	path := filepath.Join(env.Renderer.Dir(), fmt.Sprintf("%s_error_%d.png", run.Suite, time.Now().Unix()))
	if err := driver.Screenshot(ctx, path); err != nil {
		logger.Warn("scenario.execute: screenshot failed", zap.Error(err))
		return
	}
	run.SetScreenshot(path)
	logger.Info("scenario.execute: screenshot saved", zap.String("path", path))
}

func observe(c *metrics.Collector, run *reporter.TestRun) {
	if c == nil {
		return
	}
	steps := run.Steps()
	c.ObserveRun(run.Suite, string(run.Status), run.Duration())
	for _, s := range steps {
		c.ObserveStep(run.Suite, string(s.Status))
	}
	if sum := reporter.Summarize(steps); sum.HasRate {
		c.SetSuccessRatio(run.Suite, sum.Rate/100)
	}
}

func (e *Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Env) pollInterval() time.Duration {
	if e.PollInterval <= 0 {
		return time.Second
	}
	return e.PollInterval
}
