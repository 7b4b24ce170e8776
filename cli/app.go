package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"acceptance/apicheck"
	"acceptance/browser"
	"acceptance/config"
	"acceptance/logging"
	"acceptance/metrics"
	"acceptance/publish"
	"acceptance/reporter"
	"acceptance/scenario"
	"acceptance/toolkit"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	renderer *reporter.Renderer
	metrics  *metrics.Collector
	sinks    *publish.Fanout
}

func newApp(ctx context.Context) (*app, error) {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", opts.envFile, err)
		}
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	sinks, err := publish.FromConfig(ctx, cfg.Publish, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("prepare sinks: %w", err)
	}
	renderer := reporter.NewRenderer(reporter.RendererOptions{
		Dir:         cfg.Reports.Dir,
		JSONSidecar: cfg.Reports.JSON,
		Chart:       cfg.Reports.Chart,
		DetailLimit: cfg.Reports.DetailLimit,
	}, logger)

	logger.Debug("cli.app: ready", zap.String("reports", renderer.Dir()), zap.Int("sinks", sinks.Len()))
	return &app{
		cfg:      cfg,
		logger:   logger,
		renderer: renderer,
		metrics:  metrics.NewCollector(),
		sinks:    sinks,
	}, nil
}

func (a *app) close() {
	if path := a.cfg.Metrics.Path; path != "" {
		if err := a.metrics.Write(path); err != nil {
			a.logger.Warn("cli.close: metrics not written", zap.String("path", path), zap.Error(err))
		}
	}
	if err := a.sinks.Close(); err != nil {
		a.logger.Warn("cli.close: sinks", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) launcher() scenario.Launcher {
	b := a.cfg.Browser
	return func(ctx context.Context) (browser.Driver, error) {
		return browser.Launch(ctx, browser.LaunchOptions{
			Headless:     b.Headless,
			WindowWidth:  b.Width,
			WindowHeight: b.Height,
			ExtraArgs:    b.Args,
			ExecPath:     b.ExecPath,
			DownloadDir:  b.DownloadDir,
			WaitTimeout:  a.cfg.WaitTimeout(),
		}, a.logger)
	}
}

func (a *app) runProcedures(ctx context.Context, w io.Writer, procs []scenario.Procedure) error {
	backend, err := toolkit.NewClient(a.cfg.API.AuthURL, a.cfg.API.VideosURL, a.cfg.APITimeout(), a.logger)
	if err != nil {
		return err
	}
	env := &scenario.Env{
		Config:   a.cfg,
		Logger:   a.logger,
		Renderer: a.renderer,
		Metrics:  a.metrics,
		Backend:  backend,
		Launch:   a.launcher(),
		Sinks:    a.sinks,
	}

	failed := 0
	for _, p := range procs {
		if ctx.Err() != nil {
			break
		}
		out, err := scenario.Execute(ctx, env, p)
		if err != nil || out.Run.Status != reporter.StatusSuccess {
			failed++
		}
		printRun(w, out, err)
	}
	fmt.Fprintf(w, "\n%d procedure(s), %d not successful\n", len(procs), failed)
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d procedures", ErrRunsFailed, failed, len(procs))
	}
	return nil
}

func (a *app) runChecks(ctx context.Context, w io.Writer, suitePath, baseURL string) error {
	if suitePath == "" {
		suitePath = a.cfg.API.Suite
	}
	var (
		suite toolkit.CheckSuite
		err   error
	)
	if suitePath != "" {
		suite, err = apicheck.LoadSuite(suitePath)
	} else {
		suite, err = apicheck.DefaultSuite()
	}
	if err != nil {
		return err
	}
	if baseURL == "" && suite.BaseURL == "" {
		baseURL = a.cfg.API.AuthURL
	}

	runner := apicheck.NewRunner(apicheck.Options{
		BaseURL:   baseURL,
		JWTSecret: a.cfg.API.JWTSecret,
		Timeout:   a.cfg.APITimeout(),
	}, a.logger)

	start := time.Now()
	results := runner.Run(ctx, suite)
	for _, r := range results {
		a.metrics.ObserveCheck(suite.Name, string(r.Status), r.Duration)
		printCheck(w, r)
	}
	sum := reporter.SummarizeChecks(results)
	if sum.HasRate {
		a.metrics.SetSuccessRatio(suite.Name, sum.Rate/100)
	}

	path, err := a.renderer.RenderChecks(suite.Name, results, start)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if a.sinks.Len() > 0 {
		if err := a.sinks.Publish(ctx, publish.FromChecks(suite.Name, results, start, time.Now(), path)); err != nil {
			a.logger.Warn("cli.api: publish incomplete", zap.Error(err))
		}
	}

	fmt.Fprintf(w, "\nPASSED: %d  FAILED: %d  TOTAL: %d  Success rate: %s\nReport: %s\n",
		sum.Passed, sum.Failed, sum.Total, sum.RateText(), path)
	if sum.Failed > 0 {
		return fmt.Errorf("%w: %d of %d checks", ErrRunsFailed, sum.Failed, sum.Total)
	}
	return nil
}

func selectProcedures(names []string, all bool) ([]scenario.Procedure, error) {
	switch {
	case all && len(names) > 0:
		return nil, errors.New("--all does not take procedure names")
	case all:
		return scenario.Procedures(), nil
	case len(names) == 0:
		return nil, errors.New("name at least one procedure or pass --all")
	}
	procs := make([]scenario.Procedure, 0, len(names))
	for _, n := range names {
		p, err := scenario.Lookup(n)
		if err != nil {
			return nil, err
		}
		procs = append(procs, p)
	}
	return procs, nil
}

func listProcedures(w io.Writer) {
	for _, p := range scenario.Procedures() {
		note := ""
		if p.NeedsCredentials {
			note = " (needs credentials)"
		}
		fmt.Fprintf(w, "%-30s %s%s\n", p.Name, p.Title, note)
	}
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
)

func statusColor(status string) *color.Color {
	switch status {
	case string(reporter.StatusSuccess), string(toolkit.CheckPassed):
		return okColor
	case string(reporter.StatusFailed):
		return failColor
	}
	return warnColor
}

func printRun(w io.Writer, out scenario.Outcome, renderErr error) {
	run := out.Run
	sum := reporter.Summarize(run.Steps())
	statusColor(string(run.Status)).Fprintf(w, "%-8s", run.Status)
	fmt.Fprintf(w, " %-30s %d step(s), %s", run.Suite, sum.Total, sum.RateText())
	if renderErr != nil {
		fmt.Fprintf(w, "  report failed: %v\n", renderErr)
		return
	}
	fmt.Fprintf(w, "  %s\n", out.ReportPath)
}

func printCheck(w io.Writer, r toolkit.CheckResult) {
	statusColor(string(r.Status)).Fprintf(w, "%-7s", r.Status)
	fmt.Fprintf(w, " %-40s %s %d %.2fs", r.Name, r.Method, r.Code, r.Duration.Seconds())
	if !r.Passed() {
		fmt.Fprintf(w, "  %s: %s", r.Failure, r.Why)
	}
	fmt.Fprintln(w)
}
