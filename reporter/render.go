package reporter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"acceptance/toolkit"
)

var ErrNotFinalized = errors.New("run is not finalized")

type RendererOptions struct {
	// Dir receives the reports; it is created on first use.
	Dir         string
	JSONSidecar bool
	Chart       bool
	DetailLimit int
}

type Renderer struct {
	opts   RendererOptions
	logger *zap.Logger
}

func NewRenderer(opts RendererOptions, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Dir = stringsTrimOrDefault(opts.Dir, "reports")
	return &Renderer{opts: opts, logger: logger}
}

func (r *Renderer) Dir() string {
	return r.opts.Dir
}

// Render writes the report of a finalized run and returns its path.
func (r *Renderer) Render(run *TestRun) (string, error) {
	if !run.Finalized() {
		return "", ErrNotFinalized
	}
	doc := BuildDocument(run, DocumentOptions{DetailLimit: r.opts.DetailLimit, Chart: r.opts.Chart})
	return r.write(doc)
}

// RenderChecks writes the report of an API check pass that began at start.
func (r *Renderer) RenderChecks(suite string, results []toolkit.CheckResult, start time.Time) (string, error) {
	doc := BuildCheckDocument(suite, results, start, time.Now())
	return r.write(doc)
}

func (r *Renderer) write(doc Document) (string, error) {
	r.logger.Info("reporter.render: start",
		zap.String("suite", doc.Suite),
		zap.Int("steps", len(doc.Steps)),
		zap.Int("checks", len(doc.Checks)))

	if err := os.MkdirAll(r.opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare report directory %q: %w", r.opts.Dir, err)
	}
	path, err := reportPath(r.opts.Dir, doc.Suite, doc.StartTime, ".pdf")
	if err != nil {
		return "", err
	}
	if err := writePDF(path, doc); err != nil {
		r.logger.Error("reporter.render: pdf failed", zap.String("path", path), zap.Error(err))
		return "", err
	}

	if r.opts.JSONSidecar {
		sidecar := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		if err := writeJSON(sidecar, doc); err != nil {
			r.logger.Warn("reporter.render: sidecar failed", zap.String("path", sidecar), zap.Error(err))
		}
	}
	r.logger.Info("reporter.render: report persisted", zap.String("path", path), zap.String("rate", doc.Summary.RateText()))
	return path, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ReportName is the file stem for a run of suite started at start.
func ReportName(suite string, start time.Time) string {
	name := strings.Trim(unsafeName.ReplaceAllString(suite, "_"), "_")
	return stringsTrimOrDefault(name, "report") + "_" + start.Format("20060102_150405")
}

// reportPath never returns the path of an existing file; colliding names
// get a numeric suffix.
func reportPath(dir, suite string, start time.Time, ext string) (string, error) {
	stem := filepath.Join(dir, ReportName(suite, start))
	candidate := stem + ext
	for i := 2; ; i++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("check report path %q: %w", candidate, err)
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
}

func writeJSON(path string, data any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare output directory for %q: %w", path, err)
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json %q: %w", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write json file %q: %w", path, err)
	}
	return nil
}

func stringsTrimOrDefault(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
