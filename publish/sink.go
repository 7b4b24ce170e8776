package publish

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"acceptance/config"
	"acceptance/reporter"
	"acceptance/toolkit"
)

const (
	KindProcedure = "procedure"
	KindAPI       = "api"
)

// Artifact describes one finished run and the report it produced.
type Artifact struct {
	RunID      string           `json:"run_id"`
	Suite      string           `json:"suite"`
	Kind       string           `json:"kind"`
	Status     string           `json:"status"`
	StartTime  time.Time        `json:"start_time"`
	EndTime    time.Time        `json:"end_time"`
	Summary    reporter.Summary `json:"summary"`
	ReportPath string           `json:"report_path"`
}

func FromRun(run *reporter.TestRun, reportPath string) Artifact {
	end := time.Now()
	if run.EndTime != nil {
		end = *run.EndTime
	}
	return Artifact{
		RunID:      run.ID,
		Suite:      run.Suite,
		Kind:       KindProcedure,
		Status:     string(run.Status),
		StartTime:  run.StartTime,
		EndTime:    end,
		Summary:    reporter.Summarize(run.Steps()),
		ReportPath: reportPath,
	}
}

func FromChecks(suite string, results []toolkit.CheckResult, start, end time.Time, reportPath string) Artifact {
	sum := reporter.SummarizeChecks(results)
	status := string(toolkit.CheckPassed)
	if sum.Failed > 0 {
		status = string(toolkit.CheckFailed)
	}
	return Artifact{
		RunID:      uuid.NewString(),
		Suite:      suite,
		Kind:       KindAPI,
		Status:     status,
		StartTime:  start,
		EndTime:    end,
		Summary:    sum,
		ReportPath: reportPath,
	}
}

// Sink receives finished runs.
type Sink interface {
	Name() string
	Publish(ctx context.Context, a Artifact) error
	Close() error
}

// Fanout hands every artifact to all sinks. One failing sink does not keep
// the others from receiving it.
type Fanout struct {
	sinks  []Sink
	logger *zap.Logger
}

func NewFanout(logger *zap.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{sinks: sinks, logger: logger}
}

func (f *Fanout) Len() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

func (f *Fanout) Publish(ctx context.Context, a Artifact) error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, a); err != nil {
			f.logger.Warn("publish.fanout: sink failed", zap.String("sink", s.Name()), zap.String("run_id", a.RunID), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		f.logger.Debug("publish.fanout: delivered", zap.String("sink", s.Name()), zap.String("run_id", a.RunID))
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig opens every sink that has enough configuration to run.
func FromConfig(ctx context.Context, cfg config.PublishConfig, logger *zap.Logger) (*Fanout, error) {
	var sinks []Sink
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	if cfg.S3.Bucket != "" {
		s, err := NewS3Sink(ctx, cfg.S3)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic))
	}
	if cfg.Postgres.DSN != "" {
		s, err := OpenPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, s)
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	if logger != nil {
		logger.Info("publish.from_config: sinks ready", zap.Strings("sinks", names))
	}
	return NewFanout(logger, sinks...), nil
}
