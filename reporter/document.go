package reporter

import (
	"fmt"
	"time"

	"acceptance/toolkit"
)

const (
	timeLayout         = "2006-01-02 15:04:05"
	defaultDetailLimit = 50
	checkPreviewLimit  = 80
)

type Row struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type StepRow struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Glyph   string `json:"glyph"`
	Details string `json:"details"`
	Time    string `json:"time"`
}

type CheckRow struct {
	Status  toolkit.CheckStatus `json:"status"`
	Name    string              `json:"name"`
	Method  string              `json:"method"`
	Code    int                 `json:"code"`
	Seconds string              `json:"seconds"`
	Preview string              `json:"preview"`
	Why     string              `json:"why,omitempty"`
}

// Document is the report content after aggregation and redaction. Writers
// only lay it out.
type Document struct {
	Title       string     `json:"title"`
	Suite       string     `json:"suite"`
	RunID       string     `json:"run_id,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	Metadata    []Row      `json:"metadata"`
	Inputs      []Row      `json:"inputs,omitempty"`
	Steps       []StepRow  `json:"steps,omitempty"`
	Successes   []string   `json:"successes,omitempty"`
	Errors      []string   `json:"errors,omitempty"`
	Checks      []CheckRow `json:"checks,omitempty"`
	Summary     Summary    `json:"summary"`
	FinalStatus string     `json:"final_status"`
	Screenshot  string     `json:"screenshot,omitempty"`
	Chart       bool       `json:"chart"`
}

type DocumentOptions struct {
	// DetailLimit caps step details; zero means the default of 50.
	DetailLimit int
	Chart       bool
}

func BuildDocument(run *TestRun, opts DocumentOptions) Document {
	limit := opts.DetailLimit
	if limit <= 0 {
		limit = defaultDetailLimit
	}
	red := NewRedactor(run.Inputs)
	steps := run.Steps()

	doc := Document{
		Title:       stringsTrimOrDefault(run.Title, "Test report: "+run.Suite),
		Suite:       run.Suite,
		RunID:       run.ID,
		StartTime:   run.StartTime,
		Summary:     Summarize(steps),
		FinalStatus: string(run.Status),
		Screenshot:  run.ScreenshotPath,
		Chart:       opts.Chart,
	}

	end := "-"
	if run.EndTime != nil {
		end = run.EndTime.Format(timeLayout)
	}
	doc.Metadata = []Row{
		{Label: "Run ID", Value: run.ID},
		{Label: "Start time", Value: run.StartTime.Format(timeLayout)},
		{Label: "End time", Value: end},
		{Label: "Duration", Value: fmt.Sprintf("%.2f s", run.Duration().Seconds())},
		{Label: "Final status", Value: string(run.Status)},
		{Label: "Final URL", Value: stringsTrimOrDefault(red.Scrub(run.FinalURL), "-")},
	}

	if run.Inputs != nil {
		for pair := run.Inputs.Oldest(); pair != nil; pair = pair.Next() {
			doc.Inputs = append(doc.Inputs, Row{Label: pair.Key, Value: red.Value(pair.Key, pair.Value)})
		}
	}

	for i, s := range steps {
		doc.Steps = append(doc.Steps, StepRow{
			Index:   i + 1,
			Name:    red.Scrub(s.Name),
			Status:  s.Status,
			Glyph:   statusGlyph(s.Status),
			Details: toolkit.TruncateText(red.Scrub(s.Details), limit),
			Time:    s.Timestamp.Format("15:04:05"),
		})
	}
	for _, m := range run.SuccessMessages {
		doc.Successes = append(doc.Successes, red.Scrub(m))
	}
	for _, m := range run.Errors {
		doc.Errors = append(doc.Errors, fmt.Sprintf("%s  %s", m.Timestamp.Format("15:04:05"), red.Scrub(m.Text)))
	}
	return doc
}

// BuildCheckDocument lays out a list of API check results. Response bodies
// are cut to a short preview.
func BuildCheckDocument(suite string, results []toolkit.CheckResult, start, end time.Time) Document {
	sum := SummarizeChecks(results)
	final := string(toolkit.CheckPassed)
	if sum.Failed > 0 {
		final = string(toolkit.CheckFailed)
	}
	doc := Document{
		Title:       "API test report: " + suite,
		Suite:       suite,
		StartTime:   start,
		Summary:     sum,
		FinalStatus: final,
		Metadata: []Row{
			{Label: "Start time", Value: start.Format(timeLayout)},
			{Label: "End time", Value: end.Format(timeLayout)},
			{Label: "Duration", Value: fmt.Sprintf("%.2f s", end.Sub(start).Seconds())},
			{Label: "Final status", Value: final},
		},
	}
	for _, r := range results {
		body, red := ScrubBody(r.Body)
		doc.Checks = append(doc.Checks, CheckRow{
			Status:  r.Status,
			Name:    r.Name,
			Method:  r.Method,
			Code:    r.Code,
			Seconds: fmt.Sprintf("%.2f", r.Duration.Seconds()),
			Preview: toolkit.TruncateText(body, checkPreviewLimit),
			Why:     red.ScrubText(r.Why),
		})
	}
	return doc
}

func statusGlyph(s Status) string {
	switch s {
	case StatusSuccess:
		return "[+]"
	case StatusFailed:
		return "[x]"
	default:
		return "[~]"
	}
}
