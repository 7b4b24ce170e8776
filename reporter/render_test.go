package reporter

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"acceptance/toolkit"
)

func finishedRun(t *testing.T, steps int) *TestRun {
	t.Helper()
	run := newRunWithClock("video_upload", "Video upload", tickingClock(time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)))
	run.SetInput("Correo", "ana@example.com")
	run.SetInput("Contraseña", "Sup3r$ecret")
	for i := 0; i < steps; i++ {
		run.Record(fmt.Sprintf("step %d", i+1), StatusSuccess, "typed Sup3r$ecret into the form field")
	}
	run.AddSuccess("logged in with Sup3r$ecret")
	run.SetFinalURL("http://localhost:3000/upload")
	run.Finalize(StatusSuccess)
	return run
}

func TestBuildDocumentListsEveryStepInOrder(t *testing.T) {
	t.Parallel()

	run := finishedRun(t, 7)
	doc := BuildDocument(run, DocumentOptions{})

	require.Len(t, doc.Steps, 7)
	for i, row := range doc.Steps {
		require.Equal(t, i+1, row.Index)
		require.Equal(t, fmt.Sprintf("step %d", i+1), row.Name)
		require.Equal(t, "[+]", row.Glyph)
		require.LessOrEqual(t, len([]rune(row.Details)), defaultDetailLimit+3)
	}
	require.Equal(t, "SUCCESS", doc.FinalStatus)
	require.Equal(t, "100.0%", doc.Summary.RateText())
}

func TestBuildDocumentRedactsSecrets(t *testing.T) {
	t.Parallel()

	doc := BuildDocument(finishedRun(t, 2), DocumentOptions{DetailLimit: 200})

	require.Equal(t, Row{Label: "Contraseña", Value: redactedMask}, doc.Inputs[1])
	require.Equal(t, Row{Label: "Correo", Value: "ana@example.com"}, doc.Inputs[0])
	for _, row := range doc.Steps {
		require.NotContains(t, row.Details, "Sup3r$ecret")
	}
	require.NotContains(t, doc.Successes[0], "Sup3r$ecret")
}

func TestRenderWritesTimestampedPDF(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "reports")
	r := NewRenderer(RendererOptions{Dir: dir, JSONSidecar: true, Chart: true}, nil)

	run := finishedRun(t, 3)
	path, err := r.Render(run)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "video_upload_20240501_093000.pdf"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(raw, []byte("%PDF-")))

	sidecar, err := os.ReadFile(strings.TrimSuffix(path, ".pdf") + ".json")
	require.NoError(t, err)
	require.NotContains(t, string(sidecar), "Sup3r$ecret")
	require.Contains(t, string(sidecar), `"final_status": "SUCCESS"`)
}

func TestRenderNeverOverwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRenderer(RendererOptions{Dir: dir}, nil)

	first, err := r.Render(finishedRun(t, 1))
	require.NoError(t, err)
	second, err := r.Render(finishedRun(t, 1))
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.True(t, strings.HasSuffix(second, "_2.pdf"))
}

func TestRenderRequiresFinalizedRun(t *testing.T) {
	t.Parallel()

	r := NewRenderer(RendererOptions{Dir: t.TempDir()}, nil)
	_, err := r.Render(NewRun("login", ""))
	require.ErrorIs(t, err, ErrNotFinalized)
}

func TestRenderWithoutStepsShowsNoRate(t *testing.T) {
	t.Parallel()

	run := NewRun("login", "")
	run.Finalize(StatusError)
	r := NewRenderer(RendererOptions{Dir: t.TempDir(), Chart: true}, nil)

	path, err := r.Render(run)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, "n/a", BuildDocument(run, DocumentOptions{}).Summary.RateText())
}

func TestRenderEmbedsScreenshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	shot := filepath.Join(dir, "login_error_1714555800.png")
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	f, err := os.Create(shot)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	run := finishedRun(t, 1)
	run.SetScreenshot(shot)
	path, err := NewRenderer(RendererOptions{Dir: dir}, nil).Render(run)
	require.NoError(t, err)
	require.FileExists(t, path)

	run = finishedRun(t, 1)
	run.SetScreenshot(filepath.Join(dir, "missing.png"))
	path, err = NewRenderer(RendererOptions{Dir: dir}, nil).Render(run)
	require.NoError(t, err)
	require.FileExists(t, path)
}

func TestRenderChecks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRenderer(RendererOptions{Dir: dir}, nil)
	results := []toolkit.CheckResult{
		{Name: "login ok", Status: toolkit.CheckPassed, Code: 200, Body: strings.Repeat("a", 120), Duration: 120 * time.Millisecond},
		{Name: "login bad", Status: toolkit.CheckFailed, Code: 500, Why: "Expected status in [401] but received 500."},
	}

	path, err := r.RenderChecks("api auth", results, time.Now())
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`api_auth_\d{8}_\d{6}\.pdf$`), path)

	doc := BuildCheckDocument("api auth", results, time.Now(), time.Now())
	require.Equal(t, "FAILED", doc.FinalStatus)
	require.Equal(t, "0.12", doc.Checks[0].Seconds)
	require.Equal(t, strings.Repeat("a", 80)+"...", doc.Checks[0].Preview)

	path, err = r.RenderChecks("empty", nil, time.Now())
	require.NoError(t, err)
	require.FileExists(t, path)
}

func TestReportName(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.Equal(t, "video_download_20240102_030405", ReportName("video_download", at))
	require.Equal(t, "create_quiz_20240102_030405", ReportName("create quiz!", at))
	require.Equal(t, "report_20240102_030405", ReportName("  ", at))
}

func TestRenderChecksMasksResponseSecrets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRenderer(RendererOptions{Dir: dir, JSONSidecar: true}, nil)
	results := []toolkit.CheckResult{
		{Name: "login ok", Status: toolkit.CheckPassed, Code: 200,
			Body: `{"access_token":"opaque-secret-token-1234","token_type":"bearer"}`},
		{Name: "login long", Status: toolkit.CheckFailed, Code: 200,
			Body: `{"message":"` + strings.Repeat("m", 70) + `","refresh_token":"opaque-refresh-5678"}`,
			Why:  `Expected field "role" in {"access_token":"opaque-secret-token-1234"}`},
	}

	doc := BuildCheckDocument("auth", results, time.Now(), time.Now())
	for _, row := range doc.Checks {
		require.NotContains(t, row.Preview, "opaque")
		require.NotContains(t, row.Why, "opaque")
	}
	require.Contains(t, doc.Checks[0].Preview, redactedMask)
	require.Contains(t, doc.Checks[1].Why, `Expected field "role"`)

	path, err := r.RenderChecks("auth", results, time.Now())
	require.NoError(t, err)
	sidecar, err := os.ReadFile(strings.TrimSuffix(path, ".pdf") + ".json")
	require.NoError(t, err)
	require.NotContains(t, string(sidecar), "opaque")
}

func TestRenderDefaultsToSingleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRenderer(RendererOptions{Dir: dir}, nil)

	_, err := r.Render(finishedRun(t, 2))
	require.NoError(t, err)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	checks := t.TempDir()
	_, err = NewRenderer(RendererOptions{Dir: checks}, nil).RenderChecks("smoke", nil, time.Now())
	require.NoError(t, err)
	entries, err = os.ReadDir(checks)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
