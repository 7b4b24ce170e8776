package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	c := NewCollector()
	c.ObserveRun("login", "SUCCESS", 3*time.Second)
	c.ObserveStep("login", "SUCCESS")
	c.ObserveStep("login", "FAILED")
	c.ObserveCheck("api_auth", "PASSED", 40*time.Millisecond)
	c.SetSuccessRatio("login", 0.5)

	path := filepath.Join(t.TempDir(), "out", "acceptance.prom")
	require.NoError(t, c.Write(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	require.Contains(t, text, `acceptance_runs_total{status="SUCCESS",suite="login"} 1`)
	require.Contains(t, text, `acceptance_steps_total{status="FAILED",suite="login"} 1`)
	require.Contains(t, text, `acceptance_api_checks_total{status="PASSED",suite="api_auth"} 1`)
	require.Contains(t, text, `acceptance_success_ratio{suite="login"} 0.5`)
}
