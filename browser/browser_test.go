package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSelectors(t *testing.T) {
	t.Parallel()

	require.Equal(t, "css=button.login-button", CSS("button.login-button").String())
	require.Equal(t, Selector{By: ByXPath, Query: "//a[normalize-space(.)='Explorar']"}, LinkText("Explorar"))
	require.Equal(t, `//button[contains(normalize-space(.), 'Guardar Quiz')]`, ButtonText("Guardar Quiz").Query)
	require.Equal(t, `input[placeholder='Correo']`, Placeholder("input", "Correo").Query)
	require.Equal(t, `(//input[@type='text'])[2]`, Nth("//input[@type='text']", 2).Query)
	require.Equal(t, ByID, ID("file-upload").By)

	require.True(t, ID("file-upload").Valid())
	require.False(t, CSS(" ").Valid())
	require.False(t, Selector{By: "name", Query: "q"}.Valid())
}

func TestQuoting(t *testing.T) {
	t.Parallel()

	require.Equal(t, `"it's"`, xpathLiteral("it's"))
	require.Equal(t, `concat('a', "'", 'b"c')`, xpathLiteral(`a'b"c`))
	require.Equal(t, `'it\'s'`, cssString("it's"))
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	flags, err := parseFlags(`--no-sandbox --lang=es-ES --user-agent="Mozilla/5.0 (X11)"`)
	require.NoError(t, err)
	require.Equal(t, []flag{
		{name: "no-sandbox", value: true},
		{name: "lang", value: "es-ES"},
		{name: "user-agent", value: "Mozilla/5.0 (X11)"},
	}, flags)

	flags, err = parseFlags("")
	require.NoError(t, err)
	require.Empty(t, flags)

	_, err = parseFlags("no-dash")
	require.Error(t, err)
	_, err = parseFlags(`--broken="`)
	require.Error(t, err)
}

func TestWaitForFileFindsLateFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "video.mp4")
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(path, []byte("data"), 0o644)
	}()

	require.NoError(t, WaitForFile(context.Background(), path, 2*time.Second, 10*time.Millisecond))
}

func TestWaitForFileGivesUp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.mp4")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	err := WaitForFile(context.Background(), empty, 50*time.Millisecond, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = WaitForFile(ctx, filepath.Join(dir, "never"), time.Second, 10*time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)
}
