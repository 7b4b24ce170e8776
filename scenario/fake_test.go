package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"acceptance/browser"
	"acceptance/config"
	"acceptance/reporter"
)

// fakeDriver is a scripted browser. Elements not mentioned in texts,
// attrs or missing behave as present and empty.
type fakeDriver struct {
	loc     string
	missing map[string]bool
	texts   map[string]string
	attrs   map[string]string
	counts  map[string]int
	onClick map[string]func(*fakeDriver)
	navErr  error
	dialog  string

	visited []string
	clicks  []string
	typed   map[string]string
	files   map[string]string
	evals   []string
	shots   []string
	closed  bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		missing: map[string]bool{},
		texts:   map[string]string{},
		attrs:   map[string]string{},
		counts:  map[string]int{},
		onClick: map[string]func(*fakeDriver){},
		typed:   map[string]string{},
		files:   map[string]string{},
	}
}

func (f *fakeDriver) find(sel browser.Selector) error {
	if f.missing[sel.String()] {
		return fmt.Errorf("%w: waiting for %s", browser.ErrTimeout, sel)
	}
	return nil
}

func (f *fakeDriver) Navigate(_ context.Context, url string) error {
	if f.navErr != nil {
		return f.navErr
	}
	f.visited = append(f.visited, url)
	f.loc = url
	return nil
}

func (f *fakeDriver) WaitVisible(_ context.Context, sel browser.Selector) error {
	return f.find(sel)
}

func (f *fakeDriver) Click(_ context.Context, sel browser.Selector) error {
	if err := f.find(sel); err != nil {
		return err
	}
	f.clicks = append(f.clicks, sel.String())
	if fn := f.onClick[sel.String()]; fn != nil {
		fn(f)
	}
	return nil
}

func (f *fakeDriver) Type(_ context.Context, sel browser.Selector, text string) error {
	if err := f.find(sel); err != nil {
		return err
	}
	f.typed[sel.String()] = text
	return nil
}

func (f *fakeDriver) Text(_ context.Context, sel browser.Selector) (string, error) {
	if err := f.find(sel); err != nil {
		return "", err
	}
	return f.texts[sel.String()], nil
}

func (f *fakeDriver) Attribute(_ context.Context, sel browser.Selector, name string) (string, error) {
	if err := f.find(sel); err != nil {
		return "", err
	}
	return f.attrs[sel.String()+"@"+name], nil
}

func (f *fakeDriver) Count(_ context.Context, sel browser.Selector) (int, error) {
	return f.counts[sel.String()], nil
}

func (f *fakeDriver) Location(context.Context) (string, error) {
	return f.loc, nil
}

func (f *fakeDriver) Eval(_ context.Context, script string, _ any) error {
	f.evals = append(f.evals, script)
	return nil
}

func (f *fakeDriver) SetFile(_ context.Context, sel browser.Selector, path string) error {
	if err := f.find(sel); err != nil {
		return err
	}
	f.files[sel.String()] = path
	return nil
}

func (f *fakeDriver) Screenshot(_ context.Context, path string) error {
	f.shots = append(f.shots, path)
	return os.WriteFile(path, []byte("not really a png"), 0o644)
}

func (f *fakeDriver) AcceptDialog(context.Context) (string, error) {
	if f.dialog == "" {
		return "", fmt.Errorf("%w: no dialog", browser.ErrTimeout)
	}
	return f.dialog, nil
}

func (f *fakeDriver) Close() error {
	f.closed = true
	return nil
}

const frontend = "http://app.test"

func testConfig() *config.Config {
	return &config.Config{
		Frontend:    config.FrontendConfig{URL: frontend},
		Credentials: config.CredentialsConfig{Email: "ana@example.com", Password: "Sup3r$ecret"},
		Browser:     config.BrowserConfig{WaitTimeout: 1, DownloadTimeout: 1},
	}
}

func testEnv(t *testing.T, d *fakeDriver) *Env {
	t.Helper()
	return &Env{
		Config:       testConfig(),
		Renderer:     reporter.NewRenderer(reporter.RendererOptions{Dir: t.TempDir(), JSONSidecar: true}, nil),
		PollInterval: 10 * time.Millisecond,
		Launch: func(context.Context) (browser.Driver, error) {
			if d == nil {
				return nil, errors.New("chrome not found")
			}
			return d, nil
		},
	}
}

func stepNames(run *reporter.TestRun) []string {
	var out []string
	for _, s := range run.Steps() {
		out = append(out, s.Name)
	}
	return out
}
