package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/mattn/go-shellwords"
	"go.uber.org/zap"
)

type LaunchOptions struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
	// ExtraArgs are Chrome command line flags, written shell-style.
	ExtraArgs   string
	ExecPath    string
	DownloadDir string
	WaitTimeout time.Duration
}

// Chrome drives a local Chrome through the DevTools protocol.
type Chrome struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	wait        time.Duration
	dialogs     chan string
	logger      *zap.Logger
}

var _ Driver = (*Chrome)(nil)

// Launch starts a browser. The returned driver must be closed.
func Launch(ctx context.Context, opts LaunchOptions, logger *zap.Logger) (*Chrome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 10 * time.Second
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = 1366, 900
	}

	extra, err := parseFlags(opts.ExtraArgs)
	if err != nil {
		return nil, err
	}
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	for _, f := range extra {
		allocOpts = append(allocOpts, chromedp.Flag(f.name, f.value))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		logger.Debug(fmt.Sprintf("browser.cdp: "+format, args...))
	}))

	c := &Chrome{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		wait:        opts.WaitTimeout,
		dialogs:     make(chan string, 4),
		logger:      logger,
	}
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*page.EventJavascriptDialogOpening); ok {
			select {
			case c.dialogs <- e.Message:
			default:
			}
		}
	})

	if err := chromedp.Run(tabCtx); err != nil {
		c.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	if opts.DownloadDir != "" {
		dir, err := filepath.Abs(opts.DownloadDir)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("resolve download dir: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.Close()
			return nil, fmt.Errorf("prepare download dir %q: %w", dir, err)
		}
		err = chromedp.Run(tabCtx, cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(dir).
			WithEventsEnabled(true))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("set download behavior: %w", err)
		}
	}
	logger.Info("browser.launch: ready", zap.Bool("headless", opts.Headless), zap.Duration("wait", opts.WaitTimeout))
	return c, nil
}

// run executes actions bounded by the wait timeout and by ctx.
func (c *Chrome) run(ctx context.Context, what string, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(c.ctx, c.wait)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tctx, actions...)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", ErrTimeout, what, c.wait)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.logger.Debug("browser.navigate", zap.String("url", url))
	return c.run(ctx, "navigate "+url, chromedp.Navigate(url))
}

func (c *Chrome) WaitVisible(ctx context.Context, sel Selector) error {
	return c.run(ctx, "wait for "+sel.String(), chromedp.WaitVisible(sel.Query, queryOptions(sel)...))
}

func (c *Chrome) Click(ctx context.Context, sel Selector) error {
	opts := queryOptions(sel)
	return c.run(ctx, "click "+sel.String(),
		chromedp.WaitVisible(sel.Query, opts...),
		chromedp.ScrollIntoView(sel.Query, opts...),
		chromedp.Click(sel.Query, opts...),
	)
}

func (c *Chrome) Type(ctx context.Context, sel Selector, text string) error {
	opts := queryOptions(sel)
	return c.run(ctx, "type into "+sel.String(),
		chromedp.WaitVisible(sel.Query, opts...),
		chromedp.Clear(sel.Query, opts...),
		chromedp.SendKeys(sel.Query, text, opts...),
	)
}

func (c *Chrome) Text(ctx context.Context, sel Selector) (string, error) {
	var out string
	opts := queryOptions(sel)
	err := c.run(ctx, "read text of "+sel.String(),
		chromedp.WaitVisible(sel.Query, opts...),
		chromedp.Text(sel.Query, &out, opts...),
	)
	return strings.TrimSpace(out), err
}

func (c *Chrome) Attribute(ctx context.Context, sel Selector, name string) (string, error) {
	var (
		out string
		ok  bool
	)
	err := c.run(ctx, "read "+name+" of "+sel.String(),
		chromedp.AttributeValue(sel.Query, name, &out, &ok, queryOptions(sel)...))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s has no attribute %q", sel, name)
	}
	return out, nil
}

func (c *Chrome) Count(ctx context.Context, sel Selector) (int, error) {
	var nodes []*cdp.Node
	opts := append(queryOptions(sel), chromedp.AtLeast(0))
	if err := c.run(ctx, "count "+sel.String(), chromedp.Nodes(sel.Query, &nodes, opts...)); err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var out string
	err := c.run(ctx, "read location", chromedp.Location(&out))
	return out, err
}

func (c *Chrome) Eval(ctx context.Context, script string, out any) error {
	if out == nil {
		var discard any
		out = &discard
	}
	return c.run(ctx, "evaluate script", chromedp.Evaluate(script, out))
}

func (c *Chrome) SetFile(ctx context.Context, sel Selector, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return c.run(ctx, "set file on "+sel.String(),
		chromedp.SetUploadFiles(sel.Query, []string{abs}, queryOptions(sel)...))
}

func (c *Chrome) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := c.run(ctx, "capture screenshot", chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare screenshot directory: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write screenshot %q: %w", path, err)
	}
	return nil
}

func (c *Chrome) AcceptDialog(ctx context.Context) (string, error) {
	timer := time.NewTimer(c.wait)
	defer timer.Stop()

	var msg string
	select {
	case msg = <-c.dialogs:
	case <-timer.C:
		return "", fmt.Errorf("%w: no dialog after %s", ErrTimeout, c.wait)
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if err := c.run(ctx, "accept dialog", page.HandleJavaScriptDialog(true)); err != nil {
		return msg, err
	}
	return msg, nil
}

func (c *Chrome) Close() error {
	c.cancelTab()
	c.cancelAlloc()
	return nil
}

func queryOptions(sel Selector) []chromedp.QueryOption {
	switch sel.By {
	case ByXPath:
		return []chromedp.QueryOption{chromedp.BySearch}
	case ByID:
		return []chromedp.QueryOption{chromedp.ByID}
	default:
		return []chromedp.QueryOption{chromedp.ByQuery}
	}
}

type flag struct {
	name  string
	value any
}

// parseFlags turns "--a --b=c" into Chrome allocator flags.
func parseFlags(args string) ([]flag, error) {
	words, err := shellwords.Parse(args)
	if err != nil {
		return nil, fmt.Errorf("parse browser args: %w", err)
	}
	var out []flag
	for _, w := range words {
		if !strings.HasPrefix(w, "-") {
			return nil, fmt.Errorf("browser arg %q is not a flag", w)
		}
		w = strings.TrimLeft(w, "-")
		if w == "" {
			continue
		}
		if name, value, ok := strings.Cut(w, "="); ok {
			out = append(out, flag{name: name, value: value})
			continue
		}
		out = append(out, flag{name: w, value: true})
	}
	return out, nil
}
