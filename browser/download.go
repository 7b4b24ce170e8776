package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// WaitForFile polls until path exists and is non-empty, giving up after
// timeout.
func WaitForFile(ctx context.Context, path string, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		info, err := os.Stat(path)
		switch {
		case err == nil && !info.IsDir() && info.Size() > 0:
			return nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("stat %q: %w", path, err)
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: file %q not found after %s", ErrTimeout, path, timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
