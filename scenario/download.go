package scenario

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"acceptance/browser"
)

var (
	exploreLink  = browser.LinkText("Explorar")
	videoCard    = browser.CSS(".video-card-wrapper")
	downloadLink = browser.LinkText("Descargar video")
)

func downloadProcedure() Procedure {
	return Procedure{
		Name:  "video_download",
		Title: "Video download test report",
		Run: func(ctx context.Context, s *Session) error {
			dir := s.Env.Config.Browser.DownloadDir
			s.Input("Download directory", dir)

			if err := openHome(ctx, s); err != nil {
				return err
			}
			if err := s.Step("Click 'Explorar'", func() (string, error) {
				return "Explore page opened", s.Driver.Click(ctx, exploreLink)
			}); err != nil {
				return err
			}
			if err := s.Step("Open first video", func() (string, error) {
				if err := s.Driver.WaitVisible(ctx, videoCard); err != nil {
					return "", fmt.Errorf("no videos available: %w", err)
				}
				n, err := s.Driver.Count(ctx, videoCard)
				if err != nil {
					return "", err
				}
				if err := s.Driver.Click(ctx, videoCard); err != nil {
					return "", err
				}
				return fmt.Sprintf("Opened first of %d videos", n), nil
			}); err != nil {
				return err
			}

			var file string
			if err := s.Step("Click 'Descargar video'", func() (string, error) {
				name, err := s.Driver.Attribute(ctx, downloadLink, "download")
				if err != nil {
					return "", err
				}
				name = filepath.Base(strings.TrimSpace(name))
				if name == "" || name == "." || name == string(filepath.Separator) {
					return "", errors.New("download link has no file name")
				}
				if err := s.Driver.Click(ctx, downloadLink); err != nil {
					return "", err
				}
				file = name
				return "Downloading " + name, nil
			}); err != nil {
				return err
			}

			s.Input("File", file)
			s.Verify("Check downloaded file", func() (string, error) {
				path := filepath.Join(dir, file)
				if err := browser.WaitForFile(ctx, path, s.Env.Config.DownloadTimeout(), s.Env.pollInterval()); err != nil {
					return "", fmt.Errorf("%s not downloaded: %w", file, err)
				}
				return "Video downloaded to " + path, nil
			})
			return nil
		},
	}
}
