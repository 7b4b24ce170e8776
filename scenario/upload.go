package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"acceptance/browser"
)

var (
	uploadHeading = browser.XPath("//h2[contains(text(),'Sube tu video')]")
	titleInput    = browser.Placeholder("input", "Título del video")
	descInput     = browser.Placeholder("textarea", "Descripción")
	tagsInput     = browser.Placeholder("input", "Etiquetas (separadas por coma)")
	fileInput     = browser.ID("file-upload")
	uploadButton  = browser.CSS("button.upload-button")
	uploadMessage = browser.CSS(".upload-message")
)

const (
	msgUploaded      = "subido correctamente"
	msgMissingFields = "completa todos los campos"
	msgUploadError   = "error"
)

type uploadForm struct {
	Title       string
	Description string
	Tags        string
	File        string
}

// uploadCase describes one upload page scenario.
type uploadCase struct {
	name   string
	title  string
	form   func(s *Session) (uploadForm, func(), error)
	clicks int
	expect string
	// stored marks cases that leave videos behind; they are counted and
	// deleted through the videos API.
	stored bool
}

func uploadProcedures() []Procedure {
	cases := []uploadCase{
		{
			name:   "video_upload",
			title:  "Video upload test report",
			form:   videoForm("Video sin login visual", "Video subido directamente", "selenium,testing"),
			clicks: 1,
			expect: msgUploaded,
			stored: true,
		},
		{
			name:  "video_upload_without_file",
			title: "Video upload without file test report",
			form: func(*Session) (uploadForm, func(), error) {
				return uploadForm{Title: "Video sin archivo", Description: "Intento sin archivo", Tags: "sin,archivo"}, func() {}, nil
			},
			clicks: 1,
			expect: msgMissingFields,
		},
		{
			name:  "video_upload_missing_fields",
			title: "Video upload with missing fields test report",
			form: func(*Session) (uploadForm, func(), error) {
				return uploadForm{Title: "Solo titulo"}, func() {}, nil
			},
			clicks: 1,
			expect: msgMissingFields,
		},
		{
			name:   "video_upload_wrong_format",
			title:  "Video upload with wrong format test report",
			form:   wrongFormatForm,
			clicks: 1,
			expect: msgUploadError,
		},
		{
			name:   "video_upload_multiple_clicks",
			title:  "Video upload multiple clicks test report",
			form:   videoForm("Video clic doble", "Prueba doble clic", "doble,test"),
			clicks: 3,
			expect: msgUploaded,
			stored: true,
		},
	}
	procs := make([]Procedure, 0, len(cases))
	for _, c := range cases {
		procs = append(procs, Procedure{
			Name:             c.name,
			Title:            c.title,
			NeedsCredentials: true,
			Run:              c.run,
		})
	}
	return procs
}

// videoForm uses the configured sample video. The title gets a timestamp so
// uploads of different runs never collide.
func videoForm(title, description, tags string) func(*Session) (uploadForm, func(), error) {
	return func(s *Session) (uploadForm, func(), error) {
		video := s.Env.Config.Media.Video
		if video == "" {
			return uploadForm{}, nil, errors.New("media.video is not configured")
		}
		if _, err := os.Stat(video); err != nil {
			return uploadForm{}, nil, fmt.Errorf("sample video: %w", err)
		}
		return uploadForm{
			Title:       fmt.Sprintf("%s %d", title, time.Now().Unix()),
			Description: description,
			Tags:        tags,
			File:        video,
		}, func() {}, nil
	}
}

// wrongFormatForm uploads a text file. Without a configured one a temporary
// file is written.
func wrongFormatForm(s *Session) (uploadForm, func(), error) {
	form := uploadForm{Title: "Archivo inválido", Description: "Intento con .txt", Tags: "txt,test"}
	if path := s.Env.Config.Media.WrongFormat; path != "" {
		if _, err := os.Stat(path); err != nil {
			return uploadForm{}, nil, fmt.Errorf("wrong format sample: %w", err)
		}
		form.File = path
		return form, func() {}, nil
	}
	f, err := os.CreateTemp("", "acceptance_*.txt")
	if err != nil {
		return uploadForm{}, nil, err
	}
	defer f.Close()
	if _, err := f.WriteString("this is not a video\n"); err != nil {
		os.Remove(f.Name())
		return uploadForm{}, nil, err
	}
	form.File = f.Name()
	return form, func() { os.Remove(f.Name()) }, nil
}

func (c uploadCase) run(ctx context.Context, s *Session) error {
	form, release, err := c.form(s)
	if err != nil {
		return err
	}
	defer release()

	s.Input("Title", form.Title)
	s.Input("Description", form.Description)
	s.Input("Tags", form.Tags)
	s.Input("File", form.File)

	if err := injectSession(ctx, s); err != nil {
		return err
	}
	if err := s.Step("Open upload page", func() (string, error) {
		page := s.Env.Config.FrontendPage("/upload")
		if err := s.Driver.Navigate(ctx, page); err != nil {
			return "", err
		}
		if err := s.Driver.WaitVisible(ctx, uploadHeading); err != nil {
			return "", fmt.Errorf("upload form not shown: %w", err)
		}
		return "Upload form loaded", nil
	}); err != nil {
		return err
	}
	if err := s.Step("Fill upload form", func() (string, error) {
		return fillUploadForm(ctx, s.Driver, form)
	}); err != nil {
		return err
	}
	if err := s.Step("Submit upload", func() (string, error) {
		pressed := 0
		for i := range c.clicks {
			if err := s.Driver.Click(ctx, uploadButton); err != nil {
				if i == 0 {
					return "", err
				}
				break
			}
			pressed++
		}
		if pressed == 1 {
			return "Upload button clicked", nil
		}
		return fmt.Sprintf("Upload button clicked %d times", pressed), nil
	}); err != nil {
		return err
	}

	msg := readUploadMessage(ctx, s)
	found := -1
	if c.stored {
		s.TryStep("Delete uploaded videos", func() (string, error) {
			n, err := deleteVideosTitled(ctx, s, form.Title)
			if err != nil {
				return "", err
			}
			found = n
			return fmt.Sprintf("Deleted %d video(s) titled %q", n, form.Title), nil
		})
	}

	s.Verify("Check upload message", func() (string, error) {
		if msg == "" {
			return "", errors.New("no upload message shown")
		}
		if !strings.Contains(strings.ToLower(msg), c.expect) {
			return "", fmt.Errorf("message %q does not mention %q", msg, c.expect)
		}
		if c.clicks > 1 && found != 1 {
			if found < 0 {
				return "", errors.New("could not count uploaded videos")
			}
			return "", fmt.Errorf("expected 1 stored video, found %d", found)
		}
		return "Upload page answered: " + msg, nil
	})
	return nil
}

func fillUploadForm(ctx context.Context, d browser.Driver, form uploadForm) (string, error) {
	var filled []string
	for _, f := range []struct {
		label string
		sel   browser.Selector
		value string
	}{
		{"title", titleInput, form.Title},
		{"description", descInput, form.Description},
		{"tags", tagsInput, form.Tags},
	} {
		if f.value == "" {
			continue
		}
		if err := d.Type(ctx, f.sel, f.value); err != nil {
			return "", fmt.Errorf("%s field: %w", f.label, err)
		}
		filled = append(filled, f.label)
	}
	if form.File != "" {
		if err := d.SetFile(ctx, fileInput, form.File); err != nil {
			return "", fmt.Errorf("file input: %w", err)
		}
		filled = append(filled, "file")
	}
	if len(filled) == 0 {
		return "Form left empty", nil
	}
	return "Filled " + strings.Join(filled, ", "), nil
}

func readUploadMessage(ctx context.Context, s *Session) string {
	var msg string
	_ = s.waitUntil(ctx, s.Env.Config.WaitTimeout(), func(ctx context.Context) (bool, error) {
		text, err := s.Driver.Text(ctx, uploadMessage)
		msg = strings.TrimSpace(text)
		return msg != "", err
	})
	return msg
}

func deleteVideosTitled(ctx context.Context, s *Session, title string) (int, error) {
	if s.Env.Backend == nil {
		return 0, errNoBackend
	}
	videos, err := s.Env.Backend.FindVideosByTitle(ctx, title)
	if err != nil {
		return 0, err
	}
	var errs []error
	for _, v := range videos {
		if err := s.Env.Backend.DeleteVideo(ctx, v.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return len(videos), errors.Join(errs...)
}
