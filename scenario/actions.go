package scenario

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"acceptance/browser"
)

var (
	emailInput   = browser.Placeholder("input", "Correo")
	passInput    = browser.Placeholder("input", "Contraseña")
	loginButton  = browser.CSS("button.login-button")
	loginErrors  = browser.CSS(".error-message, .alert-danger, .login-error")
	errNoBackend = errors.New("backend client is not configured")
)

// openHome loads the frontend root page.
func openHome(ctx context.Context, s *Session) error {
	return s.Step("Open home page", func() (string, error) {
		home := s.Env.Config.FrontendPage("/")
		if err := s.Driver.Navigate(ctx, home); err != nil {
			return "", err
		}
		return "Loaded " + home, nil
	})
}

// openByLink follows the link to route and checks the browser landed there.
func openByLink(ctx context.Context, s *Session, label, route string) error {
	if err := s.Step("Click '"+label+"'", func() (string, error) {
		if err := s.Driver.Click(ctx, browser.CSS(fmt.Sprintf("a[href='%s']", route))); err != nil {
			return "", err
		}
		return "Link " + route + " clicked", nil
	}); err != nil {
		return err
	}
	return s.Step("Check "+route+" page", func() (string, error) {
		var got string
		err := s.waitUntil(ctx, s.Env.Config.WaitTimeout(), func(ctx context.Context) (bool, error) {
			loc, err := s.Driver.Location(ctx)
			if err != nil {
				return false, err
			}
			got = loc
			return pathOf(loc) == route, nil
		})
		if err != nil {
			return "", fmt.Errorf("expected %s, browser is at %s", route, got)
		}
		return "Browser at " + got, nil
	})
}

// submitLoginForm fills the login form with the configured account.
func submitLoginForm(ctx context.Context, s *Session) error {
	creds := s.Env.Config.Credentials
	s.Input("Email", creds.Email)
	s.Input("Password", creds.Password)

	if err := s.Step("Enter credentials", func() (string, error) {
		if err := s.Driver.Type(ctx, emailInput, creds.Email); err != nil {
			return "", fmt.Errorf("email field: %w", err)
		}
		if err := s.Driver.Type(ctx, passInput, creds.Password); err != nil {
			return "", fmt.Errorf("password field: %w", err)
		}
		return "Email " + creds.Email + " and password entered", nil
	}); err != nil {
		return err
	}
	return s.Step("Submit login form", func() (string, error) {
		if err := s.Driver.Click(ctx, loginButton); err != nil {
			return "", err
		}
		return "Login button clicked", nil
	})
}

// awaitLeaveLogin waits until the browser navigates away from the login page.
// On failure the on-page error text, if any, is returned.
func awaitLeaveLogin(ctx context.Context, s *Session) (string, error) {
	var loc string
	err := s.waitUntil(ctx, s.Env.Config.WaitTimeout(), func(ctx context.Context) (bool, error) {
		l, err := s.Driver.Location(ctx)
		if err != nil {
			return false, err
		}
		loc = l
		return !strings.Contains(strings.ToLower(pathOf(l)), "login"), nil
	})
	if err == nil {
		return loc, nil
	}
	if n, cerr := s.Driver.Count(ctx, loginErrors); cerr == nil && n > 0 {
		if msg, terr := s.Driver.Text(ctx, loginErrors); terr == nil && strings.TrimSpace(msg) != "" {
			return loc, fmt.Errorf("login rejected: %s", strings.TrimSpace(msg))
		}
	}
	return loc, errors.New("still on login page")
}

// injectSession logs in through the backend and stores the session where the
// frontend expects it, bypassing the login form.
func injectSession(ctx context.Context, s *Session) error {
	var token, userID string
	if err := s.Step("Authenticate via backend", func() (string, error) {
		if s.Env.Backend == nil {
			return "", errNoBackend
		}
		creds := s.Env.Config.Credentials
		s.Input("Email", creds.Email)
		s.Input("Password", creds.Password)
		t, err := s.Env.Backend.Login(ctx, creds.Email, creds.Password)
		if err != nil {
			return "", err
		}
		p, err := s.Env.Backend.Profile(ctx, t)
		if err != nil {
			return "", err
		}
		if p.ID == "" {
			return "", errors.New("profile has no user id")
		}
		token, userID = t, p.ID
		return "Token and user id obtained for " + creds.Email, nil
	}); err != nil {
		return err
	}
	if err := openHome(ctx, s); err != nil {
		return err
	}
	return s.Step("Inject session into localStorage", func() (string, error) {
		script := fmt.Sprintf("window.localStorage.setItem('token', %s); window.localStorage.setItem('user_id', %s);",
			jsString(token), jsString(userID))
		if err := s.Driver.Eval(ctx, script, nil); err != nil {
			return "", err
		}
		return "token and user_id stored", nil
	})
}

func scrollDown(ctx context.Context, s *Session) error {
	return s.Driver.Eval(ctx, "window.scrollBy(0, 300);", nil)
}

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func pathOf(loc string) string {
	u, err := url.Parse(loc)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
