package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/sethvargo/go-password/password"

	"acceptance/browser"
)

const passwordSymbols = "@$!%*?&"

var (
	signupButton  = browser.CSS("button.signup-button")
	signupMessage = browser.CSS("p.signup-message")
)

type signupField struct {
	Placeholder string
	Value       string
}

// signupFixture builds a unique account for one signup run.
func signupFixture(now time.Time) ([]signupField, error) {
	pw, err := fixturePassword()
	if err != nil {
		return nil, err
	}
	stamp := now.Unix()
	return []signupField{
		{"Nombre", "Juan"},
		{"Apellido", "Pérez"},
		{"Edad", "25"},
		{"Fecha de nacimiento", "01-05-2000"},
		{"Correo electrónico", fmt.Sprintf("juan.perez.%d@test.com", stamp)},
		{"Nombre de usuario", fmt.Sprintf("juanperez_%d", stamp)},
		{"Contraseña", pw},
		{"Repetir contraseña", pw},
	}, nil
}

// fixturePassword returns a password with upper and lower case letters, a
// digit and a symbol, at least 8 characters long.
func fixturePassword() (string, error) {
	gen, err := password.NewGenerator(&password.GeneratorInput{Symbols: passwordSymbols})
	if err != nil {
		return "", err
	}
	for range 20 {
		pw, err := gen.Generate(12, 2, 2, false, false)
		if err != nil {
			return "", err
		}
		if meetsPolicy(pw) {
			return pw, nil
		}
	}
	return "", errors.New("could not generate a compliant password")
}

func meetsPolicy(pw string) bool {
	var upper, lower, digit, symbol bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return len(pw) >= 8 && upper && lower && digit && symbol
}

func signupProcedure() Procedure {
	return Procedure{
		Name:  "signup",
		Title: "Signup test report",
		Run: func(ctx context.Context, s *Session) error {
			fields, err := signupFixture(time.Now())
			if err != nil {
				return err
			}
			if err := openHome(ctx, s); err != nil {
				return err
			}
			if err := openByLink(ctx, s, "Signup", "/signup"); err != nil {
				return err
			}
			for _, f := range fields {
				s.Input(f.Placeholder, f.Value)
				s.TryStep("Fill '"+f.Placeholder+"'", func() (string, error) {
					sel := browser.Placeholder("input", f.Placeholder)
					if err := s.Driver.Type(ctx, sel, f.Value); err != nil {
						return "", err
					}
					return f.Value, nil
				})
			}
			s.TryStep("Scroll form", func() (string, error) {
				return "Scrolled 300px", scrollDown(ctx, s)
			})
			if err := s.Step("Submit signup form", func() (string, error) {
				if err := s.Driver.Click(ctx, signupButton); err != nil {
					return "", err
				}
				return "Signup button clicked", nil
			}); err != nil {
				return err
			}
			s.Verify("Check signup message", func() (string, error) {
				var msg string
				err := s.waitUntil(ctx, s.Env.Config.WaitTimeout(), func(ctx context.Context) (bool, error) {
					text, err := s.Driver.Text(ctx, signupMessage)
					msg = strings.TrimSpace(text)
					return msg != "", err
				})
				if err != nil {
					return "", fmt.Errorf("no signup message shown: %w", err)
				}
				return "Signup message: " + msg, nil
			})
			return nil
		},
	}
}
