package scenario

import (
	"context"
)

func loginProcedure() Procedure {
	return Procedure{
		Name:             "login",
		Title:            "Login test report",
		NeedsCredentials: true,
		Run: func(ctx context.Context, s *Session) error {
			if err := openHome(ctx, s); err != nil {
				return err
			}
			if err := openByLink(ctx, s, "Login", "/login"); err != nil {
				return err
			}
			if err := submitLoginForm(ctx, s); err != nil {
				return err
			}
			s.Verify("Verify redirect after login", func() (string, error) {
				loc, err := awaitLeaveLogin(ctx, s)
				if err != nil {
					return "", err
				}
				s.Run.SetFinalURL(loc)
				return "Login successful, redirected to " + loc, nil
			})
			return nil
		},
	}
}
