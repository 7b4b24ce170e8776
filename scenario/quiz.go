package scenario

import (
	"context"
	"fmt"
	"strings"

	"acceptance/browser"
)

const (
	quizTitle         = "Quiz_Test"
	quizQuestion      = "1+1"
	quizCorrectAnswer = "2"
	quizTimeLimit     = "10"
	quizCreatedAlert  = "quiz creado exitosamente"
)

var (
	textInputs   = "//input[contains(@class,'form-control') and @type='text']"
	correctInput = browser.CSS("input.form-control.correct")
	timeInput    = browser.CSS("input.form-control[type='number']")
	addQuestion  = browser.ButtonText("Agregar Pregunta")
	saveQuiz     = browser.ButtonText("Guardar Quiz")
	quizOptions  = []string{"1", "2", "3"}
)

func createQuizProcedure() Procedure {
	return Procedure{
		Name:             "create_quiz",
		Title:            "Create quiz test report",
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
			if err := s.Step("Wait for login redirect", func() (string, error) {
				loc, err := awaitLeaveLogin(ctx, s)
				if err != nil {
					return "", err
				}
				return "Redirected to " + loc, nil
			}); err != nil {
				return err
			}
			if err := openByLink(ctx, s, "Create quiz", "/create-quiz"); err != nil {
				return err
			}

			s.Input("Quiz title", quizTitle)
			s.Input("Question", quizQuestion)
			s.Input("Correct answer", quizCorrectAnswer)
			s.Input("Time limit", quizTimeLimit)

			type field struct {
				step string
				sel  browser.Selector
				text string
			}
			if err := s.Step("Enter quiz title", func() (string, error) {
				return quizTitle, s.Driver.Type(ctx, browser.Nth(textInputs, 1), quizTitle)
			}); err != nil {
				return err
			}
			if err := s.Step("Add question", func() (string, error) {
				return "Question block added", s.Driver.Click(ctx, addQuestion)
			}); err != nil {
				return err
			}
			fields := []field{{"Enter question", browser.Nth(textInputs, 2), quizQuestion}}
			for i, opt := range quizOptions {
				fields = append(fields, field{
					step: fmt.Sprintf("Enter option %d", i+1),
					sel:  browser.Placeholder("input", fmt.Sprintf("Opcion %d", i+1)),
					text: opt,
				})
			}
			fields = append(fields,
				field{"Enter correct answer", correctInput, quizCorrectAnswer},
				field{"Enter time limit", timeInput, quizTimeLimit},
			)
			for _, f := range fields {
				if err := s.Step(f.step, func() (string, error) {
					return f.text, s.Driver.Type(ctx, f.sel, f.text)
				}); err != nil {
					return err
				}
			}

			s.TryStep("Scroll form", func() (string, error) {
				return "Scrolled 300px", scrollDown(ctx, s)
			})
			if err := s.Step("Save quiz", func() (string, error) {
				return "Save button clicked", s.Driver.Click(ctx, saveQuiz)
			}); err != nil {
				return err
			}
			s.Verify("Check confirmation alert", func() (string, error) {
				msg, err := s.Driver.AcceptDialog(ctx)
				if err != nil {
					return "", fmt.Errorf("no confirmation alert: %w", err)
				}
				if !strings.EqualFold(strings.TrimSpace(msg), quizCreatedAlert) {
					return "", fmt.Errorf("unexpected alert %q", msg)
				}
				return "Quiz created: " + msg, nil
			})
			return nil
		},
	}
}
