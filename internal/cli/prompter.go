package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"golang.org/x/term"
)

// maxPromptAttempts bounds how often a field is re-asked after a validation error.
const maxPromptAttempts = 3

// Prompter asks for values interactively. Validation errors are shown next to
// the prompt and the field is asked again.
type Prompter struct {
	reader *LineReader
	writer io.Writer
	// readSecret reads a line without echo; nil falls back to reader.
	readSecret func() (string, error)
}

// NewPrompter creates a prompter. When reader is os.Stdin on a terminal,
// secrets are read without echo.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	p := &Prompter{reader: NewLineReader(reader), writer: writer}
	if f, ok := reader.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		p.readSecret = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd())) //nolint:gosec // fd fits in int
			_, _ = fmt.Fprintln(writer)
			return string(b), err
		}
	}
	return p
}

// Ask prints label and returns the trimmed answer, or def when blank.
func (p *Prompter) Ask(ctx context.Context, label, def string) (string, error) {
	prompt := label
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]", label, def)
	}
	if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	line, err := p.reader.ReadLine(ctx)
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// AskValid repeats Ask until validate accepts the answer.
func (p *Prompter) AskValid(ctx context.Context, label, def string, validate func(string) error) (string, error) {
	var lastErr error
	for range maxPromptAttempts {
		answer, err := p.Ask(ctx, label, def)
		if err != nil {
			return "", err
		}
		if lastErr = validate(answer); lastErr == nil {
			return answer, nil
		}
		var validation *common.ValidationError
		if errors.As(lastErr, &validation) {
			_, _ = fmt.Fprintln(p.writer, FormatError(validation.Message))
			continue
		}
		return "", lastErr
	}
	return "", lastErr
}

// Confirm asks a yes/no question; anything but y or yes is no.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.Ask(ctx, question+" (y/N)", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Passcode asks for the admin passcode, without echo on a terminal.
func (p *Prompter) Passcode(ctx context.Context) (string, error) {
	if p.readSecret == nil {
		return p.Ask(ctx, LockIcon+" Admin passcode", "")
	}
	if _, err := fmt.Fprint(p.writer, FormatPrompt(LockIcon+" Admin passcode")); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	secret, err := p.readSecret()
	if err != nil {
		return "", fmt.Errorf("failed to read passcode: %w", err)
	}
	return strings.TrimSpace(secret), nil
}

// PromptEntry collects the fields of a manual entry, starting from current
// (the zero value for a new entry). Every field is validated as it is typed.
func (p *Prompter) PromptEntry(ctx context.Context, current model.ManualEntry) (model.ManualEntry, error) {
	entry := current

	code, err := p.AskValid(ctx, "HTS code or range (e.g. 7604.10 or 7604.10-7606.90)", current.Code, model.ValidateHTSCode)
	if err != nil {
		return model.ManualEntry{}, err
	}
	entry.Code = strings.TrimSpace(code)

	category, err := p.AskValid(ctx, "Category", current.Category, required("category", "Category name is required"))
	if err != nil {
		return model.ManualEntry{}, err
	}
	entry.Category = category

	description, err := p.AskValid(ctx, "Rule detail", current.Description, required("description", "Rule detail is required"))
	if err != nil {
		return model.ManualEntry{}, err
	}
	entry.Description = description

	metal, err := p.AskValid(ctx, "Metal (Aluminum/Steel/Both)", string(current.MetalType), func(s string) error {
		_, err := model.ParseMetalType(s)
		return err
	})
	if err != nil {
		return model.ManualEntry{}, err
	}
	entry.MetalType, _ = model.ParseMetalType(metal)

	return entry, nil
}

func required(field, message string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return &common.ValidationError{Field: field, Message: message}
		}
		return nil
	}
}
