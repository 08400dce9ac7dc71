// Package prompt collects the user's consent before a command is retried
// with administrator rights. Elevation pops a UAC prompt, so it is never
// silent; the consent step keeps it from being a surprise either.
package prompt

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"

	"touchctl/pkg/errors"
	"touchctl/pkg/logging"
)

// Mode decides how an elevation request is answered.
type Mode string

const (
	// ModeInteractive asks on the terminal.
	ModeInteractive Mode = "interactive"
	// ModeAssumeYes approves every request without asking.
	ModeAssumeYes Mode = "assume-yes"
	// ModeAssumeNo declines every request without asking.
	ModeAssumeNo Mode = "assume-no"
)

// ParseMode validates a mode string from configuration or a flag.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeInteractive, ModeAssumeYes, ModeAssumeNo:
		return Mode(s), nil
	}
	return "", errors.Newf(errors.ErrInvalidInput,
		"unknown prompt mode %q, want interactive, assume-yes or assume-no", s)
}

// Asker implements powershell.Consent.
type Asker struct {
	mode    Mode
	logger  zerolog.Logger
	confirm func(message string) bool
}

// New creates an Asker for the given mode.
func New(mode Mode) *Asker {
	return &Asker{
		mode:    mode,
		logger:  logging.GetLogger("prompt"),
		confirm: termConfirm,
	}
}

// ConfirmElevate answers an elevation request according to the mode. In
// interactive mode without a terminal on stdin there is nobody to ask, so
// the request is declined.
func (a *Asker) ConfirmElevate() bool {
	switch a.mode {
	case ModeAssumeYes:
		a.logger.Debug().Msg("Elevation approved by assume-yes mode")
		return true
	case ModeAssumeNo:
		a.logger.Debug().Msg("Elevation declined by assume-no mode")
		return false
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		a.logger.Warn().Msg("No terminal to ask for elevation consent, declining")
		return false
	}
	return a.confirm("This operation needs administrator rights. Retry elevated?")
}

func termConfirm(message string) bool {
	ok, err := pterm.DefaultInteractiveConfirm.
		WithDefaultValue(false).
		Show(message)
	if err != nil {
		return false
	}
	return ok
}
