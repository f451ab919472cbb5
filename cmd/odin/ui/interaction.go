package ui

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const (
	envNoInteraction = "NO_INTERACTION"
	envCI            = "CI"
	envTerm          = "TERM"
)

var interactionState struct {
	mu          sync.RWMutex
	initialized bool
	interactive bool
}

// ConfigureInteraction decides once whether output goes to a human. The
// color profile follows: full color when interactive, plain ASCII otherwise.
func ConfigureInteraction(noInteraction bool) {
	interactive := detectInteractiveMode(noInteraction, os.Getenv, stdoutIsTerminal)

	interactionState.mu.Lock()
	interactionState.initialized = true
	interactionState.interactive = interactive
	interactionState.mu.Unlock()

	if interactive {
		lipgloss.SetColorProfile(termenv.ColorProfile())
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

func IsInteractive() bool {
	interactionState.mu.RLock()
	initialized, interactive := interactionState.initialized, interactionState.interactive
	interactionState.mu.RUnlock()
	if initialized {
		return interactive
	}

	ConfigureInteraction(false)
	return IsInteractive()
}

func IsNoInteraction() bool {
	return !IsInteractive()
}

// ClearScreen erases w and homes the cursor when output is interactive.
func ClearScreen(w io.Writer) {
	if IsNoInteraction() {
		return
	}
	out := termenv.NewOutput(w)
	out.ClearScreen()
}

func detectInteractiveMode(noInteraction bool, getenv func(string) string, isTerminal func() bool) bool {
	if noInteraction {
		return false
	}
	if envTruthy(getenv(envNoInteraction)) || envTruthy(getenv(envCI)) {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(getenv(envTerm)), "dumb") {
		return false
	}
	return isTerminal()
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func envTruthy(v string) bool {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
