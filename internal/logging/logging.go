package logging

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// Setup installs the global slog logger on stderr. Stdout is reserved for the
// version output line.
func Setup(verbose bool) {
	slog.SetDefault(New(os.Stderr, verbose))
}

// New builds a slog logger backed by charmbracelet/log. Terminals get colored
// text; anything else (CI logs, files) gets JSON.
func New(w io.Writer, verbose bool) *slog.Logger {
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
	})

	if verbose {
		handler.SetLevel(charmlog.DebugLevel)
	} else {
		handler.SetLevel(charmlog.InfoLevel)
	}

	if !isTerminal(w) {
		handler.SetFormatter(charmlog.JSONFormatter)
	}

	return slog.New(handler)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
