package logger

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// colorProfile picks Ascii when NO_COLOR is set or w is a file that is not a
// terminal, and the detected profile otherwise.
func colorProfile(w io.Writer) termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	if f, ok := w.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return termenv.Ascii
	}
	return termenv.EnvColorProfile()
}

func newOutput(w io.Writer) *termenv.Output {
	return termenv.NewOutput(w, termenv.WithProfile(colorProfile(w)), termenv.WithTTY(true))
}
