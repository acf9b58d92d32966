// Package output renders scan results and progress for the terminal.
package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/httpmap/httpmap/internal/scanner"
	"golang.org/x/term"
)

// ANSI color codes.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorDim     = "\033[2m"
	colorGreen   = "\033[32m"
	colorCyan    = "\033[36m"
	colorYellow  = "\033[33m"
	colorRed     = "\033[31m"
	colorMagenta = "\033[35m"
)

// Presenter writes colored result lines to a writer. It consumes the
// engine's result stream; the engine itself knows nothing about formatting.
type Presenter struct {
	w       io.Writer
	noColor bool
	quiet   bool
}

// NewPresenter creates a presenter writing to stdout. Color is disabled
// when requested or when stdout is not a terminal.
func NewPresenter(noColor, quiet bool) *Presenter {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		noColor = true
	}
	return &Presenter{w: os.Stdout, noColor: noColor, quiet: quiet}
}

// WriteResult prints one responded endpoint:
//
//	[200] Router Admin -> http://192.168.1.1:8080/
func (p *Presenter) WriteResult(r scanner.Result) {
	// Clear any progress line before printing on a shared terminal.
	if !p.quiet && !p.noColor {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}

	status := fmt.Sprintf("[%d]", r.StatusCode)
	title := r.Title
	arrow := "->"
	url := r.Target.URL()

	if p.noColor {
		fmt.Fprintf(p.w, "%s %s %s %s\n", status, title, arrow, url)
		return
	}

	fmt.Fprintf(p.w, "%s%s%s%s %s%s%s %s%s%s %s%s%s\n",
		colorBold, p.colorForStatus(r.StatusCode), status, colorReset,
		colorMagenta, title, colorReset,
		colorDim, arrow, colorReset,
		colorCyan, url, colorReset,
	)
}

// WriteSummary prints final scan statistics to stderr.
func (p *Presenter) WriteSummary(progress *scanner.Progress) {
	if p.quiet {
		return
	}
	fmt.Fprintf(os.Stderr,
		"\nCompleted: %d/%d probes | Responded: %d | Duration: %s | %.0f probe/s\n",
		progress.Completed(),
		progress.Total(),
		progress.Responded(),
		progress.Elapsed().Round(time.Millisecond),
		progress.Rate(),
	)
}

func (p *Presenter) colorForStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return colorGreen
	case code >= 300 && code < 400:
		return colorCyan
	case code >= 400 && code < 500:
		return colorYellow
	case code >= 500:
		return colorRed
	default:
		return ""
	}
}
