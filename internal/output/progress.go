package output

import (
	"fmt"
	"os"
	"time"

	"github.com/httpmap/httpmap/internal/scanner"
)

// ProgressRenderer periodically draws a progress line on stderr from the
// engine's shared progress tracker. It only reads the counters; rendering
// never blocks a prober.
type ProgressRenderer struct {
	progress *scanner.Progress
	done     chan struct{}
	quiet    bool
}

// NewProgressRenderer creates a renderer for the given tracker. Call Start
// to begin display updates.
func NewProgressRenderer(progress *scanner.Progress, quiet bool) *ProgressRenderer {
	return &ProgressRenderer{
		progress: progress,
		done:     make(chan struct{}),
		quiet:    quiet,
	}
}

// Start begins periodically printing progress to stderr.
func (r *ProgressRenderer) Start() {
	if r.quiet {
		return
	}
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.print()
			case <-r.done:
				r.print()
				fmt.Fprint(os.Stderr, "\n")
				return
			}
		}
	}()
}

// Stop ends the progress display after a final draw.
func (r *ProgressRenderer) Stop() {
	if r.quiet {
		return
	}
	close(r.done)
}

func (r *ProgressRenderer) print() {
	completed := r.progress.Completed()
	total := r.progress.Total()

	eta := ""
	rate := r.progress.Rate()
	if rate > 0 && completed < total {
		remaining := float64(total-completed) / rate
		eta = fmt.Sprintf("ETA: %s", time.Duration(remaining*float64(time.Second)).Round(time.Second))
	}

	fmt.Fprintf(os.Stderr, "\r\033[K[%3.0f%%] %d/%d | %.0f probe/s | Responded: %d | %s",
		r.progress.Fraction()*100, completed, total, rate,
		r.progress.Responded(), eta)
}
