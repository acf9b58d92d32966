package scanner

import (
	"sync/atomic"
	"time"
)

// Progress tracks probe completions for one scan. It is shared by every
// worker and safe for concurrent use; readers never block writers.
// Construct a fresh Progress per scan so repeated scans in one process do
// not leak counts into each other.
type Progress struct {
	total     atomic.Int64
	completed atomic.Int64
	responded atomic.Int64
	start     time.Time
}

// NewProgress creates a progress tracker with zero counters.
func NewProgress() *Progress {
	return &Progress{start: time.Now()}
}

// SetTotal fixes the number of targets. It is set once, before dispatch
// begins, and never changes afterwards.
func (p *Progress) SetTotal(n int) {
	p.total.Store(int64(n))
}

// RecordCompletion counts one finished probe, successful or not.
func (p *Progress) RecordCompletion() {
	p.completed.Add(1)
}

// RecordResponse counts one probe that produced an HTTP response.
func (p *Progress) RecordResponse() {
	p.responded.Add(1)
}

// Total returns the fixed target count.
func (p *Progress) Total() int { return int(p.total.Load()) }

// Completed returns how many probes have finished so far.
func (p *Progress) Completed() int { return int(p.completed.Load()) }

// Responded returns how many probes produced an HTTP response.
func (p *Progress) Responded() int { return int(p.responded.Load()) }

// Fraction returns completed/total in [0,1]. A zero total yields 0.
func (p *Progress) Fraction() float64 {
	total := p.total.Load()
	if total == 0 {
		return 0
	}
	return float64(p.completed.Load()) / float64(total)
}

// Done reports whether every target has produced an outcome.
func (p *Progress) Done() bool {
	total := p.total.Load()
	return total > 0 && p.completed.Load() >= total
}

// Elapsed returns the time since the tracker was created.
func (p *Progress) Elapsed() time.Duration {
	return time.Since(p.start)
}

// Rate returns completed probes per second since the scan started.
func (p *Progress) Rate() float64 {
	secs := time.Since(p.start).Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(p.completed.Load()) / secs
}
