// Package scanner implements the concurrent HTTP endpoint scan engine.
package scanner

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/httpmap/httpmap/internal/config"
	"github.com/httpmap/httpmap/internal/netenum"
	"github.com/httpmap/httpmap/internal/publisher"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Scanner coordinates subnet scans: it expands targets, dispatches them to
// a bounded worker pool and streams back the endpoints that responded.
// One Scanner runs at most one scan at a time.
type Scanner struct {
	cfg     config.ScanConfig
	pub     *publisher.Publisher
	logger  *zap.SugaredLogger
	limiter *rate.Limiter

	// probe is the per-target probe implementation; tests swap it out.
	probe func(ctx context.Context, t netenum.Target) Result

	mu      sync.Mutex
	running bool
	current *Scan
}

// Scan is one in-flight or finished scan run.
type Scan struct {
	ID       string
	Subnet   netenum.Subnet
	Progress *Progress

	results chan Result
	done    chan struct{}
}

// Results streams responded endpoints in completion order. The channel is
// closed once every target has produced an outcome.
func (s *Scan) Results() <-chan Result { return s.results }

// Wait blocks until the scan has run every target to completion.
func (s *Scan) Wait() { <-s.done }

// New creates a Scanner. pub may be nil, in which case no events are
// published.
func New(cfg config.ScanConfig, pub *publisher.Publisher, logger *zap.SugaredLogger) *Scanner {
	return &Scanner{
		cfg:     cfg,
		pub:     pub,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
		probe:   NewProber(cfg).Probe,
	}
}

// Start validates the configuration, fixes the target total and launches
// the worker pool. Configuration errors surface here, before any network
// I/O; individual probe failures never do. The scan runs every target to
// completion unless ctx is cancelled, which only happens through the
// service control plane, never during a CLI run.
func (s *Scanner) Start(ctx context.Context, subnet netenum.Subnet) (*Scan, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("scan already running")
	}
	s.running = true

	scan := &Scan{
		ID:       uuid.New().String(),
		Subnet:   subnet,
		Progress: NewProgress(),
		results:  make(chan Result, s.cfg.Concurrency),
		done:     make(chan struct{}),
	}
	scan.Progress.SetTotal(subnet.TargetCount(s.cfg.Ports))
	s.current = scan
	s.mu.Unlock()

	s.logger.Infow("Starting scan",
		"scan_id", scan.ID,
		"subnet", subnet.String(),
		"targets", scan.Progress.Total(),
		"concurrency", s.cfg.Concurrency,
	)

	go s.run(ctx, scan)

	return scan, nil
}

// IsRunning reports whether a scan is currently in flight.
func (s *Scanner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Current returns the most recent scan, or nil if none has started.
func (s *Scanner) Current() *Scan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// ProbeOne probes a single target synchronously, outside any running scan.
func (s *Scanner) ProbeOne(ctx context.Context, t netenum.Target) Result {
	return s.probe(ctx, t)
}

func (s *Scanner) run(ctx context.Context, scan *Scan) {
	targetCh := make(chan netenum.Target, s.cfg.Concurrency*2)
	var wg sync.WaitGroup

	for i := 0; i < s.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range targetCh {
				if err := s.limiter.Wait(ctx); err != nil {
					// Cancelled mid-scan: drain the backlog so completed
					// still converges on the dispatched count.
					scan.Progress.RecordCompletion()
					continue
				}

				result := s.probe(ctx, t)
				scan.Progress.RecordCompletion()

				if !result.Responded {
					s.logger.Debugw("Target unreachable",
						"target", t.Addr(), "reason", result.Reason)
					continue
				}

				scan.Progress.RecordResponse()
				s.publish(scan.ID, result)
				scan.results <- result
			}
		}()
	}

	// Feed the cross product lazily; a /8 expansion never materializes
	// in memory.
	go func() {
		defer close(targetCh)
		scan.Subnet.Targets(s.cfg.Ports, func(t netenum.Target) bool {
			select {
			case targetCh <- t:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	wg.Wait()
	close(scan.results)
	close(scan.done)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Infow("Scan complete",
		"scan_id", scan.ID,
		"completed", scan.Progress.Completed(),
		"responded", scan.Progress.Responded(),
		"elapsed", scan.Progress.Elapsed(),
	)
}

func (s *Scanner) publish(scanID string, r Result) {
	if s.pub == nil {
		return
	}
	data := publisher.EndpointDiscoveredData{
		EndpointID: uuid.New().String(),
		ScanID:     scanID,
		IP:         r.Target.IP.String(),
		Port:       r.Target.Port,
		Scheme:     r.Target.Scheme(),
		URL:        r.Target.URL(),
		StatusCode: r.StatusCode,
		Title:      r.Title,
		ElapsedMS:  r.Elapsed.Milliseconds(),
	}
	if err := s.pub.PublishEndpointDiscovered(data); err != nil {
		s.logger.Errorw("Failed to publish result", "error", err)
	}
}
