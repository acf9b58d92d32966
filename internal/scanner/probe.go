package scanner

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/httpmap/httpmap/internal/config"
	"github.com/httpmap/httpmap/internal/netenum"
)

// Reason classifies why a probe target was unreachable.
type Reason string

const (
	ReasonTimeout Reason = "timeout"
	ReasonRefused Reason = "connection_refused"
	ReasonTLS     Reason = "tls_error"
	ReasonParse   Reason = "parse_error"
)

// Result is the outcome of probing a single target. Responded reports
// whether an HTTP response arrived; when it is false, Reason says why.
// Title is empty when the page has no parsable <title> element, which is
// a normal outcome, not a failure.
type Result struct {
	Target     netenum.Target
	Responded  bool
	StatusCode int
	Title      string
	Elapsed    time.Duration
	Reason     Reason
	Timestamp  time.Time
}

// maxBodyBytes caps how much of a response body is read for title extraction.
const maxBodyBytes = 512 * 1024

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Prober issues a single HTTP(S) GET to a target's root path.
type Prober struct {
	client    *http.Client
	userAgent string
}

// NewProber builds a prober from the scan configuration. Certificate
// validation is skipped: internal devices routinely serve self-signed
// certificates and a scan should still report their status codes.
func NewProber(cfg config.ScanConfig) *Prober {
	timeout := cfg.ProbeTimeout()

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		DisableKeepAlives: true,
	}

	return &Prober{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent: cfg.UserAgent,
	}
}

// Probe requests the root path of one target and classifies the outcome.
// Transport failures are contained here: the returned Result is never an
// error that could abort the surrounding scan.
func (p *Prober) Probe(ctx context.Context, t netenum.Target) Result {
	result := Result{Target: t, Timestamp: time.Now()}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL(), nil)
	if err != nil {
		result.Reason = ReasonParse
		result.Elapsed = time.Since(start)
		return result
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		result.Reason = classifyError(err)
		result.Elapsed = time.Since(start)
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.Responded = true
	result.StatusCode = resp.StatusCode

	// A body read failure after the status line still counts as a response;
	// it only costs us the title.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err == nil {
		result.Title = ExtractTitle(body)
	}

	result.Elapsed = time.Since(start)
	return result
}

// ExtractTitle returns the trimmed content of the first <title> element,
// matched case-insensitively, or an empty string when none is present.
func ExtractTitle(body []byte) string {
	m := titleRe.FindSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(string(m[1]))
}

func classifyError(err error) Reason {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return ReasonRefused
	}

	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return ReasonTLS
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return ReasonTLS
	}
	if strings.Contains(err.Error(), "tls:") {
		return ReasonTLS
	}

	// DNS failures, malformed URLs and anything else transport-shaped.
	return ReasonParse
}
