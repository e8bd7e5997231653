// Package verify checks serials against the compliance dashboard API.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/config"
)

// Statuses reported for a serial besides the dashboard's own text.
const (
	StatusPass          = "PASS"
	StatusNotFound      = "NOT FOUND"
	StatusUnknown       = "Unknown"
	StatusNoCredentials = "NOT VERIFIED - No credentials"
)

// Credentials are the dashboard session cookies.
type Credentials struct {
	SessionID string
	CSRFToken string
}

// Empty reports whether either cookie is missing.
func (c Credentials) Empty() bool {
	return c.SessionID == "" || c.CSRFToken == ""
}

// Result is the verification status of one serial.
type Result struct {
	Serial string `json:"serial"`
	Status string `json:"status"`
}

// Passed reports whether the serial is in compliance.
func (r Result) Passed() bool {
	return r.Status == StatusPass
}

// Summary counts results.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Report is the outcome of Verify.
type Report struct {
	Results []Result `json:"results"`
	Summary Summary  `json:"summary"`
}

// Map returns the status of each serial keyed by serial.
func (r *Report) Map() map[string]string {
	out := make(map[string]string, len(r.Results))
	for _, res := range r.Results {
		out[res.Serial] = res.Status
	}
	return out
}

// Client queries the dashboard's lights listing.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	concurrency int
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithConcurrency bounds the number of requests in flight.
func WithConcurrency(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a client for the listing endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:    endpoint,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		concurrency: 4,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig creates a client from the server configuration.
func NewClientFromConfig(cfg *config.MarathonConfig, logger *zap.Logger) *Client {
	return NewClient(cfg.ComplianceAPIURL,
		WithHTTPClient(&http.Client{Timeout: cfg.VerifyTimeout()}),
		WithConcurrency(cfg.VerifyConcurrency),
		WithLogger(logger),
	)
}

// Verify looks up every serial. Failures of individual lookups are
// reported as that serial's status, so Verify only returns an error when
// ctx ends first. Results follow the order of serials.
func (c *Client) Verify(ctx context.Context, serials []string, creds Credentials) (*Report, error) {
	results := make([]Result, len(serials))

	if creds.Empty() {
		for i, s := range serials {
			results[i] = Result{Serial: s, Status: StatusNoCredentials}
		}
		return newReport(results), nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, s := range serials {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Result{Serial: s, Status: c.lookup(ctx, s, creds)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := newReport(results)
	c.logger.Info("verified serials",
		zap.Int("total", report.Summary.Total),
		zap.Int("passed", report.Summary.Passed),
		zap.Int("failed", report.Summary.Failed))
	return report, nil
}

func newReport(results []Result) *Report {
	r := &Report{Results: results, Summary: Summary{Total: len(results)}}
	for _, res := range results {
		if res.Passed() {
			r.Summary.Passed++
		} else {
			r.Summary.Failed++
		}
	}
	return r
}

type listing struct {
	Data []struct {
		Status string `json:"composite_status_datatables_search"`
	} `json:"data"`
}

func (c *Client) lookup(ctx context.Context, serial string, creds Credentials) string {
	form := url.Values{
		"draw":          {"1"},
		"start":         {"0"},
		"length":        {"12"},
		"search[value]": {serial},
		"search[regex]": {"false"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "Error: " + err.Error()
	}
	req.Header.Set("Cookie", fmt.Sprintf("sessionid=%s; csrftoken=%s", creds.SessionID, creds.CSRFToken))
	req.Header.Set("X-Csrftoken", creds.CSRFToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("compliance lookup failed", zap.String("serial", serial), zap.Error(err))
		return "Error: " + err.Error()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("API Error: %d", resp.StatusCode)
	}

	var body listing
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "Error: " + err.Error()
	}
	if len(body.Data) == 0 {
		return StatusNotFound
	}
	return classify(body.Data[0].Status)
}

func classify(status string) string {
	if strings.Contains(status, "In Compliance") && !strings.Contains(status, "Issue") {
		return StatusPass
	}
	if status == "" {
		return StatusUnknown
	}
	return status
}
