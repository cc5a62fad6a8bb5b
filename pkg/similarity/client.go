package similarity

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/noah-isme/simcheck-bridge/pkg/middleware/requestid"
)

// Endpoint templates understood by the similarity service.
const (
	EndpointCreateSubmission = "/submissions"
	EndpointUploadSubmission = "/submissions/{{submission_id}}/original"
	EndpointSimilarity       = "/submissions/{{submission_id}}/similarity"
	EndpointViewerLaunch     = "/submissions/{{submission_id}}/viewer-url"
	EndpointFeaturesEnabled  = "/features-enabled"

	submissionIDPlaceholder = "{{submission_id}}"
	defaultContentType      = "application/json"
	maxResponseBytes        = 4 << 20
)

// SubmissionEndpoint substitutes the remote submission id into an endpoint template.
func SubmissionEndpoint(template, remoteID string) string {
	return strings.ReplaceAll(template, submissionIDPlaceholder, remoteID)
}

// Request describes one outbound call.
type Request struct {
	// Operation labels the call for logs and metrics (e.g. "create").
	Operation string
	Method    string
	Endpoint  string
	Body      []byte
	Headers   map[string]string
}

// Response is the raw outcome of a call that reached the service.
type Response struct {
	StatusCode int
	Body       []byte
}

// TransportError reports a call that produced no HTTP response.
type TransportError struct {
	Operation string
	Reason    string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("similarity %s: %s: %v", e.Operation, e.Reason, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportFailure reports whether err is a connectivity-level failure.
func IsTransportFailure(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// CallObserver receives timing for every completed call.
type CallObserver interface {
	ObserveRemoteCall(operation string, statusCode int, duration time.Duration)
}

// Config configures the client.
type Config struct {
	BaseURL            string
	APIKey             string
	IntegrationName    string
	IntegrationVersion string
	Timeout            time.Duration
	RequestsPerSecond  float64
	Burst              int
	HTTPClient         *http.Client
	Observer           CallObserver
}

// Client sends requests to the similarity service.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient validates the configuration and builds a client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("similarity base url is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:     cfg,
		client:  httpClient,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  logger,
	}, nil
}

// Send performs the call. Any failure to obtain an HTTP response is returned
// as a *TransportError; every HTTP status is returned as a Response.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Operation: req.Operation, Reason: "rate_limited", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.cfg.BaseURL+req.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build similarity request: %w", err)
	}
	httpReq.Header.Set("Content-Type", defaultContentType)
	httpReq.Header.Set("Accept", defaultContentType)
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if c.cfg.IntegrationName != "" {
		httpReq.Header.Set("X-Integration-Name", c.cfg.IntegrationName)
	}
	if c.cfg.IntegrationVersion != "" {
		httpReq.Header.Set("X-Integration-Version", c.cfg.IntegrationVersion)
	}
	if reqID := requestid.FromContext(ctx); reqID != "" {
		httpReq.Header.Set(requestid.Header, reqID)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		terr := &TransportError{Operation: req.Operation, Reason: transportReason(err), Err: err}
		c.observe(req.Operation, 0, time.Since(start))
		c.logger.Sugar().Warnw("similarity call failed", "operation", req.Operation, "reason", terr.Reason, "error", err)
		return nil, terr
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	duration := time.Since(start)
	c.observe(req.Operation, resp.StatusCode, duration)
	if err != nil {
		return nil, &TransportError{Operation: req.Operation, Reason: "response_read_error", Err: err}
	}

	c.logger.Sugar().Debugw("similarity call completed", "operation", req.Operation, "status", resp.StatusCode, "duration", duration)
	return &Response{StatusCode: resp.StatusCode, Body: payload}, nil
}

func (c *Client) observe(operation string, status int, d time.Duration) {
	if c.cfg.Observer != nil {
		c.cfg.Observer.ObserveRemoteCall(operation, status, d)
	}
}

func transportReason(err error) string {
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return "transport_error"
}
