// Package client talks to the generation service's REST API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chatdev/internal/config"
	"chatdev/internal/logging"
	"chatdev/internal/session"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	sessionsPath = "/api/sessions"
	sessionPath  = "/api/sessions/{id}"
	filesPath    = "/api/sessions/{id}/files"
	healthPath   = "/api/health"

	requestIDHeader  = "X-Request-ID"
	defaultUserAgent = "chatdev-client"
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient *http.Client
}

// Client is the session registry: one-shot request/response calls against
// the service. Nothing is retried.
type Client struct {
	baseURL string
	resty   *resty.Client
}

// New creates a client.
func New(opts Options) *Client {
	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	rc.SetBaseURL(baseURL).
		SetHeader("User-Agent", ua).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}

	return &Client{baseURL: baseURL, resty: rc}
}

// NewFromConfig creates a client from the server section of cfg.
func NewFromConfig(cfg *config.Config) *Client {
	return New(Options{
		BaseURL:   cfg.Server.BaseURL,
		Timeout:   cfg.Server.HTTPTimeout,
		UserAgent: cfg.Server.UserAgent,
	})
}

// BaseURL returns the REST base address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateRequest is the body of a create-session call.
type CreateRequest struct {
	Task        string `json:"task"`
	ProjectName string `json:"project_name"`
	ModelType   string `json:"model_type"`
	APIKey      string `json:"api_key"`
	Provider    string `json:"provider"`
}

type listResponse struct {
	Sessions []session.Session `json:"sessions"`
}

type filesResponse struct {
	Files []session.File `json:"files"`
}

// Health is the service health report.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.resty.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, uuid.NewString())
}

// do executes req and converts non-2xx responses into *RequestError.
func (c *Client) do(req *resty.Request, method, path, op string) error {
	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		logging.Debug("request failed", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	logging.Debug("request done",
		"op", op,
		"status", resp.StatusCode(),
		"request_id", req.Header.Get(requestIDHeader),
		"duration", time.Since(start))

	if !resp.IsSuccess() {
		return newRequestError(resp.StatusCode(), resp.Status(), resp.Body())
	}
	return nil
}

// CreateSession asks the service to start a generation session. A missing
// API key fails locally with *MissingCredentialError.
func (c *Client) CreateSession(ctx context.Context, in CreateRequest) (session.Session, error) {
	if strings.TrimSpace(in.APIKey) == "" {
		return session.Session{}, &MissingCredentialError{Provider: in.Provider}
	}

	var out session.Session
	req := c.request(ctx).
		SetBody(in).
		SetResult(&out).
		ForceContentType("application/json")
	if err := c.do(req, resty.MethodPost, sessionsPath, "create session"); err != nil {
		return session.Session{}, err
	}
	if out.ID == "" {
		return session.Session{}, ErrMissingSessionID
	}

	// The service does not always echo these back.
	if out.Provider == "" {
		out.Provider = in.Provider
	}
	if out.ProjectName == "" {
		out.ProjectName = in.ProjectName
	}
	if out.Task == "" {
		out.Task = in.Task
	}
	if out.ModelType == "" {
		out.ModelType = in.ModelType
	}
	return out, nil
}

// ListSessions returns every session known to the service.
func (c *Client) ListSessions(ctx context.Context) ([]session.Session, error) {
	var out listResponse
	req := c.request(ctx).
		SetResult(&out).
		ForceContentType("application/json")
	if err := c.do(req, resty.MethodGet, sessionsPath, "list sessions"); err != nil {
		return nil, err
	}
	if out.Sessions == nil {
		return []session.Session{}, nil
	}
	return out.Sessions, nil
}

// DeleteSession removes a session on the service.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	req := c.request(ctx).SetPathParam("id", id)
	return c.do(req, resty.MethodDelete, sessionPath, "delete session")
}

// FetchFiles returns the generated files of a session. No files yet is an
// empty slice, not an error.
func (c *Client) FetchFiles(ctx context.Context, id string) ([]session.File, error) {
	var out filesResponse
	req := c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		ForceContentType("application/json")
	if err := c.do(req, resty.MethodGet, filesPath, "fetch files"); err != nil {
		return nil, err
	}
	if out.Files == nil {
		return []session.File{}, nil
	}
	return out.Files, nil
}

// Health checks that the service is reachable.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	req := c.request(ctx).
		SetResult(&out).
		ForceContentType("application/json")
	if err := c.do(req, resty.MethodGet, healthPath, "health check"); err != nil {
		return Health{}, err
	}
	return out, nil
}
