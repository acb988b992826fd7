// Package rest talks to a Supabase-compatible backend over its HTTP APIs:
// GoTrue auth, PostgREST records and RPC, and object storage.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/electrix/tracker/internal/core/domain"
	"github.com/electrix/tracker/internal/core/ports"
	"github.com/electrix/tracker/internal/infrastructure/backend"
)

const defaultTimeout = 15 * time.Second

type Config struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

// Client is the Supabase driver of ports.Backend.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	log     zerolog.Logger
}

var _ ports.Backend = (*Client)(nil)

func New(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *Client) Auth() ports.AuthGateway { return &authClient{c: c} }

// Ephemeral returns an auth client that keeps nothing after SignUp returns;
// the session it may receive is handed to the caller and never stored.
func (c *Client) Ephemeral() ports.CredentialIssuer { return &authClient{c: c} }

func (c *Client) As(session *domain.AuthSession) ports.Gateway {
	token := ""
	if session != nil {
		token = session.AccessToken
	}
	return &gateway{c: c, token: token}
}

// request describes one call. token is the caller's access token; the anon
// key is used when empty.
type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	token   string
	header  http.Header
	body    any
	rawBody io.Reader
}

// do sends req and decodes a successful JSON response into out (when out is
// non-nil). Failures are mapped onto the domain error taxonomy.
func (c *Client) do(ctx context.Context, req request, out any) (err error) {
	defer func(start time.Time) { backend.Observe(req.op, start, err) }(time.Now())

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	body := req.rawBody
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", req.op, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("%s: %w", req.op, err)
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("apikey", c.anonKey)
	token := req.token
	if token == "" {
		token = c.anonKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%s: %w", req.op, err)
		}
		return fmt.Errorf("%s: %w: %v", req.op, domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s: %w", req.op, decodeError(resp))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s: read body: %w", req.op, err)
		}
		*raw = data
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", req.op, err)
	}
	return nil
}

// apiError is the union of the error bodies of GoTrue, PostgREST and storage.
type apiError struct {
	Status      int    `json:"-"`
	Code        any    `json:"code"`
	ErrorCode   string `json:"error_code"`
	Message     string `json:"message"`
	Msg         string `json:"msg"`
	ErrorName   string `json:"error"`
	Description string `json:"error_description"`
	StatusCode  string `json:"statusCode"`
	sentinel    error
}

func (e *apiError) Error() string {
	text := e.Message
	for _, alt := range []string{e.Msg, e.Description, e.ErrorName} {
		if text == "" {
			text = alt
		}
	}
	return fmt.Sprintf("status %d: %s", e.Status, text)
}

func (e *apiError) Unwrap() error { return e.sentinel }

func (e *apiError) text() string {
	return strings.ToLower(strings.Join([]string{e.Message, e.Msg, e.Description, e.ErrorName, e.ErrorCode}, " "))
}

func decodeError(resp *http.Response) error {
	e := &apiError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, e)

	status := resp.StatusCode
	// The storage API reports its own status inside a 400 body.
	if n, err := strconv.Atoi(e.StatusCode); err == nil {
		status = n
	}

	switch {
	case status == http.StatusUnauthorized:
		e.sentinel = domain.ErrUnauthenticated
	case status == http.StatusForbidden:
		e.sentinel = domain.ErrForbidden
	case status == http.StatusNotFound || status == http.StatusNotAcceptable:
		e.sentinel = domain.ErrNotFound
	case status == http.StatusConflict,
		strings.Contains(e.text(), "already"),
		strings.Contains(e.text(), "duplicate"):
		e.sentinel = domain.ErrConflict
	case status >= http.StatusInternalServerError:
		e.sentinel = domain.ErrBackendUnavailable
	}
	return e
}
