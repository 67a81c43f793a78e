package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrTransport wraps failures where the request never produced a server
// verdict: DNS, refused connections, timeouts, unreadable bodies.
var ErrTransport = errors.New("auth api unreachable")

// RejectedError is an explicit server refusal (4xx) of a login or
// verification request.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth api rejected request (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("auth api rejected request (status %d): %s", e.StatusCode, e.Message)
}

// UserPayload is the user identity returned by a successful login.
type UserPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// LoginResponse carries the issued token and user identity.
type LoginResponse struct {
	Token string      `json:"token"`
	User  UserPayload `json:"user"`
}

// API is the remote authentication port consumed by the engine.
type API interface {
	// Login exchanges credentials (and the step-up code when required) for
	// a token. A *RejectedError means the server refused the credentials;
	// any error matching ErrTransport means no verdict was reached.
	Login(ctx context.Context, email, password, securityCode string) (*LoginResponse, error)

	// VerifySession reports whether the server still honors the token.
	// valid=false with a nil error is an explicit rejection; a non-nil
	// error means the check could not be performed.
	VerifySession(ctx context.Context, token string) (bool, error)
}

const defaultTimeout = 15 * time.Second

// Client is the HTTP implementation of [API].
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a zerolog logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates an HTTP client for the auth service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type loginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	SecurityCode string `json:"securityCode,omitempty"`
}

type rejectionBody struct {
	Message string `json:"message"`
}

// Login implements [API].
func (c *Client) Login(ctx context.Context, email, password, securityCode string) (*LoginResponse, error) {
	body, err := json.Marshal(loginRequest{
		Email:        email,
		Password:     password,
		SecurityCode: securityCode,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("login request failed in transit")
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var out LoginResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("%w: malformed login response: %v", ErrTransport, err)
		}
		if out.Token == "" || out.User.ID == "" {
			return nil, fmt.Errorf("%w: incomplete login response", ErrTransport)
		}
		return &out, nil
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		rejected := &RejectedError{StatusCode: resp.StatusCode}
		var rb rejectionBody
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&rb); err == nil {
			rejected.Message = rb.Message
		}
		c.log.Debug().Int("status", resp.StatusCode).Msg("login rejected by auth service")
		return nil, rejected
	}

	return nil, fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode)
}

// VerifySession implements [API].
func (c *Client) VerifySession(ctx context.Context, token string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/verify-session", nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("verify-session request failed in transit")
		return false, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return false, nil
	default:
		return false, fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode)
	}
}
