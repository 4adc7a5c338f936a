// Package homebroker implements the broker session collaborator: login
// once per process, per-symbol intraday bar fetches, and a bounded
// live-subscription mode over websocket.
package homebroker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/sirupsen/logrus"
)

const loginPath = "/auth/account/login"

// Credentials identify one account at the broker.
type Credentials struct {
	BrokerID int    `json:"broker_id"`
	DNI      string `json:"dni"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// AuthError is a rejected login. It is fatal at process start: the loop
// cannot proceed without a session.
type AuthError struct {
	StatusCode int
	Reason     string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("broker login rejected (%d): %s", e.StatusCode, e.Reason)
}

// Client dials the broker endpoint. A Client only logs in; all market
// data calls go through the Session it returns.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *logrus.Entry
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a broker client for the given endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		logger: logrus.NewEntry(logrus.New()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Reason      string `json:"reason"`
}

// Login authenticates the credentials and returns a live Session. Any
// rejection comes back as *AuthError.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return nil, fmt.Errorf("marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+loginPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do login request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read login response: %w", err)
	}

	var parsed loginResponse
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return nil, fmt.Errorf("decode login response: %w", err)
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || parsed.AccessToken == "" {
		reason := parsed.Reason
		if reason == "" {
			reason = string(respBody)
		}
		return nil, &AuthError{StatusCode: resp.StatusCode, Reason: reason}
	}

	c.logger.WithField("broker_id", creds.BrokerID).Info("broker session established")
	return &Session{
		client: c,
		token:  parsed.AccessToken,
	}, nil
}
