// Package odoo talks to an Odoo instance through its JSON-2 API
// (POST /json/2/<model>/<method>), authenticated with a user API key sent
// as bearer token.
package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/ots/internal/apperr"
)

const (
	// DefaultKeyField is the analytic line field holding the push key.
	DefaultKeyField = "x_ots_key"
	DefaultTimeout  = 30 * time.Second

	maxAttempts    = 3
	defaultBackoff = 500 * time.Millisecond
)

// Client is an authenticated JSON-2 client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	database   string
	uid        int64
	keyField   string
	backoff    time.Duration
	logger     *slog.Logger
}

type options struct {
	timeout   time.Duration
	keyField  string
	backoff   time.Duration
	logger    *slog.Logger
	transport http.RoundTripper
}

// Option configures New.
type Option func(*options)

// WithTimeout bounds every HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithKeyField names the custom field that stores push keys.
func WithKeyField(field string) Option {
	return func(o *options) {
		if field != "" {
			o.keyField = field
		}
	}
}

// WithBackoff sets the delay before the first retry; it doubles after that.
func WithBackoff(d time.Duration) Option {
	return func(o *options) { o.backoff = d }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTransport replaces the base HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// New returns a client for the backend recorded in sess.
func New(sess Session, opts ...Option) *Client {
	o := options{
		timeout:  DefaultTimeout,
		keyField: DefaultKeyField,
		backoff:  defaultBackoff,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	base := &http.Client{Timeout: o.timeout, Transport: o.transport}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: sess.Token, TokenType: "Bearer"})
	return &Client{
		httpClient: oauth2.NewClient(ctx, ts),
		baseURL:    strings.TrimRight(sess.URL, "/"),
		database:   sess.Database,
		uid:        sess.UID,
		keyField:   o.keyField,
		backoff:    o.backoff,
		logger:     o.logger,
	}
}

// errorResponse is the body Odoo sends with a non-2xx status.
type errorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// call invokes model.method with params as named arguments and decodes the
// result into out. Network failures and 5xx responses are retried.
func (c *Client) call(ctx context.Context, model, method string, params any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("odoo: encoding %s/%s: %w", model, method, err)
	}
	endpoint := fmt.Sprintf("%s/json/2/%s/%s", c.baseURL, model, method)

	delay := c.backoff
	for attempt := 1; ; attempt++ {
		err = c.do(ctx, endpoint, body, out)
		if err == nil || !errors.Is(err, apperr.ErrNetwork) || attempt == maxAttempts {
			return err
		}
		c.logger.Debug("odoo request failed, retrying",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return apperr.Errorf(apperr.ErrNetwork, "%v", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
}

func (c *Client) do(ctx context.Context, endpoint string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	if c.database != "" {
		req.Header.Set("X-Odoo-Database", c.database)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Errorf(apperr.ErrNetwork, "odoo request failed: %v", err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return apperr.Errorf(apperr.ErrNetwork, "reading response body: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperr.Errorf(apperr.ErrAuth, "odoo rejected the API key (HTTP %d), run 'ots login'", resp.StatusCode)
	case resp.StatusCode >= 500:
		return apperr.Errorf(apperr.ErrNetwork, "odoo returned HTTP %d: %s", resp.StatusCode, errorMessage(data))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("odoo returned HTTP %d: %s", resp.StatusCode, errorMessage(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding odoo response: %w", err)
	}
	return nil
}

func errorMessage(data []byte) string {
	var er errorResponse
	if err := json.Unmarshal(data, &er); err == nil && er.Message != "" {
		return er.Message
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

// many2one decodes Odoo's [id, "display name"] pairs, or false when unset.
type many2one struct {
	ID   int64
	Name string
}

func (m *many2one) UnmarshalJSON(b []byte) error {
	if s := string(b); s == "false" || s == "null" {
		*m = many2one{}
		return nil
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("many2one: %w", err)
	}
	if len(pair) > 0 {
		if err := json.Unmarshal(pair[0], &m.ID); err != nil {
			return fmt.Errorf("many2one id: %w", err)
		}
	}
	if len(pair) > 1 {
		if err := json.Unmarshal(pair[1], &m.Name); err != nil {
			return fmt.Errorf("many2one name: %w", err)
		}
	}
	return nil
}

// text decodes a char field, which Odoo sends as false when empty.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	if s := string(b); s == "false" || s == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = text(s)
	return nil
}
