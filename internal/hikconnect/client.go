package hikconnect

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 30 * time.Second

	devicesURI = "/v1/devices"
)

// Client talks to the HikConnect OpenAPI for a single account.
type Client struct {
	http     *resty.Client
	signer   *Signer
	baseURL  string
	limiter  *rate.Limiter
	fallback FallbackMode
	logger   *slog.Logger
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

// WithLimiter paces outbound requests. Share one limiter across clients to
// cap the process-wide request rate.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func WithFallback(mode FallbackMode) Option {
	return func(c *Client) { c.fallback = mode }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.signer.Now = now }
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.SetTransport(rt) }
}

func NewClient(creds Credentials, opts ...Option) *Client {
	baseURL := strings.TrimRight(creds.BaseURL, "/")
	if baseURL == "" {
		baseURL = ResolveBaseURL(creds.Region)
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(DefaultTimeout).
			SetRetryCount(0),
		signer:   &Signer{AccessKey: creds.AccessKey, SecretKey: creds.SecretKey},
		baseURL:  baseURL,
		fallback: FallbackMock,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "hikconnect", "base_url", baseURL)
	return c
}

// NewFactory returns a Factory that applies opts to every client it builds.
func NewFactory(opts ...Option) Factory {
	return func(creds Credentials) API {
		return NewClient(creds, opts...)
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// ListDevices fetches the account's devices. Vendor failures are not
// returned: the result is a fallback list marked as such. Only context
// cancellation is reported as an error.
func (c *Client) ListDevices(ctx context.Context) (*DeviceList, error) {
	list, err := c.ListDevicesStrict(ctx)
	if err == nil {
		return list, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	c.logger.Warn("device listing failed, serving fallback list", "error", err, "fallback", string(c.fallback))
	return fallbackList(c.fallback, err.Error()), nil
}

// ListDevicesStrict is ListDevices without the fallback.
func (c *Client) ListDevicesStrict(ctx context.Context) (*DeviceList, error) {
	var list DeviceList
	if err := c.get(ctx, devicesURI, nil, &list); err != nil {
		return nil, err
	}
	if list.Devices == nil {
		list.Devices = []Device{}
	}
	return &list, nil
}

func (c *Client) GetDeviceDetail(ctx context.Context, serial string) (*Device, error) {
	var d Device
	if err := c.get(ctx, devicesURI+"/"+url.PathEscape(serial), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) GetStreamURLs(ctx context.Context, serial string, channel int) (*StreamURLs, error) {
	uri := fmt.Sprintf("%s/%s/channels/%d/stream", devicesURI, url.PathEscape(serial), channel)
	var s StreamURLs
	if err := c.get(ctx, uri, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) get(ctx context.Context, uri string, params map[string]string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeaders(c.signer.Headers(http.MethodGet, uri, params)).
		SetResult(out).
		ForceContentType("application/json")
	if len(params) > 0 {
		req.SetQueryParams(params)
	}

	c.logger.Debug("vendor request", "method", http.MethodGet, "uri", uri)
	resp, err := req.Get(uri)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrVendorAPI, uri, err)
	}
	if resp.IsError() {
		return &APIError{
			Method:     http.MethodGet,
			URI:        uri,
			StatusCode: resp.StatusCode(),
			Body:       truncate(resp.String(), 512),
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
