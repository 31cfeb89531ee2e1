// Package unsplash is a small client for the Unsplash photo API.
package unsplash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/tabdeck/tabdeck/internal/metrics"
)

const (
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.unsplash.com"
	// DefaultHourlyLimit matches the demo application quota.
	DefaultHourlyLimit = 50

	// ClientTimeout is the total request timeout.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 15 * time.Second

	maxResponseBytes = 1 << 20
	breakerName      = "unsplash"
)

// Sentinel errors.
var (
	ErrMissingAccessKey = errors.New("unsplash access key is required")
	ErrRateLimited      = errors.New("unsplash hourly request budget exhausted")
	ErrBreakerOpen      = errors.New("unsplash circuit breaker open")
	// ErrUntrustedLocation is returned for download locations outside the API host.
	// The access key is never sent to them.
	ErrUntrustedLocation = errors.New("download location is not on the unsplash api host")
)

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unsplash: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("unsplash: HTTP %d: %s", e.StatusCode, e.Message)
}

// clientFault reports whether the provider rejected the request itself.
// These do not count against the circuit breaker.
func (e *APIError) clientFault() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// Config configures a Client.
type Config struct {
	AccessKey   string
	BaseURL     string
	HourlyLimit int

	// HTTPClient overrides the default client. Tests pass httptest clients.
	HTTPClient *http.Client
	Recorder   metrics.Recorder
	Logger     *slog.Logger
}

// Client calls the Unsplash API behind a circuit breaker and a request budget.
type Client struct {
	accessKey string
	baseURL   string
	apiHost   *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	metrics   metrics.Recorder
	logger    *slog.Logger
}

// NewHTTPClient creates an HTTP client with conservative timeouts.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// NewClient creates a Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.AccessKey) == "" {
		return nil, ErrMissingAccessKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HourlyLimit <= 0 {
		cfg.HourlyLimit = DefaultHourlyLimit
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = NewHTTPClient()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NewNoop()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	apiHost, err := url.Parse(cfg.BaseURL)
	if err != nil || apiHost.Host == "" || (apiHost.Scheme != "https" && apiHost.Scheme != "http") {
		return nil, fmt.Errorf("invalid unsplash base url %q", cfg.BaseURL)
	}

	c := &Client{
		accessKey: cfg.AccessKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiHost:   apiHost,
		http:      cfg.HTTPClient,
		limiter:   rate.NewLimiter(rate.Every(time.Hour/time.Duration(cfg.HourlyLimit)), cfg.HourlyLimit),
		metrics:   cfg.Recorder,
		logger:    cfg.Logger.With("component", "unsplash.client"),
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     time.Hour,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.clientFault()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				"from", from.String(),
				"to", to.String(),
			)
			c.metrics.SetCircuitBreakerState(name, int(to))
		},
	})

	return c, nil
}

// BreakerState returns the current circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// RandomPhoto fetches one random photo.
func (c *Client) RandomPhoto(ctx context.Context, params RandomPhotoParams) (*Photo, error) {
	q := url.Values{}
	if params.Query != "" {
		q.Set("query", params.Query)
	}
	if params.Orientation != "" {
		q.Set("orientation", params.Orientation)
	}
	q.Set("client_id", c.accessKey)

	endpoint := c.baseURL + "/photos/random?" + q.Encode()

	var photo Photo
	if err := c.do(ctx, endpoint, &photo); err != nil {
		return nil, fmt.Errorf("random photo: %w", err)
	}
	return &photo, nil
}

// TrackDownload reports a download of the photo at downloadLocation,
// as the API guidelines require when a photo is displayed.
func (c *Client) TrackDownload(ctx context.Context, downloadLocation string) error {
	if downloadLocation == "" {
		return errors.New("track download: empty download location")
	}
	if err := c.checkLocation(downloadLocation); err != nil {
		return fmt.Errorf("track download: %w", err)
	}
	if err := c.do(ctx, downloadLocation, nil); err != nil {
		return fmt.Errorf("track download: %w", err)
	}
	return nil
}

// checkLocation rejects locations that would carry the access key to a
// host other than the configured API.
func (c *Client) checkLocation(location string) error {
	u, err := url.Parse(location)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUntrustedLocation, err)
	}
	if u.User != nil || u.Scheme != c.apiHost.Scheme || !strings.EqualFold(u.Host, c.apiHost.Host) {
		return fmt.Errorf("%w: %s://%s", ErrUntrustedLocation, u.Scheme, u.Host)
	}
	return nil
}

// do performs an authenticated GET and decodes the body into out when non-nil.
func (c *Client) do(ctx context.Context, endpoint string, out any) error {
	if !c.limiter.Allow() {
		return ErrRateLimited
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.get(ctx, endpoint, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrBreakerOpen, err)
	}
	return err
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("User-Agent", "Tabdeck/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBytes)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(body)}
	}

	if out == nil {
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, body)
		return nil
	}

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readErrorMessage extracts {"errors":[...]} from an error response.
func readErrorMessage(r io.Reader) string {
	var payload struct {
		Errors []string `json:"errors"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return ""
	}
	return strings.Join(payload.Errors, "; ")
}
