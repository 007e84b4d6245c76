package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/report"
	"github.com/erasmus-without-paper/ewp-registry-service-sub003/pkg/logging"
)

// DefaultTimeout bounds one request.
const DefaultTimeout = 10 * time.Second

// DefaultMaxBodySize caps the response bodies read from targets.
const DefaultMaxBodySize = 16 << 20

// ErrBodyTooLarge is wrapped by the ConnectionError of a response body over
// the configured limit.
var ErrBodyTooLarge = errors.New("response body too large")

// Client sends prepared requests.
type Client interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Response is a fully read response.
type Response struct {
	Status int
	Header http.Header
	// Body is the raw body, before any content coding is removed.
	Body []byte
	// TLS is true when the response came over a TLS connection.
	TLS bool
	URL string
	// Raw is the underlying response with a closed body, kept for signature
	// verification.
	Raw *http.Response
}

// Snapshot records the response for a report step.
func (r *Response) Snapshot() report.HTTPExchange {
	return report.HTTPExchange{
		URL:     r.URL,
		Status:  r.Status,
		Headers: r.Header.Clone(),
		Body:    string(r.Body),
	}
}

// TimeoutError is returned when the target did not answer in time.
type TimeoutError struct {
	Method string
	URL    string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Timeout when retrieving %s response from url %s.", e.Method, e.URL)
}

// ConnectionError wraps any other transport failure.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return "Problems retrieving response from server: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// HTTPOptions configure an HTTPClient.
type HTTPOptions struct {
	Timeout            time.Duration
	UserAgent          string
	InsecureSkipVerify bool
	// MaxBodySize in bytes. Zero means DefaultMaxBodySize.
	MaxBodySize int64
}

// HTTPClient is the net/http implementation of Client. One *http.Client is
// kept per client certificate so that TLS sessions match the identity.
type HTTPClient struct {
	opts HTTPOptions

	mu      sync.Mutex
	clients map[*tls.Certificate]*http.Client
}

// NewHTTPClient creates a client. A zero timeout means DefaultTimeout.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	return &HTTPClient{opts: opts, clients: make(map[*tls.Certificate]*http.Client)}
}

func (c *HTTPClient) httpClient(cert *tls.Certificate) *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hc, ok := c.clients[cert]; ok {
		return hc
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.opts.InsecureSkipVerify, //nolint:gosec // opt-in for local deployments
	}
	if cert != nil {
		tlsConfig.Certificates = []tls.Certificate{*cert}
	}
	hc := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			TLSClientConfig:     tlsConfig,
			DisableCompression:  true,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: c.opts.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	c.clients[cert] = hc
	return hc
}

// Send implements Client. Redirects are returned, not followed.
func (c *HTTPClient) Send(ctx context.Context, req *Request) (*Response, error) {
	hreq, err := req.HTTPRequest(ctx)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	if c.opts.UserAgent != "" && hreq.Header.Get("User-Agent") == "" {
		hreq.Header.Set("User-Agent", c.opts.UserAgent)
	}

	logging.Debug("Transport", "%s %s", req.Method, req.URL)
	resp, err := c.httpClient(req.ClientCert).Do(hreq)
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Method: req.Method, URL: req.URL}
		}
		return nil, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	limit := c.opts.MaxBodySize
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		if isTimeout(err) {
			return nil, &TimeoutError{Method: req.Method, URL: req.URL}
		}
		return nil, &ConnectionError{Err: err}
	}
	if int64(len(body)) > limit {
		return nil, &ConnectionError{Err: fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)}
	}
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
		TLS:    resp.TLS != nil,
		URL:    req.URL,
		Raw:    resp,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
