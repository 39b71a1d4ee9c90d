package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/torosent/tickmeter/internal/config"
)

// RequestBuilder produces the request issued by each HTTP workload run.
// A builder is immutable and safe for concurrent use.
type RequestBuilder struct {
	method  string
	target  string
	headers http.Header
	body    payload
}

// NewRequestBuilder validates the target, method, headers and body of cfg.
func NewRequestBuilder(cfg *config.Config) (*RequestBuilder, error) {
	if cfg == nil {
		return nil, errors.New("httpclient: nil config")
	}
	target := strings.TrimSpace(cfg.TargetURL)
	if target == "" {
		return nil, errors.New("httpclient: target URL is required")
	}

	headers, err := headerSet(cfg.Headers)
	if err != nil {
		return nil, err
	}
	body, err := newPayload(cfg.Body, cfg.BodyFile)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodGet
	}
	return &RequestBuilder{method: method, target: target, headers: headers, body: body}, nil
}

func headerSet(in map[string]string) (http.Header, error) {
	h := make(http.Header, len(in))
	for name, value := range in {
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsAny(name, "\r\n") {
			return nil, fmt.Errorf("httpclient: invalid header name %q", name)
		}
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("httpclient: invalid value for header %s", http.CanonicalHeaderKey(name))
		}
		h.Set(name, value)
	}
	return h, nil
}

// Method returns the request method.
func (b *RequestBuilder) Method() string { return b.method }

// Target returns the request URL.
func (b *RequestBuilder) Target() string { return b.target }

// Build returns a new request bound to ctx. Each request gets its own header
// copy and a freshly opened body; GetBody re-opens it for redirects.
func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("httpclient: nil request builder")
	}
	if b.body.empty() {
		req, err := http.NewRequestWithContext(ctx, b.method, b.target, nil)
		if err != nil {
			return nil, err
		}
		req.Header = b.headers.Clone()
		return req, nil
	}

	body, size, err := b.body.open()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, b.method, b.target, body)
	if err != nil {
		_ = body.Close()
		return nil, err
	}
	req.Header = b.headers.Clone()
	req.ContentLength = size
	req.GetBody = func() (io.ReadCloser, error) {
		rc, _, err := b.body.open()
		return rc, err
	}
	return req, nil
}

// NewClient returns a client whose idle pool holds one connection per
// concurrent worker. timeout bounds a whole request; zero disables it.
func NewClient(timeout time.Duration, concurrency int) *http.Client {
	if timeout < 0 {
		timeout = 0
	}
	if concurrency < 1 {
		concurrency = 1
	}
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          concurrency * 2,
			MaxIdleConnsPerHost:   concurrency,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
	}
}
