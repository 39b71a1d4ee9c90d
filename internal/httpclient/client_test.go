package httpclient_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/torosent/tickmeter/internal/config"
	"github.com/torosent/tickmeter/internal/httpclient"
)

func builderFor(t *testing.T, mutate func(*config.Config)) *httpclient.RequestBuilder {
	t.Helper()
	cfg := config.Defaults()
	cfg.TargetURL = "http://example.com/api"
	if mutate != nil {
		mutate(cfg)
	}
	b, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		t.Fatalf("NewRequestBuilder() error = %v", err)
	}
	return b
}

func TestBuildMethod(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", http.MethodGet},
		{"  ", http.MethodGet},
		{"post", http.MethodPost},
		{" Put ", http.MethodPut},
		{"DELETE", http.MethodDelete},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.in, func(t *testing.T) {
			b := builderFor(t, func(c *config.Config) { c.Method = tt.in })
			req, err := b.Build(context.Background())
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if req.Method != tt.want || b.Method() != tt.want {
				t.Errorf("method = %s (builder %s), want %s", req.Method, b.Method(), tt.want)
			}
			if req.URL.String() != "http://example.com/api" || b.Target() != "http://example.com/api" {
				t.Errorf("target = %s", req.URL)
			}
		})
	}
}

func TestBuildHeaders(t *testing.T) {
	b := builderFor(t, func(c *config.Config) {
		c.Headers = map[string]string{"content-type": "application/json", " x-run ": "", "Accept": "*/*"}
	})

	first, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := first.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if _, ok := first.Header["X-Run"]; !ok {
		t.Errorf("empty X-Run header dropped: %v", first.Header)
	}

	// Tracing injects into a request's headers; the next run must not see it.
	first.Header.Set("Traceparent", "00-abc")
	second, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if second.Header.Get("Traceparent") != "" {
		t.Error("headers leaked between requests")
	}
}

func TestBuildWithoutBody(t *testing.T) {
	req, err := builderFor(t, nil).Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if req.Body != nil || req.ContentLength != 0 {
		t.Errorf("Body = %v, ContentLength = %d, want none", req.Body, req.ContentLength)
	}
}

func TestNewRequestBuilderRejects(t *testing.T) {
	dir := t.TempDir()
	bodyFile := filepath.Join(dir, "body.json")
	if err := os.WriteFile(bodyFile, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"no target", func(c *config.Config) { c.TargetURL = " " }},
		{"blank header name", func(c *config.Config) { c.Headers = map[string]string{"": "x"} }},
		{"newline in header name", func(c *config.Config) { c.Headers = map[string]string{"X-A\nB": "x"} }},
		{"newline in header value", func(c *config.Config) { c.Headers = map[string]string{"X-A": "1\r\n2"} }},
		{"body and body file", func(c *config.Config) { c.Body, c.BodyFile = "x", bodyFile }},
		{"missing body file", func(c *config.Config) { c.BodyFile = filepath.Join(dir, "nope") }},
		{"body file is a directory", func(c *config.Config) { c.BodyFile = dir }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.TargetURL = "http://example.com"
			tt.mutate(cfg)
			if _, err := httpclient.NewRequestBuilder(cfg); err == nil {
				t.Fatal("NewRequestBuilder() error = nil")
			}
		})
	}

	if _, err := httpclient.NewRequestBuilder(nil); err == nil {
		t.Fatal("NewRequestBuilder(nil) error = nil")
	}
}

func TestNewClientPoolSizing(t *testing.T) {
	for _, tt := range []struct{ concurrency, want int }{{0, 1}, {1, 1}, {8, 8}} {
		c := httpclient.NewClient(-time.Second, tt.concurrency)
		if c.Timeout != 0 {
			t.Errorf("Timeout = %s, want 0 for a negative timeout", c.Timeout)
		}
		tr, ok := c.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("Transport = %T", c.Transport)
		}
		if tr.MaxIdleConnsPerHost != tt.want {
			t.Errorf("concurrency %d: MaxIdleConnsPerHost = %d, want %d", tt.concurrency, tr.MaxIdleConnsPerHost, tt.want)
		}
	}
}

func TestNewClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := httpclient.NewClient(20*time.Millisecond, 1)
	_, err := c.Get(srv.URL)
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("Get() error = %v, want timeout", err)
	}
}
