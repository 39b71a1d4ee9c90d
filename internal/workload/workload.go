// Package workload provides the units of work the CLI instruments: an HTTP
// request and an external command. Each writes a few self-reported metrics
// into the run's record.
package workload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/exec"
	"strings"

	"github.com/torosent/tickmeter/internal/httpclient"
	"github.com/torosent/tickmeter/internal/instrument"
	"github.com/torosent/tickmeter/internal/record"
	"github.com/torosent/tickmeter/internal/runner"
	"github.com/torosent/tickmeter/internal/tracing"
)

// Record keys written by the workloads.
const (
	StatusCodeKey = "status_code"
	BytesKey      = "bytes"
	ExitCodeKey   = "exit_code"
)

// errorBodyLimit bounds how much of a failing response is kept in the error.
const errorBodyLimit = 512

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPOption configures an HTTP workload.
type HTTPOption func(*httpWorkload)

// WithTracePropagation injects W3C trace headers into every request.
func WithTracePropagation() HTTPOption {
	return func(w *httpWorkload) { w.propagate = true }
}

type httpWorkload struct {
	client    Doer
	builder   *httpclient.RequestBuilder
	propagate bool
}

// HTTP issues the request built by builder and reports status_code and
// bytes. Statuses >= 400 fail the run with a *runner.HTTPError.
func HTTP(client Doer, builder *httpclient.RequestBuilder, opts ...HTTPOption) instrument.Workload {
	w := &httpWorkload{client: client, builder: builder}
	if w.client == nil {
		w.client = http.DefaultClient
	}
	for _, opt := range opts {
		opt(w)
	}
	return w.do
}

func (w *httpWorkload) do(ctx context.Context, rec record.Record) error {
	if w.builder == nil {
		return errors.New("workload: nil request builder")
	}
	req, err := w.builder.Build(ctx)
	if err != nil {
		return err
	}
	if w.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	rec[StatusCodeKey] = resp.StatusCode

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		n, _ := io.Copy(io.Discard, resp.Body)
		rec[BytesKey] = int64(len(snippet)) + n
		return &runner.HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	n, err := io.Copy(io.Discard, resp.Body)
	rec[BytesKey] = n
	return err
}

// Command runs name with args once per run and reports exit_code. A non-zero
// exit fails the run with the *exec.ExitError.
func Command(name string, args ...string) instrument.Workload {
	argv := append([]string(nil), args...)
	return func(ctx context.Context, rec record.Record) error {
		if name == "" {
			return errors.New("workload: empty command")
		}
		cmd := exec.CommandContext(ctx, name, argv...)
		err := cmd.Run()

		var exitErr *exec.ExitError
		switch {
		case err == nil:
			rec[ExitCodeKey] = 0
		case errors.As(err, &exitErr):
			rec[ExitCodeKey] = exitErr.ExitCode()
		}
		return err
	}
}

// Describe returns a short label for a workload, used to name run spans.
func Describe(method, target string, command []string) string {
	if len(command) > 0 {
		return strings.Join(command, " ")
	}
	return strings.TrimSpace(method + " " + target)
}
