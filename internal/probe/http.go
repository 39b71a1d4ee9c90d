package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/torosent/tickmeter/internal/sampler"
)

// maxBody caps how much of a probe response is read.
const maxBody = 4 << 20

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPJSON fetches url with GET on every tick and samples numeric fields of
// the JSON response. fields maps a field name to a gjson path; when empty,
// the whole document is flattened.
func HTTPJSON(client Doer, url string, fields map[string]string) sampler.Probe {
	if client == nil {
		client = http.DefaultClient
	}
	paths := make(map[string]string, len(fields))
	for k, v := range fields {
		paths[k] = v
	}

	return func(ctx context.Context) (sampler.Value, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return sampler.Value{}, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return sampler.Value{}, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return sampler.Value{}, fmt.Errorf("probe: read response: %w", err)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return sampler.Value{}, fmt.Errorf("probe: %s returned %d", url, resp.StatusCode)
		}
		return parseValue(body, paths)
	}
}
