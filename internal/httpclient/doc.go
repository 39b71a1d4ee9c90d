// Package httpclient builds the HTTP client and requests used by the HTTP
// workload and the HTTP probe.
//
// Use [NewRequestBuilder] to turn the configured target, method, headers and
// body into a request factory:
//
//	builder, err := httpclient.NewRequestBuilder(cfg)
//	if err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx)
//
// Bodies come from an inline string or a file and are re-opened for every
// request, so retries and repeated runs each send the whole payload.
//
// [NewClient] sizes its idle pool to the worker count and applies the overall
// timeout:
//
//	client := httpclient.NewClient(30*time.Second, cfg.Concurrency)
package httpclient
