package domain

import (
	"context"
	"encoding/json"
	"strings"
)

// Descriptor names one upstream endpoint declaratively: HTTP method,
// URI template and an optional default JSON body. Templates use
// ":name" placeholders resolved by Expand. The cache core never owns
// endpoint shapes; callers hand descriptors in.
type Descriptor struct {
	Method string
	URI    string
	Body   map[string]any
}

// Expand substitutes ":name" placeholders in the URI template.
func (d Descriptor) Expand(vars map[string]string) string {
	uri := d.URI
	for name, val := range vars {
		uri = strings.ReplaceAll(uri, ":"+name, val)
	}
	return uri
}

// RequestOptions carries the optional parts of an upstream request.
// Limit/Page of zero and Images=false leave the corresponding query
// parameters off entirely.
type RequestOptions struct {
	Query  map[string]string
	Body   any
	Limit  int
	Page   int
	Images bool
}

// UpstreamClient is the port to the rate-limited upstream REST API.
// URI may be absolute (passed through) or relative to the configured
// API host. Non-2xx responses, transport failures and unparseable
// bodies are reported as a *StatusError; a 2xx response yields the
// raw JSON body.
type UpstreamClient interface {
	Request(ctx context.Context, method, uri string, opts *RequestOptions) (json.RawMessage, error)
}
