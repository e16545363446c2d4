package omeka

import (
	"context"
	"net/url"

	"github.com/goliatone/go-omeka-mapper/transport"
)

// Transport is the HTTP capability the mapping layer needs.
// *transport.Client implements it.
type Transport interface {
	URL(path string, query url.Values) string
	Request(ctx context.Context, method, target string, body []byte) (*transport.Response, error)
}

var _ Transport = (*transport.Client)(nil)

type chainKey struct{}

// withinChain marks ctx as belonging to a nested resolution. Lookups that
// find an in-flight item return it without waiting for its fill.
func withinChain(ctx context.Context) context.Context {
	if inChain(ctx) {
		return ctx
	}
	return context.WithValue(ctx, chainKey{}, true)
}

func inChain(ctx context.Context) bool {
	nested, _ := ctx.Value(chainKey{}).(bool)
	return nested
}
