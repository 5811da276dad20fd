// Package transport gives GraphQL resolvers access to the HTTP exchange that
// carried the operation, mainly so auth mutations can set the session cookie.
package transport

import (
	"context"
	"net/http"
)

type exchangeKey struct{}

type exchange struct {
	req *http.Request
	w   http.ResponseWriter
}

func WithHTTP(ctx context.Context, r *http.Request, w http.ResponseWriter) context.Context {
	return context.WithValue(ctx, exchangeKey{}, exchange{req: r, w: w})
}

func from(ctx context.Context) (exchange, bool) {
	ex, ok := ctx.Value(exchangeKey{}).(exchange)
	return ex, ok
}

// GetRequest is nil outside an HTTP request, e.g. in background jobs.
func GetRequest(ctx context.Context) *http.Request {
	ex, _ := from(ctx)
	return ex.req
}

func GetResponseWriter(ctx context.Context) http.ResponseWriter {
	ex, ok := from(ctx)
	if !ok {
		return nil
	}
	return ex.w
}
