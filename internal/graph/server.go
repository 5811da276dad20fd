package graph

import (
	"net/http"

	"sickfits-be/internal/transport"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	gqltransport "github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/vektah/gqlparser/v2/ast"
)

const maxRequestBytes = 1 << 20

// NewServer serves POST /graphql for es. Introspection stays disabled.
func NewServer(es graphql.ExecutableSchema) http.Handler {
	srv := handler.New(es)
	srv.AddTransport(gqltransport.POST{})
	srv.SetQueryCache(lru.New[*ast.QueryDocument](1000))
	srv.SetErrorPresenter(presentError)
	srv.SetRecoverFunc(recoverResolver)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

		// Resolvers reach the response writer through the context to set cookies.
		srv.ServeHTTP(w, r.WithContext(transport.WithHTTP(r.Context(), r, w)))
	})
}
