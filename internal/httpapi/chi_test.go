package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// withURLParam stands in for chi's router dispatch in handler tests
// that read a path parameter via chi.URLParam.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
