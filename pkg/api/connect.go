package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

func unaryHandler[Req, Res any](procedure string, fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error), opts []connect.HandlerOption) *connect.Handler {
	return connect.NewUnaryHandler(procedure, fn, append([]connect.HandlerOption{Codec()}, opts...)...)
}

func unaryClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](httpClient, strings.TrimRight(baseURL, "/")+procedure, append([]connect.ClientOption{Codec()}, opts...)...)
}

// route dispatches on the full procedure path.
func route(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}
