package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// newUpstreamProxy builds the reverse proxy that carries admitted protocol
// requests to the external authorization engine. Upstream failures answer a
// bare 502; engine internals never leak to the caller.
func newUpstreamProxy(upstream string, logger zerolog.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, err
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("upstream proxy error")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"upstream_unavailable"}`))
	}
	return proxy, nil
}

func (s *Server) proxyUpstream(c *gin.Context) {
	s.proxy.ServeHTTP(c.Writer, c.Request)
}
