package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"
)

// withAuth enforces the shared gateway token when one is configured. The
// token travels as a bearer header, or as a query parameter for WebSocket
// clients that cannot set headers.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.cfg.Auth.Token
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if presented == r.Header.Get("Authorization") {
			presented = r.URL.Query().Get("token")
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			s.log.Warn().Str("remote", r.RemoteAddr).Str("path", r.URL.Path).Msg("rejected unauthorized request")
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
