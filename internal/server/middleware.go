package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// rateLimitByIP gates the search route on the caller's budget. Exhausted
// budgets are rejected immediately with Retry-After, never queued.
func (s *Server) rateLimitByIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := clientIP(r)
		if !s.callerRL.Consume(identity) {
			decision := s.callerRL.Check(identity)
			retryAfter := int(decision.RetryAfter.Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
				"request budget exhausted, retry after "+strconv.Itoa(retryAfter)+"s")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
