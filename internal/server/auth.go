package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
)

const authTokenHeader = "X-Auth-Token"

// withAuth rejects any request missing or presenting the wrong
// X-Auth-Token header. Comparison is constant-time: the shared token is
// the store's only line of defense, so timing shouldn't leak how much of
// the token a guess got right.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(authTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.authToken)) != 1 {
			s.writeErrorReq(w, r, http.StatusUnauthorized, makeAPIError(
				http.StatusUnauthorized, kindInvalidToken, ErrCodeUnauthorized,
				fmt.Errorf("missing or invalid %s header", authTokenHeader)))
			return
		}
		next.ServeHTTP(w, r)
	})
}
