package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKey authenticates one client application.
type APIKey struct {
	Key string
	// Trusted keys may assert the end user via the caller headers. Requests
	// with any other key always run as the guest caller.
	Trusted bool
}

// Routes reachable without a key.
var openRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Auth checks Bearer keys. With no keys configured every request passes and
// caller headers are taken as sent.
func Auth(keys []APIKey) func(http.Handler) http.Handler {
	valid := make([]APIKey, 0, len(keys))
	for _, k := range keys {
		if k.Key != "" {
			valid = append(valid, k)
		}
	}

	return func(next http.Handler) http.Handler {
		if len(valid) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if openRoutes[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, ErrorResponseCodeUnauthorized,
					"expected Authorization: Bearer <key>")
				return
			}

			key, found := matchKey(valid, token)
			if !found {
				writeError(w, http.StatusUnauthorized, ErrorResponseCodeUnauthorized, "invalid api key")
				return
			}
			if !key.Trusted {
				r.Header.Del(HeaderCallerUser)
				r.Header.Del(HeaderCallerRoles)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// matchKey compares token against every key so timing does not depend on
// which key matched.
func matchKey(keys []APIKey, token string) (APIKey, bool) {
	var (
		match APIKey
		found bool
	)
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(token)) == 1 {
			match, found = k, true
		}
	}
	return match, found
}
