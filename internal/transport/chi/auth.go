package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"

	logpkg "github.com/kailas-cloud/omnisearch/internal/logger"
)

const bearerScheme = "bearer"

// AdminAuth guards the admin routes with static API keys sent as
// "Authorization: Bearer <key>". With no non-empty keys configured the
// guard is off.
func AdminAuth(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r.Header.Get("Authorization"))
			if msg == "" && !knownKey(keys, []byte(token)) {
				msg = "invalid api key"
			}
			if msg != "" {
				logpkg.FromContextOr(r.Context(), zap.NewNop()).Info("Admin request rejected",
					zap.String("path", r.URL.Path), zap.String("reason", msg))
				writeError(w, http.StatusUnauthorized, codeUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the token from an Authorization header value. The
// scheme is case-insensitive. A non-empty msg describes why the header is unusable.
func bearerToken(header string) (token, msg string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", "authorization header must use Bearer scheme"
	}
	return strings.TrimSpace(token), ""
}

// knownKey compares against every key so timing does not reveal which one matched.
func knownKey(keys [][]byte, token []byte) bool {
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, token)
	}
	return found == 1
}
