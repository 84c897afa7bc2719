package middleware

import (
	"log"
	"net/http"

	"github.com/indieinfra/plaza/config"
	"github.com/indieinfra/plaza/server/auth"
	"github.com/indieinfra/plaza/server/resp"
	"github.com/indieinfra/plaza/server/util"
)

// ValidateTokenMiddleware wraps a downstream handler. It requires a Bearer token in the
// Authorization header, verifies it, and stores the claims and a request logger carrying
// the subject in the request context.
func ValidateTokenMiddleware(cfg *config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl := util.WithRequest(log.Default(), r, "")

		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			resp.WriteUnauthorized(w, "An access token is required")
			return
		}

		claims, err := auth.VerifyAccessToken(&cfg.Auth, token)
		if err != nil {
			if cfg.Debug {
				rl.Infof("rejected access token: %v", err)
			}
			resp.WriteForbidden(w, "Token validation failed")
			return
		}

		ctx := util.ContextWithLogger(r.Context(), rl.WithUser(claims.Subject))
		next.ServeHTTP(w, r.WithContext(auth.AddToken(ctx, claims)))
	})
}
