package middleware

import (
	"net/http"
	"runtime/debug"

	"phonemarket-bot/pkg/apierror"

	"github.com/rs/zerolog/log"
)

// Recovery is a middleware that recovers from panics.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Str("component", "http").
					Str("request_id", GetRequestID(r.Context())).
					Interface("panic", err).
					Bytes("stack", debug.Stack()).
					Msg("handler panicked")

				writeError(w, apierror.InternalError("internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
