package httpapi

import (
	"context"
	"net/http"

	"github.com/dsirine/StretchShop/internal/domain"
)

type contextKey string

const callerKey contextKey = "caller"

// HeaderAuthMiddleware trusts the identity headers the edge proxy sets after
// session validation (replace with real JWT validation when exposed directly).
func HeaderAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := domain.Caller{
			UserID: r.Header.Get("X-User-ID"),
			Admin:  r.Header.Get("X-User-Admin") == "true",
		}
		ctx := context.WithValue(r.Context(), callerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFromContext(ctx context.Context) domain.Caller {
	if caller, ok := ctx.Value(callerKey).(domain.Caller); ok {
		return caller
	}
	return domain.Caller{}
}
