package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bracketlab/draftsync/internal/api/apierr"
	"github.com/bracketlab/draftsync/internal/model"
)

type contextKey string

const ownerContextKey contextKey = "owner"

// OwnerHeader carries the opaque owner identity established by the host
// application's session layer. Authentication itself happens upstream;
// this middleware only requires that an identity is present.
const OwnerHeader = "X-Owner-Id"

// Identity creates middleware that extracts the owner identity and
// rejects requests without one.
func Identity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
			if owner == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			ctx := context.WithValue(r.Context(), ownerContextKey, model.OwnerID(owner))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOwner returns the owner identity from the request context
func GetOwner(ctx context.Context) model.OwnerID {
	owner, _ := ctx.Value(ownerContextKey).(model.OwnerID)
	return owner
}

// MustGetOwner returns the owner identity or panics
func MustGetOwner(ctx context.Context) model.OwnerID {
	owner := GetOwner(ctx)
	if owner == "" {
		panic("no owner in context - identity middleware not applied?")
	}
	return owner
}
