package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/secmon-lab/musubi/pkg/domain/model"
	"github.com/secmon-lab/musubi/pkg/domain/types"
)

// IdentityHeader carries the authenticated user ID set by the fronting auth proxy
const IdentityHeader = "X-Musubi-User"

type identityCtxKey struct{}

func contextWithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// identityFrom returns the request identity, absent when none was attached
func identityFrom(ctx context.Context) model.Identity {
	if identity, ok := ctx.Value(identityCtxKey{}).(model.Identity); ok {
		return identity
	}
	return model.AbsentIdentity()
}

// identityMiddleware resolves the caller identity from IdentityHeader. When
// noAuthUser is set, requests without the header act as that user.
func identityMiddleware(noAuthUser types.UserID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := model.AbsentIdentity()

			if v := strings.TrimSpace(r.Header.Get(IdentityHeader)); v != "" {
				identity = model.PresentIdentity(types.UserID(v))
			} else if noAuthUser != "" {
				identity = model.PresentIdentity(noAuthUser)
			}

			next.ServeHTTP(w, r.WithContext(contextWithIdentity(r.Context(), identity)))
		})
	}
}

// requireUser writes 401 and returns false when the request has no usable identity
func requireUser(w http.ResponseWriter, r *http.Request) (types.UserID, bool) {
	identity := identityFrom(r.Context())
	if !identity.Ready() {
		writeError(r.Context(), w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return identity.UserID, true
}
