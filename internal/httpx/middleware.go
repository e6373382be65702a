package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/tuttiservices/wholesale-backend/internal/apperr"
	"github.com/tuttiservices/wholesale-backend/internal/auth"
	"github.com/tuttiservices/wholesale-backend/internal/orders"
	"github.com/tuttiservices/wholesale-backend/internal/users"
)

type ctxKey int

const userKey ctxKey = iota

// UserSource re-checks the token's user against storage on every
// request, so deactivated accounts lose access immediately.
type UserSource interface {
	ByID(ctx context.Context, id int64) (*users.User, error)
}

type Authenticator struct {
	Tokens *auth.TokenManager
	Users  UserSource
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, apperr.E(apperr.KindUnauthenticated, "missing bearer token"))
			return
		}

		claims, err := a.Tokens.Validate(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				msg = "token has expired"
			}
			writeError(w, apperr.E(apperr.KindUnauthenticated, "%s", msg))
			return
		}

		u, err := a.Users.ByID(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		if u == nil {
			writeError(w, apperr.E(apperr.KindUnauthenticated, "user not found"))
			return
		}
		if !u.IsActive {
			writeError(w, apperr.E(apperr.KindUnauthenticated, "account is deactivated"))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := UserFrom(r.Context()); u == nil || u.Role != users.RoleAdmin {
			writeError(w, apperr.E(apperr.KindForbidden, "admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserFrom(ctx context.Context) *users.User {
	u, _ := ctx.Value(userKey).(*users.User)
	return u
}

func IdentityFrom(ctx context.Context) orders.Identity {
	if u := UserFrom(ctx); u != nil {
		return orders.Identity{ID: u.ID, Role: u.Role}
	}
	return orders.Identity{}
}
