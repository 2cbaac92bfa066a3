package api

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/tappio/backend/db"
	"github.com/tappio/backend/errors"
)

// userMetadataKey is the context key under which the authenticated user is
// stored by the authenticator middleware.
type userMetadataKey struct{}

// userFromContext retrieves the authenticated user from the request context.
func userFromContext(ctx context.Context) (*db.User, bool) {
	user, ok := ctx.Value(userMetadataKey{}).(db.User)
	if !ok {
		return nil, false
	}
	return &user, true
}

// authenticator is a middleware that authenticates the user from the JWT
// token. It decodes the user identifier (its email) from the token, gets the
// user information from the database and adds it to the request context for
// the next handler.
func (a *API) authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			errors.ErrUnauthorized.Write(w)
			return
		}
		if token == nil || jwt.Validate(token, jwt.WithRequiredClaim("userId")) != nil {
			errors.ErrUnauthorized.Withf("userId claim not found in JWT token").Write(w)
			return
		}
		userEmail, ok := claims["userId"].(string)
		if !ok {
			errors.ErrUnauthorized.Withf("invalid userId claim in JWT token").Write(w)
			return
		}
		user, err := a.db.UserByEmail(userEmail)
		if err != nil {
			if err == db.ErrNotFound {
				errors.ErrUnauthorized.Withf("user not found").Write(w)
				return
			}
			errors.ErrGenericInternalServerError.Withf("could not retrieve user from database: %v", err).Write(w)
			return
		}
		// check if the user is already verified
		if !user.Verified {
			errors.ErrUserNoVerified.With("user account not verified").Write(w)
			return
		}
		ctx := context.WithValue(r.Context(), userMetadataKey{}, *user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminOnly is a middleware that restricts the route to admin users. It must
// run after the authenticator middleware.
func (a *API) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := userFromContext(r.Context())
		if !ok {
			errors.ErrUnauthorized.Write(w)
			return
		}
		if user.Role != db.AdminRole {
			errors.ErrUnauthorized.With("admin role required").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
