package api

import (
	"encoding/json"
	"net/http"

	"github.com/tappio/backend/db"
	"github.com/tappio/backend/errors"
	"github.com/tappio/backend/internal"
)

// refreshTokenHandler issues a fresh JWT token for the authenticated user.
func (a *API) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	res, err := a.buildLoginResponse(user.Email)
	if err != nil {
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	httpWriteJSON(w, res)
}

// authLoginHandler authenticates a user with email and password and returns
// a JWT token.
func (a *API) authLoginHandler(w http.ResponseWriter, r *http.Request) {
	loginInfo := &LoginRequest{}
	if err := json.NewDecoder(r.Body).Decode(loginInfo); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	user, err := a.db.UserByEmail(loginInfo.Email)
	if err != nil {
		if err == db.ErrNotFound {
			errors.ErrUnauthorized.Write(w)
			return
		}
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	// accounts provisioned through an OAuth provider have no password
	if user.Password == "" && user.OAuthProvider != "" {
		errors.ErrOAuthAccountMismatch.Write(w)
		return
	}
	// check the password
	if pass := internal.HexHashPassword(passwordSalt, loginInfo.Password); pass != user.Password {
		errors.ErrUnauthorized.Write(w)
		return
	}
	// check if the user is verified
	if !user.Verified {
		errors.ErrUserNoVerified.Write(w)
		return
	}
	res, err := a.buildLoginResponse(user.Email)
	if err != nil {
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	httpWriteJSON(w, res)
}
