package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/tappio/backend/db"
	"github.com/tappio/backend/errors"
	"github.com/tappio/backend/internal"
	"go.vocdoni.io/dvote/log"
)

// oauthLoginHandler logs a user in with an OAuth provider authorization code.
// The client performs the provider consent flow and posts the resulting code
// here. The code is exchanged for an access token, the profile is fetched and
// the user account is created on the fly if it does not exist yet. Accounts
// provisioned this way are verified from the start, the provider already
// owns the email address.
func (a *API) oauthLoginHandler(w http.ResponseWriter, r *http.Request) {
	if a.oauthProvider == nil {
		errors.ErrOAuthServerFailed.With("social login is not configured").Write(w)
		return
	}
	req := &OAuthLoginRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	if req.Provider != a.oauthProvider.Name() {
		errors.ErrInvalidData.Withf("unsupported provider %q", req.Provider).Write(w)
		return
	}
	if req.Code == "" {
		errors.ErrInvalidData.With("authorization code is required").Write(w)
		return
	}
	// exchange the authorization code and fetch the profile
	session, err := a.oauthProvider.UnmarshalSession(`{}`)
	if err != nil {
		errors.ErrOAuthServerFailed.WithErr(err).Write(w)
		return
	}
	if _, err := session.Authorize(a.oauthProvider, url.Values{"code": {req.Code}}); err != nil {
		errors.ErrOAuthServerFailed.WithErr(err).Write(w)
		return
	}
	profile, err := a.oauthProvider.FetchUser(session)
	if err != nil {
		errors.ErrOAuthServerFailed.WithErr(err).Write(w)
		return
	}
	if profile.Email == "" {
		errors.ErrInvalidData.With("provider returned no email").Write(w)
		return
	}
	user, err := a.db.UserByEmail(profile.Email)
	if err != nil {
		if err != db.ErrNotFound {
			errors.ErrGenericInternalServerError.Write(w)
			return
		}
		// provision a new verified account from the provider profile
		firstName := profile.FirstName
		if firstName == "" {
			firstName = profile.Name
		}
		userID, err := a.db.SetUser(&db.User{
			Email:         profile.Email,
			FirstName:     firstName,
			LastName:      profile.LastName,
			Verified:      true,
			Role:          db.UserRoleDefault,
			OAuthProvider: req.Provider,
		})
		if err != nil {
			log.Warnw("could not provision oauth user", "error", err, "email", profile.Email)
			errors.ErrGenericInternalServerError.Write(w)
			return
		}
		user = &db.User{ID: userID, Email: profile.Email}
	} else if user.OAuthProvider == "" {
		// remember the provider on accounts that log in socially for the
		// first time
		user.OAuthProvider = req.Provider
		if _, err := a.db.SetUser(user); err != nil {
			log.Warnw("could not update oauth provider", "error", err, "email", user.Email)
		}
	}
	// a social login proves ownership of the email, verify pending accounts
	if !user.Verified && internal.ValidEmail(user.Email) {
		if err := a.db.VerifyUserAccount(user); err != nil {
			log.Warnw("could not verify oauth user", "error", err, "email", user.Email)
		}
	}
	res, err := a.buildLoginResponse(user.Email)
	if err != nil {
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	httpWriteJSON(w, res)
}
