package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/tappio/backend/db"
	"github.com/tappio/backend/errors"
	"github.com/tappio/backend/internal"
	"go.vocdoni.io/dvote/log"
)

// registerHandler handles the register request. It creates a new user in the
// database and sends the verification code to the provided email address.
func (a *API) registerHandler(w http.ResponseWriter, r *http.Request) {
	userInfo := &UserInfo{}
	if err := json.NewDecoder(r.Body).Decode(userInfo); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	if !internal.ValidEmail(userInfo.Email) {
		errors.ErrEmailMalformed.Write(w)
		return
	}
	if len(userInfo.Password) < 8 {
		errors.ErrPasswordTooShort.Write(w)
		return
	}
	userID, err := a.db.SetUser(&db.User{
		Email:     userInfo.Email,
		FirstName: userInfo.FirstName,
		LastName:  userInfo.LastName,
		Phone:     userInfo.Phone,
		Password:  internal.HexHashPassword(passwordSalt, userInfo.Password),
		Role:      db.UserRoleDefault,
	})
	if err != nil {
		if err == db.ErrAlreadyExists {
			errors.ErrDuplicateConflict.With("email already registered").Write(w)
			return
		}
		log.Warnw("could not create user", "error", err)
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	// compose the new user and send the verification code
	newUser := &db.User{
		ID:        userID,
		Email:     userInfo.Email,
		FirstName: userInfo.FirstName,
		LastName:  userInfo.LastName,
		Phone:     userInfo.Phone,
	}
	if err := a.sendUserCode(r.Context(), newUser, db.CodeTypeVerifyAccount); err != nil {
		log.Warnw("could not send verification code", "error", err)
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	httpWriteOK(w)
}

// verifyUserAccountHandler handles the request to verify the user account. It
// requires the user email and the verification code to be provided. If the
// code matches and has not expired, the account is verified and a new token
// is generated and sent back to the user.
func (a *API) verifyUserAccountHandler(w http.ResponseWriter, r *http.Request) {
	verification := &UserVerification{}
	if err := json.NewDecoder(r.Body).Decode(verification); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	hashCode := internal.HashVerificationCode(verification.Email, verification.Code)
	user, err := a.db.UserByVerificationCode(hashCode, db.CodeTypeVerifyAccount)
	if err != nil {
		if err == db.ErrNotFound {
			errors.ErrUnauthorized.Write(w)
			return
		}
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	if user.Verified {
		errors.ErrUserAlreadyVerified.Write(w)
		return
	}
	// check the code has not expired
	code, err := a.db.UserVerificationCode(user, db.CodeTypeVerifyAccount)
	if err != nil {
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	if code.Expiration.Before(time.Now()) {
		errors.ErrVerificationCodeExpired.Write(w)
		return
	}
	if err := a.db.VerifyUserAccount(user); err != nil {
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	res, err := a.buildLoginResponse(user.Email)
	if err != nil {
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	httpWriteJSON(w, res)
}

// userVerificationCodeInfoHandler returns the expiration of the pending
// verification code of the user with the email provided as query parameter.
func (a *API) userVerificationCodeInfoHandler(w http.ResponseWriter, r *http.Request) {
	userEmail := r.URL.Query().Get("email")
	if userEmail == "" {
		errors.ErrMalformedURLParam.With("email is required").Write(w)
		return
	}
	user, err := a.db.UserByEmail(userEmail)
	if err != nil {
		if err == db.ErrNotFound {
			errors.ErrUserNotFound.Write(w)
			return
		}
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	if user.Verified {
		errors.ErrUserAlreadyVerified.Write(w)
		return
	}
	code, err := a.db.UserVerificationCode(user, db.CodeTypeVerifyAccount)
	if err != nil {
		if err == db.ErrNotFound {
			errors.ErrUserNotFound.With("no pending verification code").Write(w)
			return
		}
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	httpWriteJSON(w, UserVerificationCodeInfo{
		Email:      userEmail,
		Expiration: code.Expiration,
		Valid:      code.Expiration.After(time.Now()),
	})
}

// resendUserVerificationCodeHandler sends a new verification code to the user
// email. It refuses to do so while the previous code is still valid to avoid
// flooding the user mailbox.
func (a *API) resendUserVerificationCodeHandler(w http.ResponseWriter, r *http.Request) {
	verification := &UserVerification{}
	if err := json.NewDecoder(r.Body).Decode(verification); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	user, err := a.db.UserByEmail(verification.Email)
	if err != nil {
		if err == db.ErrNotFound {
			errors.ErrUserNotFound.Write(w)
			return
		}
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	if user.Verified {
		errors.ErrUserAlreadyVerified.Write(w)
		return
	}
	if code, err := a.db.UserVerificationCode(user, db.CodeTypeVerifyAccount); err == nil {
		if code.Expiration.After(time.Now()) {
			errors.ErrVerificationCodeValid.Write(w)
			return
		}
	}
	if err := a.sendUserCode(r.Context(), user, db.CodeTypeVerifyAccount); err != nil {
		log.Warnw("could not send verification code", "error", err)
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	httpWriteOK(w)
}

// userInfoHandler returns the information of the current authenticated user.
func (a *API) userInfoHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	httpWriteJSON(w, UserInfo{
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Phone:     user.Phone,
		Verified:  user.Verified,
		Role:      string(user.Role),
	})
}

// updateUserInfoHandler updates the profile of the current authenticated user.
// Empty fields are left untouched.
func (a *API) updateUserInfoHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	userInfo := &UserInfo{}
	if err := json.NewDecoder(r.Body).Decode(userInfo); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	updateUser := false
	if userInfo.Email != "" {
		if !internal.ValidEmail(userInfo.Email) {
			errors.ErrEmailMalformed.Write(w)
			return
		}
		user.Email = userInfo.Email
		updateUser = true
	}
	if userInfo.FirstName != "" {
		user.FirstName = userInfo.FirstName
		updateUser = true
	}
	if userInfo.LastName != "" {
		user.LastName = userInfo.LastName
		updateUser = true
	}
	if userInfo.Phone != "" {
		user.Phone = userInfo.Phone
		updateUser = true
	}
	if updateUser {
		if _, err := a.db.SetUser(user); err != nil {
			log.Warnw("could not update user", "error", err)
			errors.ErrGenericInternalServerError.Write(w)
			return
		}
	}
	// generate a new token with the new user email as the subject
	res, err := a.buildLoginResponse(user.Email)
	if err != nil {
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	httpWriteJSON(w, res)
}

// updateUserPasswordHandler updates the password of the current authenticated
// user. It requires the old password to be provided to compare it with the
// stored one before updating the password to the new one.
func (a *API) updateUserPasswordHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	userPasswords := &UserPasswordUpdate{}
	if err := json.NewDecoder(r.Body).Decode(userPasswords); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	if len(userPasswords.NewPassword) < 8 {
		errors.ErrPasswordTooShort.Write(w)
		return
	}
	// compare the old password with the stored one
	if internal.HexHashPassword(passwordSalt, userPasswords.OldPassword) != user.Password {
		errors.ErrUnauthorized.Withf("old password does not match").Write(w)
		return
	}
	user.Password = internal.HexHashPassword(passwordSalt, userPasswords.NewPassword)
	if _, err := a.db.SetUser(user); err != nil {
		log.Warnw("could not update user password", "error", err)
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	httpWriteOK(w)
}

// recoverUserPasswordHandler sends a password reset code to the user email.
func (a *API) recoverUserPasswordHandler(w http.ResponseWriter, r *http.Request) {
	userInfo := &LoginRequest{}
	if err := json.NewDecoder(r.Body).Decode(userInfo); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	user, err := a.db.UserByEmail(userInfo.Email)
	if err != nil {
		if err == db.ErrNotFound {
			errors.ErrUnauthorized.Write(w)
			return
		}
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	if !user.Verified {
		errors.ErrUnauthorized.With("user not verified").Write(w)
		return
	}
	if err := a.sendUserCode(r.Context(), user, db.CodeTypePasswordReset); err != nil {
		log.Warnw("could not send verification code", "error", err)
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	httpWriteOK(w)
}

// resetUserPasswordHandler resets the password of a user with the recovery
// code previously sent to its email.
func (a *API) resetUserPasswordHandler(w http.ResponseWriter, r *http.Request) {
	userPasswords := &UserPasswordReset{}
	if err := json.NewDecoder(r.Body).Decode(userPasswords); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	if len(userPasswords.NewPassword) < 8 {
		errors.ErrPasswordTooShort.Write(w)
		return
	}
	hashCode := internal.HashVerificationCode(userPasswords.Email, userPasswords.Code)
	user, err := a.db.UserByVerificationCode(hashCode, db.CodeTypePasswordReset)
	if err != nil {
		if err == db.ErrNotFound {
			errors.ErrUnauthorized.Write(w)
			return
		}
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	code, err := a.db.UserVerificationCode(user, db.CodeTypePasswordReset)
	if err != nil {
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	if code.Expiration.Before(time.Now()) {
		errors.ErrVerificationCodeExpired.Write(w)
		return
	}
	user.Password = internal.HexHashPassword(passwordSalt, userPasswords.NewPassword)
	if _, err := a.db.SetUser(user); err != nil {
		log.Warnw("could not update user password", "error", err)
		errors.ErrGenericInternalServerError.Write(w)
		return
	}
	httpWriteOK(w)
}
