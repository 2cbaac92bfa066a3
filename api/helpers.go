package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/tappio/backend/db"
	"github.com/tappio/backend/internal"
	"github.com/tappio/backend/notifications"
	"github.com/tappio/backend/notifications/mailtemplates"
	"go.vocdoni.io/dvote/log"
)

// buildLoginResponse creates a JWT token for the given user identifier.
// The token is signed with the API secret, following the JWT specification.
// The token is valid for the period specified on jwtExpiration constant.
func (a *API) buildLoginResponse(id string) (*LoginResponse, error) {
	j := jwt.New()
	if err := j.Set("userId", id); err != nil {
		return nil, err
	}
	if err := j.Set(jwt.ExpirationKey, time.Now().Add(jwtExpiration).UnixNano()); err != nil {
		return nil, err
	}
	lr := LoginResponse{}
	lr.Expirity = time.Now().Add(jwtExpiration)
	jmap, err := j.AsMap(context.Background())
	if err != nil {
		return nil, err
	}
	_, lr.Token, _ = a.auth.Encode(jmap)
	return &lr, nil
}

// sendUserCode generates a verification code for the user, stores it hashed
// in the database and sends it via email or SMS. The code type selects the
// mail template, either account verification or password reset. If neither
// the mail service nor the SMS service are available, the code is still
// stored to keep the verification flow working in test deployments.
func (a *API) sendUserCode(ctx context.Context, user *db.User, codeType db.CodeType) error {
	var code string
	if a.mail != nil || a.sms != nil {
		code = internal.RandomHex(VerificationCodeLength)
	}
	hashCode := internal.HashVerificationCode(user.Email, code)
	expiration := time.Now().Add(VerificationCodeExpiration)
	if err := a.db.SetVerificationCode(&db.User{ID: user.ID}, hashCode, codeType, expiration); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()
	if a.mail != nil {
		template := mailtemplates.VerifyAccountNotification
		if codeType == db.CodeTypePasswordReset {
			template = mailtemplates.PasswordResetNotification
		}
		link := fmt.Sprintf("%s%s?email=%s&code=%s", a.webAppURL, template.WebAppURI,
			url.QueryEscape(user.Email), url.QueryEscape(code))
		notification, err := template.ExecTemplate(struct {
			Code string
			Link string
		}{code, link})
		if err != nil {
			return err
		}
		notification.ToName = fmt.Sprintf("%s %s", user.FirstName, user.LastName)
		notification.ToAddress = user.Email
		return a.mail.SendNotification(ctx, notification)
	}
	if a.sms != nil {
		return a.sms.SendNotification(ctx, &notifications.Notification{
			ToNumber:  user.Phone,
			PlainBody: "Your Tappio verification code is: " + code,
		})
	}
	return nil
}

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}
