package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tappio/backend/db"
	"github.com/tappio/backend/errors"
	"github.com/tappio/backend/notifications/mailtemplates"
	"go.vocdoni.io/dvote/log"
)

// bookTicketHandler books a ticket for the authenticated user on the event
// provided. The ticket claim is atomic on the event document, so concurrent
// bookings can never oversell. The ticket code is emailed to the user on a
// best effort basis.
func (a *API) bookTicketHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	req := &BookingRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	// make sure the event exists before claiming a ticket, the claim filter
	// cannot tell a missing event from a sold out one
	event, err := a.db.Event(req.EventID)
	if err != nil {
		if err == db.ErrNotFound {
			errors.ErrEventNotFound.Write(w)
			return
		}
		errors.ErrGenericInternalServerError.Withf("could not get event: %v", err).Write(w)
		return
	}
	if _, err := a.db.ClaimEventTicket(event.ID); err != nil {
		if err == db.ErrSoldOut {
			errors.ErrEventSoldOut.Write(w)
			return
		}
		errors.ErrInternalStorageError.Withf("could not claim ticket: %v", err).Write(w)
		return
	}
	booking := &db.Booking{
		UserID:     user.ID,
		EventID:    event.ID,
		TicketCode: uuid.New().String(),
	}
	bookingID, err := a.db.SetBooking(booking)
	if err != nil {
		errors.ErrInternalStorageError.Withf("could not store booking: %v", err).Write(w)
		return
	}
	booking.ID = bookingID
	a.sendTicketBookedEmail(r.Context(), user, event, booking)
	httpWriteJSON(w, booking)
}

// myBookingsHandler returns the bookings of the authenticated user, newest
// first.
func (a *API) myBookingsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		errors.ErrUnauthorized.Write(w)
		return
	}
	bookings, err := a.db.BookingsByUser(user.ID)
	if err != nil {
		errors.ErrGenericInternalServerError.Withf("could not get bookings: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, bookings)
}

// sendTicketBookedEmail sends the ticket code to the user. Failures are
// logged, the booking is already stored and must not be rolled back over a
// mail error.
func (a *API) sendTicketBookedEmail(ctx context.Context, user *db.User, event *db.Event, booking *db.Booking) {
	if a.mail == nil {
		return
	}
	notification, err := mailtemplates.TicketBookedNotification.ExecTemplate(struct {
		Name       string
		Event      string
		TicketCode string
	}{user.FirstName, event.Name, booking.TicketCode})
	if err != nil {
		log.Warnw("could not render ticket booked email", "error", err)
		return
	}
	notification.ToName = fmt.Sprintf("%s %s", user.FirstName, user.LastName)
	notification.ToAddress = user.Email
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := a.mail.SendNotification(ctx, notification); err != nil {
		log.Warnw("could not send ticket booked email", "error", err, "email", user.Email)
	}
}
