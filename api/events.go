package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tappio/backend/db"
	"github.com/tappio/backend/errors"
)

// eventsHandler returns the list of published events sorted by start date.
func (a *API) eventsHandler(w http.ResponseWriter, _ *http.Request) {
	events, err := a.db.Events()
	if err != nil {
		errors.ErrGenericInternalServerError.Withf("could not get events: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, events)
}

// eventInfoHandler returns the information of the event with the ID provided.
func (a *API) eventInfoHandler(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDFromRequest(w, r)
	if !ok {
		return
	}
	event, err := a.db.Event(eventID)
	if err != nil {
		if err == db.ErrNotFound {
			errors.ErrEventNotFound.Write(w)
			return
		}
		errors.ErrGenericInternalServerError.Withf("could not get event: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, event)
}

// createEventHandler creates a new event. Admin only.
func (a *API) createEventHandler(w http.ResponseWriter, r *http.Request) {
	event := &db.Event{}
	if err := json.NewDecoder(r.Body).Decode(event); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	if event.Name == "" {
		errors.ErrInvalidEventData.With("event name is required").Write(w)
		return
	}
	if event.TotalTickets < 0 {
		errors.ErrInvalidEventData.With("total tickets cannot be negative").Write(w)
		return
	}
	event.ID = 0
	eventID, err := a.db.SetEvent(event)
	if err != nil {
		if err == db.ErrInvalidData {
			errors.ErrInvalidEventData.Write(w)
			return
		}
		errors.ErrInternalStorageError.Withf("could not create event: %v", err).Write(w)
		return
	}
	event.ID = eventID
	httpWriteJSON(w, event)
}

// updateEventHandler updates an existing event. Admin only.
func (a *API) updateEventHandler(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDFromRequest(w, r)
	if !ok {
		return
	}
	current, err := a.db.Event(eventID)
	if err != nil {
		errors.ErrEventNotFound.Write(w)
		return
	}
	event := &db.Event{}
	if err := json.NewDecoder(r.Body).Decode(event); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	event.ID = eventID
	// ticket availability is owned by the booking flow, adjust the remaining
	// tickets only when the total changes
	if event.TotalTickets != 0 && event.TotalTickets != current.TotalTickets {
		sold := current.TotalTickets - current.RemainingTickets
		event.RemainingTickets = max(event.TotalTickets-sold, 0)
	} else {
		event.RemainingTickets = current.RemainingTickets
	}
	if _, err := a.db.SetEvent(event); err != nil {
		errors.ErrInternalStorageError.Withf("could not update event: %v", err).Write(w)
		return
	}
	httpWriteOK(w)
}

// deleteEventHandler deletes an event. Admin only.
func (a *API) deleteEventHandler(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDFromRequest(w, r)
	if !ok {
		return
	}
	event, err := a.db.Event(eventID)
	if err != nil {
		errors.ErrEventNotFound.Write(w)
		return
	}
	if err := a.db.DelEvent(event); err != nil {
		errors.ErrInternalStorageError.Withf("could not delete event: %v", err).Write(w)
		return
	}
	httpWriteOK(w)
}

// eventIDFromRequest parses the eventID URL parameter. On failure it writes
// the error response and returns false.
func eventIDFromRequest(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	eventID := chi.URLParam(r, "eventID")
	if eventID == "" {
		errors.ErrMalformedURLParam.Withf("eventID is required").Write(w)
		return 0, false
	}
	eventIDUint, err := strconv.ParseUint(eventID, 10, 64)
	if err != nil {
		errors.ErrMalformedURLParam.Withf("invalid eventID: %v", err).Write(w)
		return 0, false
	}
	return eventIDUint, true
}
