package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tappio/backend/db"
	"github.com/tappio/backend/errors"
)

// getPlansHandler returns the list of available subscription plans.
func (a *API) getPlansHandler(w http.ResponseWriter, _ *http.Request) {
	plans, err := a.db.Plans()
	if err != nil {
		errors.ErrGenericInternalServerError.Withf("could not get plans: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, plans)
}

// planInfoHandler returns the information of the plan with the ID provided.
func (a *API) planInfoHandler(w http.ResponseWriter, r *http.Request) {
	planID, ok := planIDFromRequest(w, r)
	if !ok {
		return
	}
	plan, err := a.db.Plan(planID)
	if err != nil {
		errors.ErrPlanNotFound.Withf("could not get plan: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, plan)
}

// createPlanHandler creates a new subscription plan. Admin only.
func (a *API) createPlanHandler(w http.ResponseWriter, r *http.Request) {
	plan := &db.Plan{}
	if err := json.NewDecoder(r.Body).Decode(plan); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	if plan.Name == "" {
		errors.ErrInvalidData.With("plan name is required").Write(w)
		return
	}
	plan.ID = 0
	planID, err := a.db.SetPlan(plan)
	if err != nil {
		errors.ErrInternalStorageError.Withf("could not create plan: %v", err).Write(w)
		return
	}
	plan.ID = planID
	httpWriteJSON(w, plan)
}

// updatePlanHandler updates an existing subscription plan. Admin only.
func (a *API) updatePlanHandler(w http.ResponseWriter, r *http.Request) {
	planID, ok := planIDFromRequest(w, r)
	if !ok {
		return
	}
	if _, err := a.db.Plan(planID); err != nil {
		errors.ErrPlanNotFound.Write(w)
		return
	}
	plan := &db.Plan{}
	if err := json.NewDecoder(r.Body).Decode(plan); err != nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	plan.ID = planID
	if _, err := a.db.SetPlan(plan); err != nil {
		errors.ErrInternalStorageError.Withf("could not update plan: %v", err).Write(w)
		return
	}
	httpWriteOK(w)
}

// deletePlanHandler deletes a subscription plan. Admin only.
func (a *API) deletePlanHandler(w http.ResponseWriter, r *http.Request) {
	planID, ok := planIDFromRequest(w, r)
	if !ok {
		return
	}
	plan, err := a.db.Plan(planID)
	if err != nil {
		errors.ErrPlanNotFound.Write(w)
		return
	}
	if err := a.db.DelPlan(plan); err != nil {
		errors.ErrInternalStorageError.Withf("could not delete plan: %v", err).Write(w)
		return
	}
	httpWriteOK(w)
}

// planIDFromRequest parses the planID URL parameter. On failure it writes the
// error response and returns false.
func planIDFromRequest(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	planID := chi.URLParam(r, "planID")
	if planID == "" {
		errors.ErrMalformedURLParam.Withf("planID is required").Write(w)
		return 0, false
	}
	planIDUint, err := strconv.ParseUint(planID, 10, 64)
	if err != nil {
		errors.ErrMalformedURLParam.Withf("invalid planID: %v", err).Write(w)
		return 0, false
	}
	return planIDUint, true
}
