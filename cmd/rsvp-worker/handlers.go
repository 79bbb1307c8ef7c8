package main

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/frontendmu/frontend.mu/pkg/httputil"
	"github.com/frontendmu/frontend.mu/pkg/observability"
	"github.com/frontendmu/frontend.mu/pkg/rsvp"
)

// adminHandlers serves the organizer endpoints. Callers mount them behind
// session and permission middleware.
type adminHandlers struct {
	service *rsvp.Service
	store   *rsvp.Store
}

type reconcileResponse struct {
	EventID  string       `json:"event_id"`
	Promoted []*rsvp.RSVP `json:"promoted"`
}

func (h *adminHandlers) register(router *mux.Router, view, manage func(http.Handler) http.Handler) {
	router.Handle("/events/{eventID}/rsvps", view(http.HandlerFunc(h.listRSVPs))).Methods(http.MethodGet)
	router.Handle("/events/{eventID}/reconcile", manage(http.HandlerFunc(h.reconcile))).Methods(http.MethodPost)
}

func (h *adminHandlers) listRSVPs(w http.ResponseWriter, r *http.Request) {
	eventID, ok := httputil.ParsePathUUIDOrError(w, r, "eventID")
	if !ok {
		return
	}

	list, err := h.store.ListForEvent(r.Context(), eventID)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to list RSVPs")
		httputil.WriteServiceUnavailable(w, "rsvps unavailable")
		return
	}
	if list == nil {
		list = []rsvp.RSVP{}
	}
	httputil.WriteSuccess(w, list)
}

func (h *adminHandlers) reconcile(w http.ResponseWriter, r *http.Request) {
	eventID, ok := httputil.ParsePathUUIDOrError(w, r, "eventID")
	if !ok {
		return
	}

	promoted, err := h.service.Reconcile(r.Context(), eventID)
	if err != nil {
		var rerr *rsvp.Error
		if errors.As(err, &rerr) && errors.Is(err, rsvp.ErrNotFound) {
			httputil.WriteNotFoundError(w, rerr.Message())
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("Reconcile failed")
		httputil.WriteServiceUnavailable(w, "reconcile failed")
		return
	}
	if promoted == nil {
		promoted = []*rsvp.RSVP{}
	}
	httputil.WriteSuccess(w, reconcileResponse{EventID: eventID.String(), Promoted: promoted})
}
