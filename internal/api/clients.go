package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Intake/internal/broker"
	"github.com/MikeSquared-Agency/Intake/internal/scoring"
)

type ClientsHandler struct {
	broker *broker.Broker
}

func NewClientsHandler(b *broker.Broker) *ClientsHandler {
	return &ClientsHandler{broker: b}
}

type ReassessRequest struct {
	IntakeData scoring.RawAnswers `json:"intake_data"`
}

// clientID resolves the client in the path. Under /caseworkers/{id} the
// client is {client_id} and must be assigned to that caseworker; elsewhere
// it is {id}.
func (h *ClientsHandler) clientID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "client_id")
	scoped := raw != ""
	if !scoped {
		raw = chi.URLParam(r, "id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return uuid.Nil, false
	}
	if scoped {
		if _, err := h.broker.Client(r.Context(), chi.URLParam(r, "id"), id); err != nil {
			writeBrokerError(w, err)
			return uuid.Nil, false
		}
	}
	return id, true
}

// Assessments lists every assessment of a client with the rules that fired.
func (h *ClientsHandler) Assessments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}
	list, err := h.broker.Assessments(r.Context(), id)
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ClientsHandler) Reassess(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}
	var req ReassessRequest
	if !decode(w, r, &req, false) {
		return
	}
	res, err := h.broker.Reassess(r.Context(), id, req.IntakeData)
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Portal

func (h *ClientsHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}
	res, err := h.broker.Profile(r.Context(), id)
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ClientsHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}
	res, err := h.broker.Progress(r.Context(), id)
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ClientsHandler) Caseworker(w http.ResponseWriter, r *http.Request) {
	id, ok := h.clientID(w, r)
	if !ok {
		return
	}
	res, err := h.broker.CaseworkerContact(r.Context(), id)
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
