package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Intake/internal/broker"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

type CaseworkersHandler struct {
	broker *broker.Broker
}

func NewCaseworkersHandler(b *broker.Broker) *CaseworkersHandler {
	return &CaseworkersHandler{broker: b}
}

type CompleteActionRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type UpdateClientRequest struct {
	Status           *string    `json:"status"`
	Note             string     `json:"note" validate:"max=2000"`
	MatchedHousingID *string    `json:"matched_housing_id" validate:"omitempty,max=200"`
	HousingPlacedAt  *time.Time `json:"housing_placed_at"`
}

func (h *CaseworkersHandler) Queue(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	completed := false
	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid completed")
			return
		}
		completed = b
	}
	limit, ok := intParam(w, q.Get("limit"), "limit", 0, 1, 100)
	if !ok {
		return
	}

	items, err := h.broker.Queue(r.Context(), chi.URLParam(r, "id"), completed, limit)
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	if items == nil {
		items = []*store.ActionItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CaseworkersHandler) Clients(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var status *store.ClientStatus
	if v := q.Get("status"); v != "" {
		s := store.ClientStatus(v)
		if !s.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		status = &s
	}
	page, ok := intParam(w, q.Get("page"), "page", 1, 1, 1<<20)
	if !ok {
		return
	}
	pageSize, ok := intParam(w, q.Get("page_size"), "page_size", 20, 1, 100)
	if !ok {
		return
	}

	res, err := h.broker.Clients(r.Context(), chi.URLParam(r, "id"), status, page, pageSize)
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CaseworkersHandler) Client(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(chi.URLParam(r, "client_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	c, err := h.broker.Client(r.Context(), chi.URLParam(r, "id"), clientID)
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// UpdateClient moves one of the caseworker's clients through the lifecycle.
func (h *CaseworkersHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(chi.URLParam(r, "client_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	var req UpdateClientRequest
	if !decode(w, r, &req, false) {
		return
	}
	upd := broker.ClientUpdate{
		Note:             req.Note,
		MatchedHousingID: req.MatchedHousingID,
		HousingPlacedAt:  req.HousingPlacedAt,
	}
	if req.Status != nil {
		st := store.ClientStatus(*req.Status)
		upd.Status = &st
	}
	c, err := h.broker.UpdateClient(r.Context(), chi.URLParam(r, "id"), clientID, upd)
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CaseworkersHandler) CompleteAction(w http.ResponseWriter, r *http.Request) {
	actionID, err := uuid.Parse(chi.URLParam(r, "action_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid action id")
		return
	}
	var req CompleteActionRequest
	if !decode(w, r, &req, true) {
		return
	}
	item, err := h.broker.CompleteAction(r.Context(), chi.URLParam(r, "id"), actionID, req.Notes)
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *CaseworkersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	res, err := h.broker.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// intParam parses an optional integer query parameter within [min, max].
func intParam(w http.ResponseWriter, raw, name string, def, min, max int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}
