package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Intake/internal/broker"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

type AdminHandler struct {
	store  store.Store
	broker *broker.Broker
}

func NewAdminHandler(s store.Store, b *broker.Broker) *AdminHandler {
	return &AdminHandler{store: s, broker: b}
}

type CreateOrganizationRequest struct {
	ID           string   `json:"id" validate:"required,max=64"`
	Name         string   `json:"name" validate:"required,max=200"`
	ContactEmail string   `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string   `json:"contact_phone" validate:"max=32"`
	Address      string   `json:"address" validate:"max=500"`
	Zones        []string `json:"zones" validate:"dive,required,max=64"`
}

type CreateCaseworkerRequest struct {
	ID             string   `json:"id" validate:"required,max=64"`
	OrganizationID string   `json:"organization_id" validate:"required"`
	Name           string   `json:"name" validate:"required,max=200"`
	Email          string   `json:"email" validate:"omitempty,email"`
	Phone          string   `json:"phone" validate:"max=32"`
	Zones          []string `json:"assigned_zones" validate:"required,min=1,dive,required,max=64"`
	Active         *bool    `json:"active"`
}

type CreateQRCodeRequest struct {
	Code           string   `json:"code" validate:"required,max=64"`
	OrganizationID string   `json:"organization_id" validate:"required"`
	Location       string   `json:"location" validate:"required,max=200"`
	Zone           string   `json:"zone" validate:"max=64"`
	Latitude       *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

func (h *AdminHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest
	if !decode(w, r, &req, false) {
		return
	}
	org := &store.Organization{
		ID:           req.ID,
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
		Zones:        req.Zones,
		Active:       true,
	}
	if err := h.store.CreateOrganization(r.Context(), org); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (h *AdminHandler) CreateCaseworker(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseworkerRequest
	if !decode(w, r, &req, false) {
		return
	}
	if !h.organizationExists(w, r, req.OrganizationID) {
		return
	}
	cw := &store.Caseworker{
		ID:             req.ID,
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Zones:          req.Zones,
		Active:         req.Active == nil || *req.Active,
	}
	if err := h.store.CreateCaseworker(r.Context(), cw); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, cw)
}

func (h *AdminHandler) ListCaseworkers(w http.ResponseWriter, r *http.Request) {
	filter := store.CaseworkerFilter{
		OrganizationID: r.URL.Query().Get("organization_id"),
		Zone:           r.URL.Query().Get("zone"),
		ActiveOnly:     r.URL.Query().Get("active") == "true",
	}
	cws, err := h.store.ListCaseworkers(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cws == nil {
		cws = []*store.Caseworker{}
	}
	writeJSON(w, http.StatusOK, cws)
}

func (h *AdminHandler) CreateQRCode(w http.ResponseWriter, r *http.Request) {
	var req CreateQRCodeRequest
	if !decode(w, r, &req, false) {
		return
	}
	if !h.organizationExists(w, r, req.OrganizationID) {
		return
	}
	qr := &store.QRCode{
		Code:           req.Code,
		OrganizationID: req.OrganizationID,
		Location:       req.Location,
		Zone:           req.Zone,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Active:         true,
	}
	if err := h.store.CreateQRCode(r.Context(), qr); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, qr)
}

// GetQRCode shows a code with its live scan count.
func (h *AdminHandler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	qr, err := h.broker.QRCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, qr)
}

func (h *AdminHandler) CityMetrics(w http.ResponseWriter, r *http.Request) {
	res, err := h.broker.CityMetrics(r.Context())
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) organizationExists(w http.ResponseWriter, r *http.Request, id string) bool {
	org, err := h.store.GetOrganization(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return false
	}
	if org == nil {
		writeError(w, http.StatusBadRequest, "unknown organization")
		return false
	}
	return true
}
