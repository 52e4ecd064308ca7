package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Intake/internal/broker"
	"github.com/MikeSquared-Agency/Intake/internal/scoring"
)

type IntakeHandler struct {
	broker *broker.Broker
}

func NewIntakeHandler(b *broker.Broker) *IntakeHandler {
	return &IntakeHandler{broker: b}
}

type StartIntakeRequest struct {
	QRCode string `json:"qr_code" validate:"required,max=64"`
}

// ProfileRequest is the client-facing part of the intake form. Scored answers
// are not validated here; NewIntakeAnswers defaults anything out of range.
type ProfileRequest struct {
	FirstName        string   `json:"first_name" validate:"required,max=100"`
	LastName         string   `json:"last_name" validate:"required,max=100"`
	MiddleName       string   `json:"middle_name" validate:"max=100"`
	PreferredName    string   `json:"preferred_name" validate:"max=100"`
	Phone            string   `json:"phone" validate:"max=32"`
	Email            string   `json:"email" validate:"omitempty,email"`
	PreferredContact string   `json:"preferred_contact" validate:"omitempty,oneof=phone email sms"`
	DateOfBirth      string   `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender           string   `json:"gender" validate:"max=50"`
	Race             []string `json:"race" validate:"max=10,dive,max=50"`
	Ethnicity        string   `json:"ethnicity" validate:"max=50"`
	VeteranStatus    *bool    `json:"veteran_status"`
	PrimaryLanguage  string   `json:"primary_language" validate:"max=50"`
	NeedsInterpreter bool     `json:"needs_interpreter"`
}

func (p ProfileRequest) profile() broker.ClientProfile {
	out := broker.ClientProfile{
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		MiddleName:       p.MiddleName,
		PreferredName:    p.PreferredName,
		Phone:            p.Phone,
		Email:            p.Email,
		PreferredContact: p.PreferredContact,
		Gender:           p.Gender,
		Race:             p.Race,
		Ethnicity:        p.Ethnicity,
		VeteranStatus:    p.VeteranStatus,
		PrimaryLanguage:  p.PrimaryLanguage,
		NeedsInterpreter: p.NeedsInterpreter,
	}
	if dob, err := time.Parse("2006-01-02", p.DateOfBirth); err == nil {
		out.DateOfBirth = &dob
	}
	return out
}

type SubmitIntakeRequest struct {
	QRCode string `json:"qr_code" validate:"required,max=64"`
	ProfileRequest
	IntakeData scoring.RawAnswers `json:"intake_data"`
}

func (h *IntakeHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartIntakeRequest
	if !decode(w, r, &req, false) {
		return
	}
	res, err := h.broker.StartIntake(r.Context(), req.QRCode)
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *IntakeHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitIntakeRequest
	if !decode(w, r, &req, false) {
		return
	}
	res, err := h.broker.Submit(r.Context(), broker.IntakeSubmission{
		QRCode:  req.QRCode,
		Profile: req.profile(),
		Answers: req.IntakeData,
	})
	if errors.Is(err, broker.ErrInvalidQRCode) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *IntakeHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client id")
		return
	}
	st, err := h.broker.Status(r.Context(), id)
	if err != nil {
		writeBrokerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
