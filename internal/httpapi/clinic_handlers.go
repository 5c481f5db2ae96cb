package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/iprashant14/medimeet-backend/internal/audit"
	"github.com/iprashant14/medimeet-backend/internal/auth"
	"github.com/iprashant14/medimeet-backend/internal/clinic"
)

type appointmentRequest struct {
	UserID          string    `json:"userId"`
	DoctorID        string    `json:"doctorId"`
	AppointmentTime time.Time `json:"appointmentTime"`
}

func (a *API) handleDoctorsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		doctors, err := a.clinic.ListDoctors(r.Context())
		if err != nil {
			handleClinicError(w, r, err)
			return
		}
		if doctors == nil {
			doctors = []clinic.Doctor{}
		}
		writeJSON(w, http.StatusOK, doctors)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) handleDoctorResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/doctors/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		doctor, err := a.clinic.GetDoctor(r.Context(), id)
		if err != nil {
			handleClinicError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doctor)
	default:
		methodNotAllowed(w, r, http.MethodGet)
	}
}

func (a *API) handleAppointmentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createAppointment(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

// handleAppointmentResource dispatches /api/appointments/{id},
// /api/appointments/{id}/cancel and /api/appointments/user/{userId}.
func (a *API) handleAppointmentResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/appointments/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if userID := strings.TrimPrefix(path, "user/"); userID != path {
		if userID == "" || strings.Contains(userID, "/") {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listUserAppointments(w, r, userID)
		return
	}

	if id := strings.TrimSuffix(path, "/cancel"); id != path {
		if id == "" || strings.Contains(id, "/") {
			writeError(w, r, http.StatusNotFound, "resource not found")
			return
		}
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.cancelAppointment(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getAppointment(w, r, path)
	case http.MethodDelete:
		a.cancelAppointment(w, r, path)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *API) createAppointment(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var req appointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.DoctorID) == "" {
		writeError(w, r, http.StatusBadRequest, "userId and doctorId are required")
		return
	}
	if req.AppointmentTime.IsZero() {
		writeError(w, r, http.StatusBadRequest, "appointmentTime is required")
		return
	}

	appt, err := a.clinic.Schedule(r.Context(), principal, req.UserID, req.DoctorID, req.AppointmentTime)
	if err != nil {
		handleClinicError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "clinic.appointment.schedule", map[string]any{
		"appointment_id": appt.ID,
		"doctor_id":      appt.DoctorID,
	})
	w.Header().Set("Location", "/api/appointments/"+appt.ID)
	writeJSON(w, http.StatusCreated, appt)
}

func (a *API) listUserAppointments(w http.ResponseWriter, r *http.Request, userID string) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	var (
		appts []clinic.Appointment
		err   error
	)
	switch window := r.URL.Query().Get("window"); window {
	case "", "all":
		appts, err = a.clinic.UserAppointments(r.Context(), principal, userID)
	case "upcoming":
		appts, err = a.clinic.UpcomingAppointments(r.Context(), principal, userID)
	case "past":
		appts, err = a.clinic.PastAppointments(r.Context(), principal, userID)
	default:
		writeError(w, r, http.StatusBadRequest, "window must be one of all, upcoming, past")
		return
	}
	if err != nil {
		handleClinicError(w, r, err)
		return
	}
	if appts == nil {
		appts = []clinic.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

func (a *API) getAppointment(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	appt, err := a.clinic.Get(r.Context(), principal, id)
	if err != nil {
		handleClinicError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (a *API) cancelAppointment(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	appt, err := a.clinic.Cancel(r.Context(), principal, id)
	if err != nil {
		handleClinicError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "clinic.appointment.cancel", map[string]any{
		"appointment_id": appt.ID,
	})
	writeJSON(w, http.StatusOK, appt)
}

func handleClinicError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, clinic.ErrInvalidInput), errors.Is(err, clinic.ErrPastAppointment):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, clinic.ErrAlreadyCompleted):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden")
	case errors.Is(err, clinic.ErrDoctorNotFound), errors.Is(err, clinic.ErrAppointmentNotFound), errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
