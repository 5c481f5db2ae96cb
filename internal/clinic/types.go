package clinic

import (
	"errors"
	"fmt"
	"time"
)

// Doctor is a bookable practitioner with published availability.
type Doctor struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Specialty      string      `json:"specialty"`
	AvailableSlots []time.Time `json:"availableSlots"`
}

// Status is the lifecycle state of an appointment. It is a closed set;
// consumers switch over it exhaustively.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCanceled  Status = "canceled"
	StatusCompleted Status = "completed"
)

// ParseStatus maps a stored string to a Status, rejecting unknown values
// so a corrupted record fails loudly instead of flowing through as an
// open-ended string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled:
		return StatusScheduled, nil
	case StatusCanceled:
		return StatusCanceled, nil
	case StatusCompleted:
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// Appointment links a patient to a doctor at a point in time. The doctor
// name and specialty are denormalized onto the record at booking time so
// listings do not fan out into doctor lookups.
type Appointment struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	DoctorID        string    `json:"doctorId"`
	DoctorName      string    `json:"doctorName"`
	DoctorSpecialty string    `json:"doctorSpecialty"`
	Time            time.Time `json:"appointmentTime"`
	Status          Status    `json:"status"`
}

var (
	ErrDoctorNotFound      = errors.New("clinic: doctor not found")
	ErrAppointmentNotFound = errors.New("clinic: appointment not found")
	ErrPastAppointment     = errors.New("clinic: appointment time must be in the future")
	ErrAlreadyCompleted    = errors.New("clinic: completed appointment cannot be canceled")
	ErrInvalidInput        = errors.New("clinic: invalid input")
)
