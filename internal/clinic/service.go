package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iprashant14/medimeet-backend/internal/auth"
)

// Guard is the ownership check every user-scoped operation runs before
// touching data. It is satisfied by *auth.Service.
type Guard interface {
	Authorize(ctx context.Context, principal auth.Principal, ownerID string) error
}

// Service manages the doctor catalog and appointment bookings. The
// authenticated principal is an explicit argument on every user-scoped
// operation; the service never consults ambient request state.
type Service struct {
	doctors      DoctorStore
	appointments AppointmentStore
	guard        Guard
	now          func() time.Time
}

// ServiceOption configures Service.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the clinic service.
func NewService(doctors DoctorStore, appointments AppointmentStore, guard Guard, opts ...ServiceOption) (*Service, error) {
	if doctors == nil || appointments == nil {
		return nil, errors.New("clinic: doctor and appointment stores are required")
	}
	if guard == nil {
		return nil, errors.New("clinic: access guard is required")
	}
	s := &Service{
		doctors:      doctors,
		appointments: appointments,
		guard:        guard,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListDoctors returns the full doctor catalog.
func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return s.doctors.List(ctx)
}

// GetDoctor returns a single doctor.
func (s *Service) GetDoctor(ctx context.Context, id string) (Doctor, error) {
	return s.doctors.Find(ctx, id)
}

// Schedule books an appointment for userID with the given doctor. The
// principal must own the target user, the doctor must exist and the time
// must be in the future.
func (s *Service) Schedule(ctx context.Context, principal auth.Principal, userID, doctorID string, at time.Time) (Appointment, error) {
	if err := s.guard.Authorize(ctx, principal, userID); err != nil {
		return Appointment{}, err
	}
	if strings.TrimSpace(doctorID) == "" {
		return Appointment{}, fmt.Errorf("%w: doctor id is required", ErrInvalidInput)
	}
	if at.IsZero() {
		return Appointment{}, fmt.Errorf("%w: appointment time is required", ErrInvalidInput)
	}
	if !at.After(s.now()) {
		return Appointment{}, ErrPastAppointment
	}

	doctor, err := s.doctors.Find(ctx, doctorID)
	if err != nil {
		return Appointment{}, err
	}

	appt := &Appointment{
		UserID:          userID,
		DoctorID:        doctor.ID,
		DoctorName:      doctor.Name,
		DoctorSpecialty: doctor.Specialty,
		Time:            at.UTC(),
		Status:          StatusScheduled,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return Appointment{}, err
	}
	return *appt, nil
}

// UserAppointments lists all appointments owned by userID, newest first.
func (s *Service) UserAppointments(ctx context.Context, principal auth.Principal, userID string) ([]Appointment, error) {
	if err := s.guard.Authorize(ctx, principal, userID); err != nil {
		return nil, err
	}
	return s.appointments.ListByUser(ctx, userID)
}

// UpcomingAppointments lists appointments at or after the current time.
func (s *Service) UpcomingAppointments(ctx context.Context, principal auth.Principal, userID string) ([]Appointment, error) {
	if err := s.guard.Authorize(ctx, principal, userID); err != nil {
		return nil, err
	}
	return s.appointments.ListByUserFrom(ctx, userID, s.now())
}

// PastAppointments lists appointments strictly before the current time.
func (s *Service) PastAppointments(ctx context.Context, principal auth.Principal, userID string) ([]Appointment, error) {
	if err := s.guard.Authorize(ctx, principal, userID); err != nil {
		return nil, err
	}
	return s.appointments.ListByUserBefore(ctx, userID, s.now())
}

// Get returns one appointment, authorized against its owner. Doctor
// details are re-read so a renamed doctor shows current data; a doctor
// deleted since booking leaves the denormalized copy in place.
func (s *Service) Get(ctx context.Context, principal auth.Principal, appointmentID string) (Appointment, error) {
	appt, err := s.appointments.Find(ctx, appointmentID)
	if err != nil {
		return Appointment{}, err
	}
	if err := s.guard.Authorize(ctx, principal, appt.UserID); err != nil {
		return Appointment{}, err
	}
	if doctor, err := s.doctors.Find(ctx, appt.DoctorID); err == nil {
		appt.DoctorName = doctor.Name
		appt.DoctorSpecialty = doctor.Specialty
	}
	return appt, nil
}

// Cancel marks an appointment canceled, authorized against its owner.
// Canceling twice is a no-op; a completed appointment stays completed.
func (s *Service) Cancel(ctx context.Context, principal auth.Principal, appointmentID string) (Appointment, error) {
	appt, err := s.appointments.Find(ctx, appointmentID)
	if err != nil {
		return Appointment{}, err
	}
	if err := s.guard.Authorize(ctx, principal, appt.UserID); err != nil {
		return Appointment{}, err
	}

	switch appt.Status {
	case StatusScheduled:
		if err := s.appointments.UpdateStatus(ctx, appt.ID, StatusCanceled); err != nil {
			return Appointment{}, err
		}
		appt.Status = StatusCanceled
		return appt, nil
	case StatusCanceled:
		return appt, nil
	case StatusCompleted:
		return Appointment{}, ErrAlreadyCompleted
	default:
		return Appointment{}, fmt.Errorf("unknown appointment status %q", appt.Status)
	}
}
