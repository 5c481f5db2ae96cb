package clinic

import (
	"context"
	"time"
)

// DoctorStore reads the doctor catalog.
type DoctorStore interface {
	List(ctx context.Context) ([]Doctor, error)
	Find(ctx context.Context, id string) (Doctor, error)
}

// AppointmentStore persists appointments. List results are ordered by
// appointment time, most recent first.
type AppointmentStore interface {
	Create(ctx context.Context, appt *Appointment) error
	Find(ctx context.Context, id string) (Appointment, error)
	ListByUser(ctx context.Context, userID string) ([]Appointment, error)
	ListByUserFrom(ctx context.Context, userID string, from time.Time) ([]Appointment, error)
	ListByUserBefore(ctx context.Context, userID string, before time.Time) ([]Appointment, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
