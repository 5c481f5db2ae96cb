// Package memory provides mutex-guarded in-process stores. They back the
// server when no database DSN is configured and double as fixtures for
// handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iprashant14/medimeet-backend/internal/auth"
	"github.com/iprashant14/medimeet-backend/internal/clinic"
	"github.com/iprashant14/medimeet-backend/internal/ids"
)

// Store keeps all records in maps behind a single mutex, so uniqueness
// checks and inserts observe a consistent view even under concurrent
// signups. The typed facets returned by Users, Doctors and Appointments
// share that lock.
type Store struct {
	mu           sync.Mutex
	users        map[string]auth.User
	doctors      map[string]clinic.Doctor
	doctorOrder  []string
	appointments map[string]clinic.Appointment
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]auth.User),
		doctors:      make(map[string]clinic.Doctor),
		appointments: make(map[string]clinic.Appointment),
	}
}

func (s *Store) Users() *UserStore               { return &UserStore{s: s} }
func (s *Store) Doctors() *DoctorStore           { return &DoctorStore{s: s} }
func (s *Store) Appointments() *AppointmentStore { return &AppointmentStore{s: s} }

// AddDoctor seeds a doctor record. Listing preserves insertion order.
func (s *Store) AddDoctor(d clinic.Doctor) clinic.Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = ids.New()
	}
	if _, ok := s.doctors[d.ID]; !ok {
		s.doctorOrder = append(s.doctorOrder, d.ID)
	}
	s.doctors[d.ID] = d
	return d
}

type UserStore struct {
	s *Store
}

var _ auth.UserStore = (*UserStore)(nil)

func (us *UserStore) Create(ctx context.Context, u *auth.User) error {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()

	for _, existing := range us.s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return auth.ErrDuplicateUsername
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return auth.ErrDuplicateEmail
		}
	}

	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	us.s.users[u.ID] = *u
	return nil
}

func (us *UserStore) Find(ctx context.Context, id string) (*auth.User, error) {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	u, ok := us.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &u, nil
}

func (us *UserStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	return us.findBy(func(u auth.User) bool { return strings.EqualFold(u.Username, username) })
}

func (us *UserStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	return us.findBy(func(u auth.User) bool { return strings.EqualFold(u.Email, email) })
}

func (us *UserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := us.FindByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	if err == auth.ErrNotFound {
		return false, nil
	}
	return false, err
}

func (us *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := us.FindByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if err == auth.ErrNotFound {
		return false, nil
	}
	return false, err
}

func (us *UserStore) LinkProvider(ctx context.Context, userID string, provider auth.Provider, providerID string) error {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	u, ok := us.s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.Provider = provider
	u.ProviderID = providerID
	u.UpdatedAt = time.Now().UTC()
	us.s.users[userID] = u
	return nil
}

// findBy runs under the store lock held by the caller.
func (us *UserStore) findBy(match func(auth.User) bool) (*auth.User, error) {
	for _, u := range us.s.users {
		if match(u) {
			u := u
			return &u, nil
		}
	}
	return nil, auth.ErrNotFound
}

type DoctorStore struct {
	s *Store
}

var _ clinic.DoctorStore = (*DoctorStore)(nil)

func (ds *DoctorStore) List(ctx context.Context) ([]clinic.Doctor, error) {
	ds.s.mu.Lock()
	defer ds.s.mu.Unlock()
	out := make([]clinic.Doctor, 0, len(ds.s.doctorOrder))
	for _, id := range ds.s.doctorOrder {
		out = append(out, ds.s.doctors[id])
	}
	return out, nil
}

func (ds *DoctorStore) Find(ctx context.Context, id string) (clinic.Doctor, error) {
	ds.s.mu.Lock()
	defer ds.s.mu.Unlock()
	d, ok := ds.s.doctors[id]
	if !ok {
		return clinic.Doctor{}, clinic.ErrDoctorNotFound
	}
	return d, nil
}

type AppointmentStore struct {
	s *Store
}

var _ clinic.AppointmentStore = (*AppointmentStore)(nil)

func (as *AppointmentStore) Create(ctx context.Context, appt *clinic.Appointment) error {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()
	if appt.ID == "" {
		appt.ID = ids.New()
	}
	as.s.appointments[appt.ID] = *appt
	return nil
}

func (as *AppointmentStore) Find(ctx context.Context, id string) (clinic.Appointment, error) {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()
	appt, ok := as.s.appointments[id]
	if !ok {
		return clinic.Appointment{}, clinic.ErrAppointmentNotFound
	}
	return appt, nil
}

func (as *AppointmentStore) ListByUser(ctx context.Context, userID string) ([]clinic.Appointment, error) {
	return as.filter(userID, func(clinic.Appointment) bool { return true }), nil
}

func (as *AppointmentStore) ListByUserFrom(ctx context.Context, userID string, from time.Time) ([]clinic.Appointment, error) {
	return as.filter(userID, func(a clinic.Appointment) bool { return !a.Time.Before(from) }), nil
}

func (as *AppointmentStore) ListByUserBefore(ctx context.Context, userID string, before time.Time) ([]clinic.Appointment, error) {
	return as.filter(userID, func(a clinic.Appointment) bool { return a.Time.Before(before) }), nil
}

func (as *AppointmentStore) UpdateStatus(ctx context.Context, id string, status clinic.Status) error {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()
	appt, ok := as.s.appointments[id]
	if !ok {
		return clinic.ErrAppointmentNotFound
	}
	appt.Status = status
	as.s.appointments[id] = appt
	return nil
}

func (as *AppointmentStore) filter(userID string, keep func(clinic.Appointment) bool) []clinic.Appointment {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()
	var out []clinic.Appointment
	for _, appt := range as.s.appointments {
		if appt.UserID == userID && keep(appt) {
			out = append(out, appt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out
}
