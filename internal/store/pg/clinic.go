package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iprashant14/medimeet-backend/internal/clinic"
	"github.com/iprashant14/medimeet-backend/internal/ids"
)

type DoctorStore struct {
	db *sql.DB
}

var _ clinic.DoctorStore = (*DoctorStore)(nil)

func (ds *DoctorStore) List(ctx context.Context) ([]clinic.Doctor, error) {
	if ds.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := ds.db.QueryContext(ctx, `
		select id, name, specialty, available_slots
		from doctors
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []clinic.Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (ds *DoctorStore) Find(ctx context.Context, id string) (clinic.Doctor, error) {
	if ds.db == nil {
		return clinic.Doctor{}, errors.New("database connection unavailable")
	}
	row := ds.db.QueryRowContext(ctx, `
		select id, name, specialty, available_slots
		from doctors
		where id = $1
	`, id)
	d, err := scanDoctor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return clinic.Doctor{}, clinic.ErrDoctorNotFound
	}
	if err != nil {
		return clinic.Doctor{}, err
	}
	return d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// Available slots live in a jsonb column; an empty or null document means
// the doctor has not published a calendar yet.
func scanDoctor(row scanner) (clinic.Doctor, error) {
	var (
		d        clinic.Doctor
		rawSlots []byte
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Specialty, &rawSlots); err != nil {
		return clinic.Doctor{}, err
	}
	if len(rawSlots) > 0 {
		if err := json.Unmarshal(rawSlots, &d.AvailableSlots); err != nil {
			return clinic.Doctor{}, fmt.Errorf("decode available slots: %w", err)
		}
	}
	return d, nil
}

type AppointmentStore struct {
	db *sql.DB
}

var _ clinic.AppointmentStore = (*AppointmentStore)(nil)

const appointmentColumns = `id, user_id, doctor_id, doctor_name, doctor_specialty, appointment_time, status`

func (as *AppointmentStore) Create(ctx context.Context, appt *clinic.Appointment) error {
	if as.db == nil {
		return errors.New("database connection unavailable")
	}
	if appt.ID == "" {
		appt.ID = ids.New()
	}
	_, err := as.db.ExecContext(ctx, `
		insert into appointments (id, user_id, doctor_id, doctor_name, doctor_specialty, appointment_time, status)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, appt.ID, appt.UserID, appt.DoctorID, appt.DoctorName, appt.DoctorSpecialty, appt.Time, string(appt.Status))
	return err
}

func (as *AppointmentStore) Find(ctx context.Context, id string) (clinic.Appointment, error) {
	if as.db == nil {
		return clinic.Appointment{}, errors.New("database connection unavailable")
	}
	var (
		appt   clinic.Appointment
		status string
	)
	err := as.db.QueryRowContext(ctx, `
		select `+appointmentColumns+` from appointments where id = $1
	`, id).Scan(&appt.ID, &appt.UserID, &appt.DoctorID, &appt.DoctorName, &appt.DoctorSpecialty, &appt.Time, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return clinic.Appointment{}, clinic.ErrAppointmentNotFound
	}
	if err != nil {
		return clinic.Appointment{}, err
	}
	appt.Status, err = clinic.ParseStatus(status)
	if err != nil {
		return clinic.Appointment{}, err
	}
	return appt, nil
}

func (as *AppointmentStore) ListByUser(ctx context.Context, userID string) ([]clinic.Appointment, error) {
	return as.list(ctx, `
		select `+appointmentColumns+` from appointments
		where user_id = $1
		order by appointment_time desc
	`, userID)
}

func (as *AppointmentStore) ListByUserFrom(ctx context.Context, userID string, from time.Time) ([]clinic.Appointment, error) {
	return as.list(ctx, `
		select `+appointmentColumns+` from appointments
		where user_id = $1 and appointment_time >= $2
		order by appointment_time desc
	`, userID, from)
}

func (as *AppointmentStore) ListByUserBefore(ctx context.Context, userID string, before time.Time) ([]clinic.Appointment, error) {
	return as.list(ctx, `
		select `+appointmentColumns+` from appointments
		where user_id = $1 and appointment_time < $2
		order by appointment_time desc
	`, userID, before)
}

func (as *AppointmentStore) UpdateStatus(ctx context.Context, id string, status clinic.Status) error {
	if as.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := as.db.ExecContext(ctx, `
		update appointments set status = $2 where id = $1
	`, id, string(status))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return clinic.ErrAppointmentNotFound
	}
	return nil
}

func (as *AppointmentStore) list(ctx context.Context, query string, args ...any) ([]clinic.Appointment, error) {
	if as.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := as.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []clinic.Appointment
	for rows.Next() {
		var (
			appt   clinic.Appointment
			status string
		)
		if err := rows.Scan(&appt.ID, &appt.UserID, &appt.DoctorID, &appt.DoctorName, &appt.DoctorSpecialty, &appt.Time, &status); err != nil {
			return nil, err
		}
		appt.Status, err = clinic.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		result = append(result, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
