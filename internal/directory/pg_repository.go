package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ManoharReddy06/hospital-scheduling/internal/schedule"
)

var (
	ErrCityNotFound   = errors.New("city not found")
	ErrClinicNotFound = errors.New("clinic not found")
	ErrDoctorNotFound = errors.New("doctor not found")
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor

	err := row.Scan(
		&d.ID,
		&d.ClinicID,
		&d.CityID,
		&d.Name,
		&d.Specialization,
		&d.ExperienceYears,
		&d.ConsultationFee,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

const doctorColumns = `id, clinic_id, city_id, name, specialization, experience_years, consultation_fee, created_at, updated_at`

// Catalog lookups

func (r *PgRepository) ListCities(ctx context.Context) ([]City, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name
		FROM cities
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []City
	for rows.Next() {
		var c City
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListClinicsByCity(ctx context.Context, cityID uuid.UUID) ([]Clinic, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, city_id, name, address
		FROM clinics
		WHERE city_id = $1
		ORDER BY name
	`, cityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Clinic
	for rows.Next() {
		var c Clinic
		if err := rows.Scan(&c.ID, &c.CityID, &c.Name, &c.Address); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListDoctorsByClinic(ctx context.Context, clinicID uuid.UUID) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE clinic_id = $1
		ORDER BY name
	`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDoctors(rows)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+doctorColumns+`
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row)
}

// SearchDoctors applies the optional city/specialization/clinic filters.
func (r *PgRepository) SearchDoctors(ctx context.Context, f SearchFilter) ([]Doctor, error) {
	var (
		conds []string
		args  []any
	)

	if f.City != "" {
		args = append(args, f.City)
		conds = append(conds, fmt.Sprintf("c.name ILIKE $%d", len(args)))
	}
	if f.Specialization != "" {
		args = append(args, f.Specialization)
		conds = append(conds, fmt.Sprintf("d.specialization ILIKE $%d", len(args)))
	}
	if f.Clinic != "" {
		args = append(args, f.Clinic)
		conds = append(conds, fmt.Sprintf("cl.name ILIKE $%d", len(args)))
	}

	query := `
		SELECT d.id, d.clinic_id, d.city_id, d.name, d.specialization,
		       d.experience_years, d.consultation_fee, d.created_at, d.updated_at
		FROM doctors d
		JOIN cities c ON c.id = d.city_id
		JOIN clinics cl ON cl.id = d.clinic_id
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY d.name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDoctors(rows)
}

func collectDoctors(rows pgx.Rows) ([]Doctor, error) {
	var result []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

// Identity checks used by the booking engine

func (r *PgRepository) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM doctors WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *PgRepository) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// Availability windows

// WindowFor returns the doctor's open interval for one weekday, or nil when
// the doctor does not work that day.
func (r *PgRepository) WindowFor(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*schedule.Window, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT day_of_week, start_time, end_time
		FROM doctor_availability
		WHERE doctor_id = $1 AND day_of_week = $2
	`, doctorID, dayOfWeek)

	w, err := scanWindow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func (r *PgRepository) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]schedule.Window, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day_of_week, start_time, end_time
		FROM doctor_availability
		WHERE doctor_id = $1
		ORDER BY day_of_week
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

func scanWindow(row pgx.Row) (*schedule.Window, error) {
	var (
		w          schedule.Window
		start, end pgtype.Time
	)

	if err := row.Scan(&w.DayOfWeek, &start, &end); err != nil {
		return nil, err
	}

	w.Start = timeOfDay(start)
	w.End = timeOfDay(end)
	return &w, nil
}

func timeOfDay(t pgtype.Time) schedule.TimeOfDay {
	return schedule.TimeOfDay(t.Microseconds / 60_000_000)
}
