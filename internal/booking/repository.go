package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ManoharReddy06/hospital-scheduling/internal/schedule"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
)

// Repository contains all booking-ledger DB interactions needed by the service.
type Repository interface {
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListActiveTimes returns the occupied slot times (PENDING or APPROVED)
	// for a doctor on a date, ascending.
	ListActiveTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.TimeOfDay, error)

	// CreateAppointment inserts a PENDING row. It fails with ErrSlotTaken when
	// an active appointment already holds the same (doctor, date, time).
	CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)

	// UpdateAppointmentStatus moves id from one status to another, failing
	// with ErrAppointmentNotFound when the row is absent or no longer in the
	// expected status.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// Dashboard reads
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, date *time.Time) ([]Appointment, error)

	// Completion worker
	FindElapsedApproved(ctx context.Context, cutoff time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// Directory is the slice of the reference catalog the engine depends on:
// identity existence checks and availability window lookups. Implemented by
// the directory package's repository.
type Directory interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)

	// WindowFor returns nil when the doctor has no hours on that weekday.
	WindowFor(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*schedule.Window, error)
}
