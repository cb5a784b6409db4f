package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/ManoharReddy06/hospital-scheduling/internal/schedule"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Known reports whether s is one of the four lifecycle statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Active statuses occupy their slot for conflict purposes.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// Terminal statuses admit no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// Actor is the authenticated caller of a lifecycle operation. Identity and
// role come from the external identity provider; the engine only checks them
// against the appointment being acted on.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

type Appointment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Date      time.Time // calendar date, midnight UTC
	Time      schedule.TimeOfDay
	Status    Status
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slot is a derived view of one bookable time, produced fresh on every
// listing query. It is never persisted.
type Slot struct {
	Value    schedule.TimeOfDay `json:"value"`
	Label    string             `json:"label"`
	IsBooked bool               `json:"is_booked"`
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
