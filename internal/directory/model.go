// Package directory is the read-only reference catalog: cities, clinics,
// doctors, patients, and each doctor's weekly availability windows. The
// scheduling engine reads from it and never writes to it; rows are maintained
// by provisioning (see cmd/seed).
package directory

import (
	"time"

	"github.com/google/uuid"
)

type City struct {
	ID   uuid.UUID
	Name string
}

type Clinic struct {
	ID      uuid.UUID
	CityID  uuid.UUID
	Name    string
	Address *string
}

type Doctor struct {
	ID              uuid.UUID
	ClinicID        uuid.UUID
	CityID          uuid.UUID
	Name            string
	Specialization  string
	ExperienceYears int
	ConsultationFee float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchFilter narrows a doctor search. Empty fields match everything.
type SearchFilter struct {
	City           string
	Specialization string
	Clinic         string
}
