package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/ManoharReddy06/hospital-scheduling/internal/booking"
	"github.com/ManoharReddy06/hospital-scheduling/internal/directory"
	"github.com/ManoharReddy06/hospital-scheduling/internal/schedule"
)

type BookAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // HH:MM, 24-hour
	Notes     string `json:"notes,omitempty"`
}

type CancelAppointmentRequest struct {
	PatientID string `json:"patient_id"`
}

type TransitionRequest struct {
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"` // patient or doctor
	Status    string `json:"status"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Label     string    `json:"label"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Date:      a.Date.Format("2006-01-02"),
		Time:      a.Time.String(),
		Label:     a.Time.Label(),
		Status:    string(a.Status),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
	}
}

type SlotsResponse struct {
	DoctorID uuid.UUID      `json:"doctor_id"`
	Date     string         `json:"date"`
	Slots    []booking.Slot `json:"slots"`
}

type WindowResponse struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toWindowResponses(windows []schedule.Window) []WindowResponse {
	out := make([]WindowResponse, 0, len(windows))
	for _, w := range windows {
		out = append(out, WindowResponse{
			DayOfWeek: w.DayOfWeek,
			StartTime: w.Start.String(),
			EndTime:   w.End.String(),
		})
	}
	return out
}

type DoctorResponse struct {
	ID              uuid.UUID `json:"id"`
	ClinicID        uuid.UUID `json:"clinic_id"`
	CityID          uuid.UUID `json:"city_id"`
	Name            string    `json:"name"`
	Specialization  string    `json:"specialization"`
	ExperienceYears int       `json:"experience_years"`
	ConsultationFee float64   `json:"consultation_fee"`
}

func toDoctorResponse(d *directory.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:              d.ID,
		ClinicID:        d.ClinicID,
		CityID:          d.CityID,
		Name:            d.Name,
		Specialization:  d.Specialization,
		ExperienceYears: d.ExperienceYears,
		ConsultationFee: d.ConsultationFee,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
