package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ManoharReddy06/hospital-scheduling/internal/redisclient"
	"github.com/ManoharReddy06/hospital-scheduling/internal/schedule"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentApproved  = "APPOINTMENT_APPROVED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
)

var (
	ErrPastDate          = errors.New("appointment date is in the past")
	ErrSlotOutsideWindow = errors.New("time is not a bookable slot for this doctor")
	ErrSlotTaken         = errors.New("slot already booked")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")
	ErrNotOwner          = errors.New("appointment belongs to a different patient")
	ErrNotAllowed        = errors.New("actor may not perform this transition")
	ErrUnknownStatus     = errors.New("unrecognized target status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Service struct {
	repo   Repository
	dir    Directory
	locker redisclient.Locker
	log    *zap.Logger

	now func() time.Time
}

func NewService(repo Repository, dir Directory, locker redisclient.Locker, log *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		dir:    dir,
		locker: locker,
		log:    log,
		now:    time.Now,
	}
}

// ListSlots returns the day's bookable slots for a doctor with occupancy
// attached. A doctor who does not work that weekday gets an empty list, not
// an error. Past dates are allowed here; only booking rejects them.
func (s *Service) ListSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	exists, err := s.dir.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("check doctor: %w", err)
	}
	if !exists {
		return nil, ErrDoctorNotFound
	}

	win, err := s.dir.WindowFor(ctx, doctorID, schedule.DayOfWeek(date))
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	if win == nil {
		return []Slot{}, nil
	}

	taken, err := s.repo.ListActiveTimes(ctx, doctorID, dateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("load booked times: %w", err)
	}

	booked := make(map[schedule.TimeOfDay]bool, len(taken))
	for _, t := range taken {
		booked[t] = true
	}

	slots := make([]Slot, 0, 16)
	for t := range schedule.Times(*win) {
		slots = append(slots, Slot{
			Value:    t,
			Label:    t.Label(),
			IsBooked: booked[t],
		})
	}

	return slots, nil
}

// Book reserves one slot for a patient. The conflict re-check and the insert
// run under a per-slot distributed lock, and the ledger's partial unique
// index backs the same guarantee at commit time, so two concurrent requests
// for the same slot yield exactly one success and one ErrSlotTaken.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, t schedule.TimeOfDay, notes string) (*Appointment, error) {
	day := dateOnly(date)
	if day.Before(dateOnly(s.now())) {
		return nil, ErrPastDate
	}

	exists, err := s.dir.PatientExists(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("check patient: %w", err)
	}
	if !exists {
		return nil, ErrPatientNotFound
	}

	exists, err = s.dir.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("check doctor: %w", err)
	}
	if !exists {
		return nil, ErrDoctorNotFound
	}

	win, err := s.dir.WindowFor(ctx, doctorID, schedule.DayOfWeek(day))
	if err != nil {
		return nil, fmt.Errorf("load availability: %w", err)
	}
	if win == nil || !schedule.ValidSlot(*win, t) {
		// The listing endpoint is advisory; the requested time is always
		// re-derived from the window here.
		return nil, ErrSlotOutsideWindow
	}

	var created *Appointment

	err = s.locker.WithLock(ctx, slotLockKey(doctorID, day, t), func(lockCtx context.Context) error {
		taken, err := s.repo.ListActiveTimes(lockCtx, doctorID, day)
		if err != nil {
			return fmt.Errorf("check active appointments: %w", err)
		}
		for _, occupied := range taken {
			if occupied == t {
				return ErrSlotTaken
			}
		}

		appt := &Appointment{
			ID:        uuid.New(),
			PatientID: patientID,
			DoctorID:  doctorID,
			Date:      day,
			Time:      t,
			Status:    StatusPending,
			Notes:     notes,
		}

		created, err = s.repo.CreateAppointment(lockCtx, appt)
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return ErrSlotTaken
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		s.logEvent(lockCtx, created.ID, EventAppointmentBooked, map[string]any{
			"doctor_id":  doctorID.String(),
			"patient_id": patientID.String(),
			"date":       day.Format("2006-01-02"),
			"time":       t.String(),
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// Cancel lets the owning patient release an appointment. Cancelling an
// already cancelled appointment is an idempotent success; a completed one
// cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, appointmentID, patientID uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.PatientID != patientID {
		return nil, ErrNotOwner
	}

	switch appt.Status {
	case StatusCancelled:
		return appt, nil
	case StatusCompleted:
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventAppointmentCancelled, map[string]any{
		"by": string(RolePatient),
	})

	return updated, nil
}

// Transition moves an appointment to a new status on behalf of an actor.
// APPROVED and COMPLETED are doctor-only; CANCELLED is allowed to the owning
// patient or the assigned doctor.
func (s *Service) Transition(ctx context.Context, appointmentID uuid.UUID, actor Actor, target Status) (*Appointment, error) {
	if !target.Known() {
		return nil, ErrUnknownStatus
	}

	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	switch target {
	case StatusApproved, StatusCompleted:
		if actor.Role != RoleDoctor || actor.ID != appt.DoctorID {
			return nil, ErrNotAllowed
		}
	case StatusCancelled:
		ownerPatient := actor.Role == RolePatient && actor.ID == appt.PatientID
		assignedDoctor := actor.Role == RoleDoctor && actor.ID == appt.DoctorID
		if !ownerPatient && !assignedDoctor {
			return nil, ErrNotAllowed
		}
	case StatusPending:
		return nil, ErrInvalidTransition
	}

	if !CanTransition(appt.Status, target) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, target)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.logEvent(ctx, updated.ID, eventForStatus(target), map[string]any{
		"by":   string(actor.Role),
		"from": string(appt.Status),
	})

	return updated, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

// ListPatientAppointments is the patient's history view, newest first.
func (s *Service) ListPatientAppointments(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

// ListDoctorAppointments is the doctor's dashboard view, optionally limited
// to a single day.
func (s *Service) ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, date *time.Time) ([]Appointment, error) {
	if date != nil {
		d := dateOnly(*date)
		date = &d
	}

	appointments, err := s.repo.ListByDoctor(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return appointments, nil
}

// CompleteElapsed moves APPROVED appointments whose slot time has passed to
// COMPLETED. Called periodically by the completion worker, never from the
// request path.
func (s *Service) CompleteElapsed(ctx context.Context) error {
	elapsed, err := s.repo.FindElapsedApproved(ctx, s.now())
	if err != nil {
		return fmt.Errorf("find elapsed approved appointments: %w", err)
	}

	for _, appt := range elapsed {
		_, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, StatusApproved, StatusCompleted)
		if err != nil {
			if !errors.Is(err, ErrAppointmentNotFound) {
				s.log.Warn("failed to complete appointment",
					zap.String("appointment_id", appt.ID.String()),
					zap.Error(err))
			}
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentCompleted, map[string]any{
			"reason": "worker",
		})
	}

	return nil
}

func eventForStatus(target Status) string {
	switch target {
	case StatusApproved:
		return EventAppointmentApproved
	case StatusCompleted:
		return EventAppointmentCompleted
	default:
		return EventAppointmentCancelled
	}
}

// logEvent appends to the audit trail. Failures are logged, never surfaced;
// the booking itself has already committed.
func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("failed to marshal event payload",
			zap.String("event_type", eventType),
			zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn("failed to insert event log",
			zap.String("event_type", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err))
	}
}

func slotLockKey(doctorID uuid.UUID, date time.Time, t schedule.TimeOfDay) string {
	return fmt.Sprintf("lock:slot:%s:%s:%s", doctorID, date.Format("2006-01-02"), t)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
