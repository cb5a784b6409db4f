package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ManoharReddy06/hospital-scheduling/internal/redisclient"
	"github.com/ManoharReddy06/hospital-scheduling/internal/schedule"
)

// --- nopLocker ---

var _ redisclient.Locker = (*nopLocker)(nil)

// nopLocker runs the critical section without any locking, leaving conflict
// detection entirely to the repository, the way the unique index would.
type nopLocker struct{}

func (nopLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- contendedLocker ---

var _ redisclient.Locker = (*contendedLocker)(nil)

// contendedLocker simulates losing the lock race.
type contendedLocker struct{}

func (contendedLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

// --- stubDirectory ---

var _ Directory = (*stubDirectory)(nil)

// stubDirectory is a func-field fake for the reference catalog. Unset fields
// fall back to a doctor and patient that exist, with a 09:00-17:00 window
// every day.
type stubDirectory struct {
	DoctorExistsFunc  func(ctx context.Context, id uuid.UUID) (bool, error)
	PatientExistsFunc func(ctx context.Context, id uuid.UUID) (bool, error)
	WindowForFunc     func(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*schedule.Window, error)
}

func (s *stubDirectory) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.DoctorExistsFunc != nil {
		return s.DoctorExistsFunc(ctx, id)
	}
	return true, nil
}

func (s *stubDirectory) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.PatientExistsFunc != nil {
		return s.PatientExistsFunc(ctx, id)
	}
	return true, nil
}

func (s *stubDirectory) WindowFor(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*schedule.Window, error) {
	if s.WindowForFunc != nil {
		return s.WindowForFunc(ctx, doctorID, dayOfWeek)
	}
	return &schedule.Window{
		DayOfWeek: dayOfWeek,
		Start:     schedule.NewTimeOfDay(9, 0),
		End:       schedule.NewTimeOfDay(17, 0),
	}, nil
}

// --- memRepository ---

var _ Repository = (*memRepository)(nil)

// memRepository is an in-memory booking ledger. A single mutex makes the
// conflict check and insert atomic, mirroring what the partial unique index
// provides in Postgres, so concurrency tests exercise the real race.
type memRepository struct {
	mu     sync.Mutex
	appts  map[uuid.UUID]*Appointment
	events []EventLog
}

func newMemRepository() *memRepository {
	return &memRepository{appts: make(map[uuid.UUID]*Appointment)}
}

func (r *memRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepository) ListActiveTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.TimeOfDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []schedule.TimeOfDay
	for _, a := range r.appts {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status.Active() {
			result = append(result, a.Time)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result, nil
}

func (r *memRepository) CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.appts {
		if a.DoctorID == appt.DoctorID && a.Date.Equal(appt.Date) && a.Time == appt.Time && a.Status.Active() {
			return nil, ErrSlotTaken
		}
	}

	cp := *appt
	cp.Status = StatusPending
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	r.appts[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (r *memRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()

	cp := *a
	return &cp, nil
}

func (r *memRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.appts {
		if a.PatientID == patientID {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].Time > result[j].Time
	})

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (r *memRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, date *time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.appts {
		if a.DoctorID != doctorID {
			continue
		}
		if date != nil && !a.Date.Equal(*date) {
			continue
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Time < result[j].Time
	})
	return result, nil
}

func (r *memRepository) FindElapsedApproved(ctx context.Context, cutoff time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.appts {
		if a.Status == StatusApproved && a.Time.At(a.Date).Before(cutoff) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (r *memRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

func (r *memRepository) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		types = append(types, ev.EventType)
	}
	return types
}

// put stores an appointment directly, bypassing booking rules, for tests that
// need a row in a particular state.
func (r *memRepository) put(a Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appts[a.ID] = &a
}
