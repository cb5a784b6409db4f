package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ManoharReddy06/hospital-scheduling/internal/booking"
	"github.com/ManoharReddy06/hospital-scheduling/internal/schedule"
)

// The handler tests run real HTTP requests through the chi routes against a
// booking.Service backed by in-test fakes, so they cover routing, request
// parsing, and the error-to-status mapping in one pass.

type fakeLocker struct{}

func (fakeLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	getByID      func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)
	listActive   func(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.TimeOfDay, error)
	create       func(ctx context.Context, appt *booking.Appointment) (*booking.Appointment, error)
	updateStatus func(ctx context.Context, id uuid.UUID, from, to booking.Status) (*booking.Appointment, error)
	byPatient    func(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]booking.Appointment, error)
	byDoctor     func(ctx context.Context, doctorID uuid.UUID, date *time.Time) ([]booking.Appointment, error)
}

var _ booking.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
	if f.getByID != nil {
		return f.getByID(ctx, id)
	}
	return nil, booking.ErrAppointmentNotFound
}

func (f *fakeRepo) ListActiveTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]schedule.TimeOfDay, error) {
	if f.listActive != nil {
		return f.listActive(ctx, doctorID, date)
	}
	return nil, nil
}

func (f *fakeRepo) CreateAppointment(ctx context.Context, appt *booking.Appointment) (*booking.Appointment, error) {
	if f.create != nil {
		return f.create(ctx, appt)
	}
	created := *appt
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	return &created, nil
}

func (f *fakeRepo) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to booking.Status) (*booking.Appointment, error) {
	if f.updateStatus != nil {
		return f.updateStatus(ctx, id, from, to)
	}
	return nil, booking.ErrAppointmentNotFound
}

func (f *fakeRepo) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]booking.Appointment, error) {
	if f.byPatient != nil {
		return f.byPatient(ctx, patientID, limit, offset)
	}
	return []booking.Appointment{}, nil
}

func (f *fakeRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID, date *time.Time) ([]booking.Appointment, error) {
	if f.byDoctor != nil {
		return f.byDoctor(ctx, doctorID, date)
	}
	return []booking.Appointment{}, nil
}

func (f *fakeRepo) FindElapsedApproved(ctx context.Context, cutoff time.Time) ([]booking.Appointment, error) {
	return nil, nil
}

func (f *fakeRepo) InsertEvent(ctx context.Context, ev booking.EventLog) error {
	return nil
}

type fakeDirectory struct {
	doctorExists  func(ctx context.Context, id uuid.UUID) (bool, error)
	patientExists func(ctx context.Context, id uuid.UUID) (bool, error)
	windowFor     func(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*schedule.Window, error)
}

var _ booking.Directory = (*fakeDirectory)(nil)

func (f *fakeDirectory) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.doctorExists != nil {
		return f.doctorExists(ctx, id)
	}
	return true, nil
}

func (f *fakeDirectory) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.patientExists != nil {
		return f.patientExists(ctx, id)
	}
	return true, nil
}

func (f *fakeDirectory) WindowFor(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*schedule.Window, error) {
	if f.windowFor != nil {
		return f.windowFor(ctx, doctorID, dayOfWeek)
	}
	win := schedule.Window{
		DayOfWeek: dayOfWeek,
		Start:     schedule.NewTimeOfDay(9, 0),
		End:       schedule.NewTimeOfDay(17, 0),
	}
	return &win, nil
}

func newTestRouter(t *testing.T, repo *fakeRepo, dir *fakeDirectory) http.Handler {
	t.Helper()
	if repo == nil {
		repo = &fakeRepo{}
	}
	if dir == nil {
		dir = &fakeDirectory{}
	}
	svc := booking.NewService(repo, dir, fakeLocker{}, zap.NewNop())
	return NewRouter(RouterConfig{
		Booking: svc,
		Logger:  zap.NewNop(),
		Env:     "test",
		Version: "test",
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func futureBookingDate() string {
	return time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
}

func TestBookAppointmentCreated(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := doJSON(t, router, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID: uuid.NewString(),
		DoctorID:  uuid.NewString(),
		Date:      futureBookingDate(),
		Time:      "09:30",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "09:30", resp.Time)
	assert.Equal(t, "09:30 AM", resp.Label)
	assert.NotEqual(t, uuid.Nil, resp.ID)
}

func TestBookAppointmentBadRequests(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	cases := []struct {
		name      string
		req       BookAppointmentRequest
		wantError string
	}{
		{
			name:      "bad patient id",
			req:       BookAppointmentRequest{PatientID: "nope", DoctorID: uuid.NewString(), Date: futureBookingDate(), Time: "09:00"},
			wantError: "invalid_patient_id",
		},
		{
			name:      "bad doctor id",
			req:       BookAppointmentRequest{PatientID: uuid.NewString(), DoctorID: "nope", Date: futureBookingDate(), Time: "09:00"},
			wantError: "invalid_doctor_id",
		},
		{
			name:      "bad date",
			req:       BookAppointmentRequest{PatientID: uuid.NewString(), DoctorID: uuid.NewString(), Date: "07/15/2025", Time: "09:00"},
			wantError: "invalid_date",
		},
		{
			name:      "bad time",
			req:       BookAppointmentRequest{PatientID: uuid.NewString(), DoctorID: uuid.NewString(), Date: futureBookingDate(), Time: "9am"},
			wantError: "invalid_time",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/appointments", tc.req)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantError, resp.Error)
		})
	}
}

func TestBookAppointmentMalformedBody(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookAppointmentDoctorNotFound(t *testing.T) {
	dir := &fakeDirectory{
		doctorExists: func(ctx context.Context, id uuid.UUID) (bool, error) { return false, nil },
	}
	router := newTestRouter(t, nil, dir)

	rec := doJSON(t, router, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID: uuid.NewString(),
		DoctorID:  uuid.NewString(),
		Date:      futureBookingDate(),
		Time:      "09:00",
	})

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "doctor_not_found", resp.Error)
}

func TestBookAppointmentSlotTakenConflict(t *testing.T) {
	repo := &fakeRepo{
		create: func(ctx context.Context, appt *booking.Appointment) (*booking.Appointment, error) {
			return nil, booking.ErrSlotTaken
		},
	}
	router := newTestRouter(t, repo, nil)

	rec := doJSON(t, router, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID: uuid.NewString(),
		DoctorID:  uuid.NewString(),
		Date:      futureBookingDate(),
		Time:      "10:00",
	})

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "slot_already_booked", resp.Error)
}

func TestBookAppointmentPastDate(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := doJSON(t, router, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID: uuid.NewString(),
		DoctorID:  uuid.NewString(),
		Date:      "2020-01-06",
		Time:      "09:00",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "date_in_past", resp.Error)
}

func TestBookAppointmentLunchHourRejected(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := doJSON(t, router, http.MethodPost, "/appointments", BookAppointmentRequest{
		PatientID: uuid.NewString(),
		DoctorID:  uuid.NewString(),
		Date:      futureBookingDate(),
		Time:      "12:00",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "slot_not_bookable", resp.Error)
}

func TestGetAppointmentNotFound(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := doJSON(t, router, http.MethodGet, "/appointments/"+uuid.NewString(), nil)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "appointment_not_found", resp.Error)
}

func TestGetAppointmentBadID(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := doJSON(t, router, http.MethodGet, "/appointments/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelAppointmentNotOwnerForbidden(t *testing.T) {
	apptID := uuid.New()
	owner := uuid.New()
	repo := &fakeRepo{
		getByID: func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
			return &booking.Appointment{
				ID:        apptID,
				PatientID: owner,
				DoctorID:  uuid.New(),
				Status:    booking.StatusPending,
			}, nil
		},
	}
	router := newTestRouter(t, repo, nil)

	rec := doJSON(t, router, http.MethodPost, "/appointments/"+apptID.String()+"/cancel",
		CancelAppointmentRequest{PatientID: uuid.NewString()})

	require.Equal(t, http.StatusForbidden, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "forbidden", resp.Error)
}

func TestCancelAppointmentOK(t *testing.T) {
	apptID := uuid.New()
	owner := uuid.New()
	repo := &fakeRepo{
		getByID: func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
			return &booking.Appointment{
				ID:        apptID,
				PatientID: owner,
				DoctorID:  uuid.New(),
				Status:    booking.StatusPending,
				Time:      schedule.NewTimeOfDay(9, 0),
			}, nil
		},
		updateStatus: func(ctx context.Context, id uuid.UUID, from, to booking.Status) (*booking.Appointment, error) {
			return &booking.Appointment{
				ID:        apptID,
				PatientID: owner,
				Status:    to,
				Time:      schedule.NewTimeOfDay(9, 0),
			}, nil
		},
	}
	router := newTestRouter(t, repo, nil)

	rec := doJSON(t, router, http.MethodPost, "/appointments/"+apptID.String()+"/cancel",
		CancelAppointmentRequest{PatientID: owner.String()})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CANCELLED", resp.Status)
}

func TestCancelCompletedConflict(t *testing.T) {
	apptID := uuid.New()
	owner := uuid.New()
	repo := &fakeRepo{
		getByID: func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
			return &booking.Appointment{
				ID:        apptID,
				PatientID: owner,
				Status:    booking.StatusCompleted,
			}, nil
		},
	}
	router := newTestRouter(t, repo, nil)

	rec := doJSON(t, router, http.MethodPost, "/appointments/"+apptID.String()+"/cancel",
		CancelAppointmentRequest{PatientID: owner.String()})

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_status_transition", resp.Error)
}

func TestTransitionApproveOK(t *testing.T) {
	apptID := uuid.New()
	doctorID := uuid.New()
	repo := &fakeRepo{
		getByID: func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
			return &booking.Appointment{
				ID:       apptID,
				DoctorID: doctorID,
				Status:   booking.StatusPending,
				Time:     schedule.NewTimeOfDay(10, 0),
			}, nil
		},
		updateStatus: func(ctx context.Context, id uuid.UUID, from, to booking.Status) (*booking.Appointment, error) {
			return &booking.Appointment{
				ID:       apptID,
				DoctorID: doctorID,
				Status:   to,
				Time:     schedule.NewTimeOfDay(10, 0),
			}, nil
		},
	}
	router := newTestRouter(t, repo, nil)

	rec := doJSON(t, router, http.MethodPost, "/appointments/"+apptID.String()+"/status",
		TransitionRequest{ActorID: doctorID.String(), ActorRole: "doctor", Status: "APPROVED"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "APPROVED", resp.Status)
}

func TestTransitionBadRole(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := doJSON(t, router, http.MethodPost, "/appointments/"+uuid.NewString()+"/status",
		TransitionRequest{ActorID: uuid.NewString(), ActorRole: "admin", Status: "APPROVED"})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_actor_role", resp.Error)
}

func TestTransitionUnknownStatus(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := doJSON(t, router, http.MethodPost, "/appointments/"+uuid.NewString()+"/status",
		TransitionRequest{ActorID: uuid.NewString(), ActorRole: "doctor", Status: "RESCHEDULED"})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unknown_status", resp.Error)
}

func TestTransitionWrongDoctorForbidden(t *testing.T) {
	apptID := uuid.New()
	repo := &fakeRepo{
		getByID: func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error) {
			return &booking.Appointment{
				ID:       apptID,
				DoctorID: uuid.New(),
				Status:   booking.StatusPending,
			}, nil
		},
	}
	router := newTestRouter(t, repo, nil)

	rec := doJSON(t, router, http.MethodPost, "/appointments/"+apptID.String()+"/status",
		TransitionRequest{ActorID: uuid.NewString(), ActorRole: "doctor", Status: "APPROVED"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListSlotsOK(t *testing.T) {
	doctorID := uuid.New()
	repo := &fakeRepo{
		listActive: func(ctx context.Context, id uuid.UUID, date time.Time) ([]schedule.TimeOfDay, error) {
			return []schedule.TimeOfDay{schedule.NewTimeOfDay(9, 0)}, nil
		},
	}
	router := newTestRouter(t, repo, nil)

	rec := doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/doctors/%s/slots?date=2025-06-02", doctorID), nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SlotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, doctorID, resp.DoctorID)
	assert.Equal(t, "2025-06-02", resp.Date)
	// 09:00-17:00 minus the lunch hour
	require.Len(t, resp.Slots, 14)
	assert.True(t, resp.Slots[0].IsBooked)
	assert.False(t, resp.Slots[1].IsBooked)
}

func TestListSlotsMissingDate(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := doJSON(t, router, http.MethodGet, "/doctors/"+uuid.NewString()+"/slots", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSlotsUnknownDoctor(t *testing.T) {
	dir := &fakeDirectory{
		doctorExists: func(ctx context.Context, id uuid.UUID) (bool, error) { return false, nil },
	}
	router := newTestRouter(t, nil, dir)

	rec := doJSON(t, router, http.MethodGet,
		"/doctors/"+uuid.NewString()+"/slots?date=2025-06-02", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPatientAppointmentsOK(t *testing.T) {
	patientID := uuid.New()
	var gotLimit, gotOffset int
	repo := &fakeRepo{
		byPatient: func(ctx context.Context, id uuid.UUID, limit, offset int) ([]booking.Appointment, error) {
			gotLimit, gotOffset = limit, offset
			return []booking.Appointment{
				{ID: uuid.New(), PatientID: id, Status: booking.StatusPending, Time: schedule.NewTimeOfDay(9, 0)},
			}, nil
		},
	}
	router := newTestRouter(t, repo, nil)

	rec := doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/patients/%s/appointments?limit=5&offset=10", patientID), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, 10, gotOffset)

	var resp []AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, patientID, resp[0].PatientID)
}

func TestListDoctorAppointmentsBadDate(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	rec := doJSON(t, router, http.MethodGet,
		"/doctors/"+uuid.NewString()+"/appointments?date=junk", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDoctorAppointmentsDateFilterPassedThrough(t *testing.T) {
	doctorID := uuid.New()
	var gotDate *time.Time
	repo := &fakeRepo{
		byDoctor: func(ctx context.Context, id uuid.UUID, date *time.Time) ([]booking.Appointment, error) {
			gotDate = date
			return []booking.Appointment{}, nil
		},
	}
	router := newTestRouter(t, repo, nil)

	rec := doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/doctors/%s/appointments?date=2025-06-02", doctorID), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotDate)
	assert.Equal(t, "2025-06-02", gotDate.Format("2006-01-02"))
}
