package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ManoharReddy06/hospital-scheduling/internal/directory"
)

func listCitiesHandler(repo *directory.PgRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cities, err := repo.ListCities(r.Context())
		if err != nil {
			handleDirectoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cities)
	}
}

func listClinicsByCityHandler(repo *directory.PgRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cityID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_city_id", "id must be a valid UUID")
			return
		}

		clinics, err := repo.ListClinicsByCity(r.Context(), cityID)
		if err != nil {
			handleDirectoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, clinics)
	}
}

func listDoctorsByClinicHandler(repo *directory.PgRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinicID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "id must be a valid UUID")
			return
		}

		doctors, err := repo.ListDoctorsByClinic(r.Context(), clinicID)
		if err != nil {
			handleDirectoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponses(doctors))
	}
}

func searchDoctorsHandler(repo *directory.PgRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := directory.SearchFilter{
			City:           q.Get("city"),
			Specialization: q.Get("specialization"),
			Clinic:         q.Get("clinic"),
		}

		doctors, err := repo.SearchDoctors(r.Context(), filter)
		if err != nil {
			handleDirectoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponses(doctors))
	}
}

func getDoctorHandler(repo *directory.PgRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		doctor, err := repo.GetDoctorByID(r.Context(), id)
		if err != nil {
			handleDirectoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoctorResponse(doctor))
	}
}

func listAvailabilityHandler(repo *directory.PgRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		windows, err := repo.ListWindows(r.Context(), doctorID)
		if err != nil {
			handleDirectoryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toWindowResponses(windows))
	}
}

func toDoctorResponses(doctors []directory.Doctor) []DoctorResponse {
	out := make([]DoctorResponse, 0, len(doctors))
	for i := range doctors {
		out = append(out, toDoctorResponse(&doctors[i]))
	}
	return out
}

func handleDirectoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrCityNotFound):
		writeError(w, http.StatusNotFound, "city_not_found", err.Error())
	case errors.Is(err, directory.ErrClinicNotFound):
		writeError(w, http.StatusNotFound, "clinic_not_found", err.Error())
	case errors.Is(err, directory.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
