package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ManoharReddy06/hospital-scheduling/internal/db"
	"github.com/ManoharReddy06/hospital-scheduling/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDirectory(context.Background(), pool, 8, 60)
	if err != nil {
		log.Fatalf("seed directory: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, doctorIDs); err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 5000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedDirectory(ctx context.Context, pool *pgxpool.Pool, cityCount, doctorCount int) ([]uuid.UUID, error) {
	log.Printf("seeding %d cities and %d doctors", cityCount, doctorCount)

	specializations := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	type clinicRef struct {
		id     uuid.UUID
		cityID uuid.UUID
	}
	var clinics []clinicRef

	seen := make(map[string]bool)
	for i := 0; i < cityCount; i++ {
		cityName := gofakeit.City()
		for seen[cityName] {
			cityName = gofakeit.City()
		}
		seen[cityName] = true

		cityID := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO cities (id, name, created_at)
			VALUES ($1, $2, now())
		`, cityID, cityName)
		if err != nil {
			return nil, err
		}

		// 2-3 clinics per city
		for j := 0; j < gofakeit.Number(2, 3); j++ {
			clinicID := uuid.New()
			name := gofakeit.Company() + " Clinic"
			address := gofakeit.Street()

			_, err := tx.Exec(ctx, `
				INSERT INTO clinics (id, city_id, name, address, created_at)
				VALUES ($1, $2, $3, $4, now())
			`, clinicID, cityID, name, address)
			if err != nil {
				return nil, err
			}
			clinics = append(clinics, clinicRef{id: clinicID, cityID: cityID})
		}
	}

	doctorIDs := make([]uuid.UUID, 0, doctorCount)
	for i := 0; i < doctorCount; i++ {
		clinic := clinics[gofakeit.Number(0, len(clinics)-1)]
		id := uuid.New()

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, clinic_id, city_id, name, specialization, experience_years, consultation_fee, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		`, id, clinic.id, clinic.cityID,
			"Dr. "+gofakeit.Name(),
			specializations[gofakeit.Number(0, len(specializations)-1)],
			gofakeit.Number(1, 35),
			float64(gofakeit.Number(20, 300)),
		)
		if err != nil {
			return nil, err
		}
		doctorIDs = append(doctorIDs, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("directory seeded")
	return doctorIDs, nil
}

func seedAvailability(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	log.Printf("seeding availability for %d doctors", len(doctorIDs))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doctorID := range doctorIDs {
		// Weekdays only (0=Monday..4=Friday), with a bit of variety in the
		// open hours. Most doctors skip one weekday.
		dayOff := gofakeit.Number(0, 6)

		for day := 0; day < 5; day++ {
			if day == dayOff {
				continue
			}

			startHour := gofakeit.Number(8, 10)
			endHour := gofakeit.Number(16, 18)

			_, err := tx.Exec(ctx, `
				INSERT INTO doctor_availability (doctor_id, day_of_week, start_time, end_time)
				VALUES ($1, $2, $3, $4)
			`, doctorID, day,
				schedule.NewTimeOfDay(startHour, 0).String(),
				schedule.NewTimeOfDay(endHour, 0).String(),
			)
			if err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("availability seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, name, email)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}
