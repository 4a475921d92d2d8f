package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/carehub-health/billing-core/cmd/mainconfig"
	"github.com/carehub-health/billing-core/internal/appointments"
	appconfig "github.com/carehub-health/billing-core/internal/config"
	"github.com/carehub-health/billing-core/internal/ledger"
	"github.com/carehub-health/billing-core/pkg/logging"
)

const (
	doctorCount      = 10
	patientCount     = 30
	appointmentCount = 60
)

var departments = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
}

var visitDescriptions = []string{
	"General Consultation",
	"Follow-up Visit",
	"Annual Physical",
	"Lab Review",
	"Vaccination",
	"Minor Procedure",
}

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg := appconfig.Load()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	client := ledger.NewClient(dynamodb.NewFromConfig(awsCfg), ledger.Tables{
		Appointments: cfg.AppointmentsTable,
		Billings:     cfg.BillingsTable,
		Doctors:      cfg.DoctorsTable,
		Patients:     cfg.PatientsTable,
	}, logging.New(cfg.LogLevel))

	gofakeit.Seed(time.Now().UnixNano())

	doctorIDs, err := seedDoctors(ctx, client)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	patientIDs, err := seedPatients(ctx, client)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAppointments(ctx, client, doctorIDs, patientIDs); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, client *ledger.Client) ([]string, error) {
	log.Printf("seeding %d doctors", doctorCount)
	ids := make([]string, 0, doctorCount)
	for i := 0; i < doctorCount; i++ {
		fee := 25.0 + float64(gofakeit.Number(1, 12))*12.5
		doc := &ledger.DoctorRecord{
			ID:              fmt.Sprintf("DOC%03d", i+1),
			Name:            gofakeit.Name(),
			Department:      departments[i%len(departments)],
			ConsultationFee: &fee,
		}
		if err := client.PutDoctor(ctx, doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, nil
}

func seedPatients(ctx context.Context, client *ledger.Client) ([]string, error) {
	log.Printf("seeding %d patients", patientCount)
	ids := make([]string, 0, patientCount)
	for i := 0; i < patientCount; i++ {
		pat := &ledger.PatientRecord{
			ID: fmt.Sprintf("PAT%04d", i+1),
		}
		pat.UserData.Name = gofakeit.Name()
		if err := client.PutPatient(ctx, pat); err != nil {
			return nil, err
		}
		ids = append(ids, pat.ID)
	}
	return ids, nil
}

func seedAppointments(ctx context.Context, client *ledger.Client, doctorIDs, patientIDs []string) error {
	log.Printf("seeding %d appointments", appointmentCount)
	statuses := []string{"scheduled", "completed", "completed", "cancelled"}
	for i := 0; i < appointmentCount; i++ {
		// Spread across the past week; a third land on today so the
		// today-scope has data.
		daysAgo := gofakeit.Number(0, 6)
		if i%3 == 0 {
			daysAgo = 0
		}
		date := time.Now().UTC().AddDate(0, 0, -daysAgo)

		appt := &appointments.Appointment{
			ID:             uuid.NewString(),
			PatientID:      patientIDs[gofakeit.Number(0, len(patientIDs)-1)],
			DoctorID:       doctorIDs[gofakeit.Number(0, len(doctorIDs)-1)],
			Description:    visitDescriptions[gofakeit.Number(0, len(visitDescriptions)-1)],
			ClinicalStatus: statuses[gofakeit.Number(0, len(statuses)-1)],
			BillingStatus:  appointments.BillingUnpaid,
			Date:           &date,
		}
		if err := client.PutAppointment(ctx, appt); err != nil {
			return err
		}
	}
	return nil
}
