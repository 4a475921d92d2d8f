package appointments

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSource struct {
	appts []Appointment
	err   error

	byPatientCalls int
	forDayCalls    int
}

func (f *fakeSource) AppointmentsByPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	f.byPatientCalls++
	return f.appts, f.err
}

func (f *fakeSource) AppointmentsForDay(ctx context.Context, day time.Time) ([]Appointment, error) {
	f.forDayCalls++
	return f.appts, f.err
}

func TestLoadForPatientFiltersCancelled(t *testing.T) {
	cancelled := unpaidAppt("A2", "P1", "D1")
	cancelled.ClinicalStatus = "Cancelled"
	src := &fakeSource{appts: []Appointment{
		unpaidAppt("A1", "P1", "D1"),
		cancelled,
		unpaidAppt("A3", "P1", "D2"),
	}}

	repo := NewRepository(src, nil)
	got, err := repo.LoadForPatient(context.Background(), "P1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected cancelled appointment filtered, got %d results", len(got))
	}
	for _, a := range got {
		if a.Cancelled() {
			t.Fatalf("cancelled appointment %s leaked into output", a.ID)
		}
	}
}

func TestLoadForTodayFiltersCancelled(t *testing.T) {
	cancelled := unpaidAppt("A1", "P1", "D1")
	cancelled.ClinicalStatus = "cancelled"
	src := &fakeSource{appts: []Appointment{cancelled}}

	repo := NewRepository(src, nil)
	got, err := repo.LoadForToday(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
	if src.forDayCalls != 1 {
		t.Fatalf("expected one source call, got %d", src.forDayCalls)
	}
}

func TestLoadWrapsSourceError(t *testing.T) {
	srcErr := errors.New("remote down")
	repo := NewRepository(&fakeSource{err: srcErr}, nil)

	_, err := repo.LoadForPatient(context.Background(), "P1")
	if !errors.Is(err, srcErr) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	valid := unpaidAppt("A1", "P1", "D1")
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid appointment, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Appointment)
	}{
		{"missing id", func(a *Appointment) { a.ID = "" }},
		{"missing patient", func(a *Appointment) { a.PatientID = "" }},
		{"missing doctor", func(a *Appointment) { a.DoctorID = "" }},
		{"missing description", func(a *Appointment) { a.Description = "" }},
		{"missing clinical status", func(a *Appointment) { a.ClinicalStatus = "" }},
		{"missing billing status", func(a *Appointment) { a.BillingStatus = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := unpaidAppt("A1", "P1", "D1")
			tt.mutate(&a)
			if err := a.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
