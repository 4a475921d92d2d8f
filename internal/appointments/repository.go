package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/carehub-health/billing-core/pkg/logging"
)

// Source is the slice of the ledger the repository reads from. Malformed
// records are already dropped below this boundary.
type Source interface {
	AppointmentsByPatient(ctx context.Context, patientID string) ([]Appointment, error)
	AppointmentsForDay(ctx context.Context, day time.Time) ([]Appointment, error)
}

// Repository loads appointments for a scope and filters out cancelled ones
// before anything downstream sees them.
type Repository struct {
	source Source
	logger *logging.Logger
}

// NewRepository builds a repository over the given ledger source.
func NewRepository(source Source, logger *logging.Logger) *Repository {
	if logger == nil {
		logger = logging.Default()
	}
	return &Repository{source: source, logger: logger}
}

// LoadForPatient returns the patient's non-cancelled appointments.
func (r *Repository) LoadForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	appts, err := r.source.AppointmentsByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("appointments: load for patient %s: %w", patientID, err)
	}
	return r.active(appts), nil
}

// LoadForToday returns today's non-cancelled appointments across all patients.
func (r *Repository) LoadForToday(ctx context.Context) ([]Appointment, error) {
	appts, err := r.source.AppointmentsForDay(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("appointments: load for today: %w", err)
	}
	return r.active(appts), nil
}

func (r *Repository) active(appts []Appointment) []Appointment {
	out := make([]Appointment, 0, len(appts))
	for _, a := range appts {
		if a.Cancelled() {
			r.logger.Debug("skipping cancelled appointment", "appointment_id", a.ID)
			continue
		}
		out = append(out, a)
	}
	return out
}
