package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carehub-health/billing-core/internal/appointments"
	"github.com/carehub-health/billing-core/pkg/logging"
)

// Reconciliation failures.
var (
	// ErrNotFound means the appointment is not in the unpaid partition:
	// either it is unknown or it was already paid. This is the idempotence
	// guard against double-charging.
	ErrNotFound = errors.New("billing: appointment not found in unpaid set")

	// ErrFeeUnavailable means the doctor record or its consultation fee is
	// missing. No default fee is ever substituted.
	ErrFeeUnavailable = errors.New("billing: consultation fee unavailable")
)

// PartialWriteError reports that the appointment was durably marked paid on
// the ledger but the billing record write failed. The system is in a
// detectable inconsistent state: flag set, record missing. Repair tooling
// can retry the record write using the ids carried here.
type PartialWriteError struct {
	AppointmentID string
	BillingID     string
	Err           error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("billing: appointment %s marked paid but billing record %s not written: %v",
		e.AppointmentID, e.BillingID, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// Ledger is the slice of the remote ledger the reconciler writes through.
type Ledger interface {
	ConsultationFee(ctx context.Context, doctorID string) (float64, bool, error)
	MarkAppointmentPaid(ctx context.Context, appointmentID string, amount float64) error
	PutBilling(ctx context.Context, b *Billing) error
}

// Reconciler owns the unpaid -> paid transition of an appointment. The two
// remote writes are ordered appointment-flag-first so the only reachable
// inconsistent state is "flag set, record missing". Local partitions move
// only after both writes succeed. No automatic retries; that is caller
// policy.
type Reconciler struct {
	ledger      Ledger
	roster      *appointments.Roster
	paymentMode string
	logger      *logging.Logger
	now         func() time.Time

	// Serializes the guard check and the transition so two concurrent calls
	// for one appointment cannot both pass the unpaid-partition gate.
	mu sync.Mutex
}

// NewReconciler builds a reconciler over the given ledger and roster.
func NewReconciler(ledger Ledger, roster *appointments.Roster, paymentMode string, logger *logging.Logger) *Reconciler {
	if paymentMode == "" {
		paymentMode = "Cash"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		ledger:      ledger,
		roster:      roster,
		paymentMode: paymentMode,
		logger:      logger,
		now:         time.Now,
	}
}

// MarkPaid derives the consultation fee, marks the appointment paid on the
// ledger, materializes the billing record, and finally moves the appointment
// into the paid partition. A second call for the same id fails with
// ErrNotFound.
func (r *Reconciler) MarkPaid(ctx context.Context, appointmentID string) (*Billing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.roster.FindUnpaid(appointmentID)
	if !ok {
		return nil, fmt.Errorf("billing: appointment %s: %w", appointmentID, ErrNotFound)
	}

	fee, ok, err := r.ledger.ConsultationFee(ctx, appt.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("billing: derive fee for appointment %s: %w", appointmentID, err)
	}
	if !ok {
		return nil, fmt.Errorf("billing: doctor %s: %w", appt.DoctorID, ErrFeeUnavailable)
	}

	record := &Billing{
		BillingID:  uuid.NewString(),
		RecordType: RecordType,
		Items: []BillItem{{
			Name: appt.Description,
			Fee:  fee,
			Paid: true,
		}},
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		PaidAmt:       fee,
		InsuranceAmt:  0,
		PaymentMode:   r.paymentMode,
		Date:          r.now().UTC(),
		BillingStatus: appointments.BillingPaid,
	}

	// Remote write order matters: the appointment flag goes first, so a
	// failure between the two writes leaves "flag set, record missing" —
	// the detectable inconsistency — never a record referencing an
	// unpaid appointment.
	if err := r.ledger.MarkAppointmentPaid(ctx, appt.ID, fee); err != nil {
		return nil, fmt.Errorf("billing: mark appointment %s paid: %w", appt.ID, err)
	}

	if err := r.ledger.PutBilling(ctx, record); err != nil {
		return nil, &PartialWriteError{
			AppointmentID: appt.ID,
			BillingID:     record.BillingID,
			Err:           err,
		}
	}

	r.roster.MarkPaid(appt.ID, fee)
	r.logger.Info("appointment reconciled",
		"appointment_id", appt.ID,
		"billing_id", record.BillingID,
		"paid_amt", fee,
	)
	return record, nil
}
