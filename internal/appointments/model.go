package appointments

import (
	"fmt"
	"strings"
	"time"
)

// Billing status values an appointment moves through. The transition is
// one-way: unpaid -> paid, exactly once.
const (
	BillingUnpaid = "unpaid"
	BillingPaid   = "paid"
)

// StatusCancelled marks appointments that are excluded from billing and
// search entirely.
const StatusCancelled = "cancelled"

// Appointment mirrors the ledger's appointment documents. Attribute names
// match the production collection (apptId, docId, status, doctorsNotes).
type Appointment struct {
	ID             string     `dynamodbav:"apptId" json:"appointmentId"`
	PatientID      string     `dynamodbav:"patientId" json:"patientId"`
	DoctorID       string     `dynamodbav:"docId" json:"doctorId"`
	Description    string     `dynamodbav:"description" json:"description"`
	ClinicalStatus string     `dynamodbav:"status" json:"clinicalStatus"`
	BillingStatus  string     `dynamodbav:"billingStatus" json:"billingStatus"`
	Amount         *float64   `dynamodbav:"amount,omitempty" json:"amount,omitempty"`
	Date           *time.Time `dynamodbav:"date,omitempty" json:"date,omitempty"`
	Notes          string     `dynamodbav:"doctorsNotes,omitempty" json:"doctorsNotes,omitempty"`
	PrescriptionID string     `dynamodbav:"prescriptionId,omitempty" json:"prescriptionId,omitempty"`
	FollowUpNeeded bool       `dynamodbav:"followUpRequired,omitempty" json:"followUpRequired,omitempty"`
	FollowUpDate   *time.Time `dynamodbav:"followUpDate,omitempty" json:"followUpDate,omitempty"`
}

// Validate reports the first missing required field. Records failing
// validation are skipped at the ledger boundary, never surfaced.
func (a *Appointment) Validate() error {
	switch {
	case a.ID == "":
		return fmt.Errorf("appointment missing apptId")
	case a.PatientID == "":
		return fmt.Errorf("appointment %s missing patientId", a.ID)
	case a.DoctorID == "":
		return fmt.Errorf("appointment %s missing docId", a.ID)
	case a.Description == "":
		return fmt.Errorf("appointment %s missing description", a.ID)
	case a.ClinicalStatus == "":
		return fmt.Errorf("appointment %s missing status", a.ID)
	case a.BillingStatus == "":
		return fmt.Errorf("appointment %s missing billingStatus", a.ID)
	}
	return nil
}

// Cancelled reports whether the appointment was cancelled by the scheduling
// workflow.
func (a *Appointment) Cancelled() bool {
	return strings.EqualFold(a.ClinicalStatus, StatusCancelled)
}

// Paid reports whether the appointment has been billed.
func (a *Appointment) Paid() bool {
	return strings.EqualFold(a.BillingStatus, BillingPaid)
}
