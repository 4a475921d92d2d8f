package appointments

import "testing"

func unpaidAppt(id, patientID, doctorID string) Appointment {
	return Appointment{
		ID:             id,
		PatientID:      patientID,
		DoctorID:       doctorID,
		Description:    "General Consultation",
		ClinicalStatus: "completed",
		BillingStatus:  BillingUnpaid,
	}
}

func TestRosterPartitionsAreDerived(t *testing.T) {
	paid := unpaidAppt("A1", "P1", "D1")
	paid.BillingStatus = BillingPaid
	r := NewRoster()
	r.Replace([]Appointment{
		paid,
		unpaidAppt("A2", "P2", "D1"),
		unpaidAppt("A3", "P1", "D2"),
	})

	if got := len(r.Paid()); got != 1 {
		t.Fatalf("expected 1 paid, got %d", got)
	}
	if got := len(r.Unpaid()); got != 2 {
		t.Fatalf("expected 2 unpaid, got %d", got)
	}
	if got := len(r.All()); got != 3 {
		t.Fatalf("expected 3 total, got %d", got)
	}
}

func TestRosterMarkPaidMovesPartition(t *testing.T) {
	r := NewRoster()
	r.Replace([]Appointment{unpaidAppt("A1", "P1", "D1")})

	if !r.MarkPaid("A1", 50) {
		t.Fatal("expected MarkPaid to succeed")
	}

	if got := len(r.Unpaid()); got != 0 {
		t.Fatalf("expected empty unpaid partition, got %d", got)
	}
	paid := r.Paid()
	if len(paid) != 1 {
		t.Fatalf("expected 1 paid, got %d", len(paid))
	}
	if paid[0].Amount == nil || *paid[0].Amount != 50 {
		t.Fatalf("expected amount 50, got %v", paid[0].Amount)
	}

	// Second transition must fail: unpaid -> paid happens exactly once.
	if r.MarkPaid("A1", 50) {
		t.Fatal("expected second MarkPaid to report false")
	}
}

func TestRosterMarkPaidUnknownID(t *testing.T) {
	r := NewRoster()
	r.Replace([]Appointment{unpaidAppt("A1", "P1", "D1")})
	if r.MarkPaid("A9", 50) {
		t.Fatal("expected MarkPaid to report false for unknown id")
	}
}

func TestRosterFindUnpaid(t *testing.T) {
	r := NewRoster()
	r.Replace([]Appointment{unpaidAppt("A1", "P1", "D1")})

	if _, ok := r.FindUnpaid("A1"); !ok {
		t.Fatal("expected to find unpaid appointment")
	}
	r.MarkPaid("A1", 50)
	if _, ok := r.FindUnpaid("A1"); ok {
		t.Fatal("paid appointment must not be found in unpaid partition")
	}
}

func TestRosterReplaceCopies(t *testing.T) {
	src := []Appointment{unpaidAppt("A1", "P1", "D1")}
	r := NewRoster()
	r.Replace(src)
	src[0].BillingStatus = BillingPaid

	if len(r.Unpaid()) != 1 {
		t.Fatal("roster must not share backing storage with caller slice")
	}
}
