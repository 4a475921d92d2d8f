package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carehub-health/billing-core/internal/appointments"
	"github.com/carehub-health/billing-core/internal/artifact"
	"github.com/carehub-health/billing-core/internal/billing"
	"github.com/carehub-health/billing-core/internal/directory"
	"github.com/carehub-health/billing-core/internal/ledger"
)

type fakeLoader struct {
	appts []appointments.Appointment
	err   error

	lastPatientID string
	todayCalls    int
}

func (f *fakeLoader) LoadForPatient(ctx context.Context, patientID string) ([]appointments.Appointment, error) {
	f.lastPatientID = patientID
	return f.appts, f.err
}

func (f *fakeLoader) LoadForToday(ctx context.Context) ([]appointments.Appointment, error) {
	f.todayCalls++
	return f.appts, f.err
}

type fakeReconciler struct {
	record *billing.Billing
	err    error

	lastID string
}

func (f *fakeReconciler) MarkPaid(ctx context.Context, appointmentID string) (*billing.Billing, error) {
	f.lastID = appointmentID
	return f.record, f.err
}

type fakeGenerator struct {
	handle string
	err    error
}

func (f *fakeGenerator) EnsureArtifact(ctx context.Context, b *billing.Billing) (string, error) {
	return f.handle, f.err
}

type fakeBillingReader struct {
	record *billing.Billing
	err    error
}

func (f *fakeBillingReader) BillingByID(ctx context.Context, billingID string) (*billing.Billing, error) {
	return f.record, f.err
}

type fakeHistory struct {
	entries []billing.Entry
	err     error
}

func (f *fakeHistory) List(ctx context.Context) ([]billing.Entry, error) {
	return f.entries, f.err
}

type fakeSearcher struct {
	matches []appointments.Appointment
	applied bool

	lastQuery string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, candidates []appointments.Appointment) ([]appointments.Appointment, bool) {
	f.lastQuery = query
	return f.matches, f.applied
}

type fakeNames struct{}

func (fakeNames) Resolve(ctx context.Context, kind directory.Kind, id string) string {
	if kind == directory.KindDoctor {
		return "Dr. Lee (Cardiology)"
	}
	return "John Doe"
}

type fixture struct {
	loader     *fakeLoader
	reconciler *fakeReconciler
	generator  *fakeGenerator
	billings   *fakeBillingReader
	history    *fakeHistory
	searcher   *fakeSearcher
	roster     *appointments.Roster
	router     http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		loader:     &fakeLoader{},
		reconciler: &fakeReconciler{},
		generator:  &fakeGenerator{},
		billings:   &fakeBillingReader{},
		history:    &fakeHistory{},
		searcher:   &fakeSearcher{applied: true},
		roster:     appointments.NewRoster(),
	}
	handler := NewHandler(HandlerConfig{
		Repo:       f.loader,
		Roster:     f.roster,
		Reconciler: f.reconciler,
		Generator:  f.generator,
		Billings:   f.billings,
		History:    f.history,
		Engine:     f.searcher,
		Resolver:   fakeNames{},
	})
	f.router = NewRouter(&RouterConfig{Handler: handler})
	return f
}

func (f *fixture) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func apiAppt(id, billingStatus string) appointments.Appointment {
	return appointments.Appointment{
		ID:             id,
		PatientID:      "P1",
		DoctorID:       "D1",
		Description:    "General Consultation",
		ClinicalStatus: "completed",
		BillingStatus:  billingStatus,
	}
}

func TestHealth(t *testing.T) {
	f := newFixture()
	rec, body := f.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestListAppointmentsPartitions(t *testing.T) {
	f := newFixture()
	f.loader.appts = []appointments.Appointment{
		apiAppt("A1", appointments.BillingPaid),
		apiAppt("A2", appointments.BillingUnpaid),
		apiAppt("A3", appointments.BillingUnpaid),
	}

	rec, body := f.do(t, http.MethodGet, "/appointments")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.loader.todayCalls)
	assert.Len(t, body["paid"], 1)
	assert.Len(t, body["unpaid"], 2)
}

func TestListAppointmentsPatientScope(t *testing.T) {
	f := newFixture()
	rec, body := f.do(t, http.MethodGet, "/appointments?patientId=P42")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "P42", f.loader.lastPatientID)
	assert.Equal(t, 0, f.loader.todayCalls)
	// Empty partitions serialize as arrays, not null.
	assert.NotNil(t, body["paid"])
	assert.NotNil(t, body["unpaid"])
}

func TestListAppointmentsLedgerDown(t *testing.T) {
	f := newFixture()
	f.loader.err = ledger.ErrUnavailable
	rec, _ := f.do(t, http.MethodGet, "/appointments")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPayOK(t *testing.T) {
	f := newFixture()
	f.reconciler.record = &billing.Billing{
		BillingID:     "B1",
		AppointmentID: "A1",
		PaidAmt:       50,
		PaymentMode:   "Cash",
		Date:          time.Now().UTC(),
	}

	rec, body := f.do(t, http.MethodPost, "/appointments/A1/pay")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A1", f.reconciler.lastID)
	assert.Equal(t, "B1", body["billingId"])
}

func TestPayNotFound(t *testing.T) {
	f := newFixture()
	f.reconciler.err = billing.ErrNotFound
	rec, _ := f.do(t, http.MethodPost, "/appointments/A9/pay")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPayRemotelyDeletedAppointment(t *testing.T) {
	f := newFixture()
	f.reconciler.err = fmt.Errorf("billing: mark appointment A1 paid: %w",
		fmt.Errorf("ledger: appointment A1: %w", ledger.ErrNotFound))

	rec, _ := f.do(t, http.MethodPost, "/appointments/A1/pay")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPayFeeUnavailable(t *testing.T) {
	f := newFixture()
	f.reconciler.err = billing.ErrFeeUnavailable
	rec, _ := f.do(t, http.MethodPost, "/appointments/A1/pay")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPayLedgerDown(t *testing.T) {
	f := newFixture()
	f.reconciler.err = ledger.ErrUnavailable
	rec, _ := f.do(t, http.MethodPost, "/appointments/A1/pay")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPayPartialWriteSurfacesBothIDs(t *testing.T) {
	f := newFixture()
	f.reconciler.err = &billing.PartialWriteError{
		AppointmentID: "A1",
		BillingID:     "B1",
		Err:           errors.New("write throttled"),
	}

	rec, body := f.do(t, http.MethodPost, "/appointments/A1/pay")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, true, body["partialWrite"])
	assert.Equal(t, "A1", body["appointmentId"])
	assert.Equal(t, "B1", body["billingId"])
}

func TestEnsureArtifactOK(t *testing.T) {
	f := newFixture()
	f.billings.record = &billing.Billing{BillingID: "B1"}
	f.generator.handle = "https://bills.example/bills/bill_B1_1.pdf"

	rec, body := f.do(t, http.MethodPost, "/billings/B1/artifact")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.generator.handle, body["billURL"])
}

func TestEnsureArtifactRecordMissing(t *testing.T) {
	f := newFixture()
	f.billings.err = ledger.ErrNotFound
	rec, _ := f.do(t, http.MethodPost, "/billings/B9/artifact")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnsureArtifactPersistFailureReturnsHandle(t *testing.T) {
	f := newFixture()
	f.billings.record = &billing.Billing{BillingID: "B1"}
	f.generator.handle = "https://bills.example/bills/bill_B1_1.pdf"
	f.generator.err = artifact.ErrPersist

	rec, body := f.do(t, http.MethodPost, "/billings/B1/artifact")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["linked"])
	assert.Equal(t, f.generator.handle, body["billURL"])
}

func TestEnsureArtifactUploadFailure(t *testing.T) {
	f := newFixture()
	f.billings.record = &billing.Billing{BillingID: "B1"}
	f.generator.err = artifact.ErrUpload
	rec, _ := f.do(t, http.MethodPost, "/billings/B1/artifact")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestListBillings(t *testing.T) {
	f := newFixture()
	f.history.entries = []billing.Entry{
		{Billing: billing.Billing{BillingID: "B1"}, PatientName: "John Doe", DoctorName: "Dr. Lee (Cardiology)"},
	}

	rec, body := f.do(t, http.MethodGet, "/billings")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])
}

func TestSearchApplied(t *testing.T) {
	f := newFixture()
	f.searcher.matches = []appointments.Appointment{apiAppt("A1", appointments.BillingUnpaid)}

	rec, body := f.do(t, http.MethodGet, "/search?q=john")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "john", f.searcher.lastQuery)
	assert.Len(t, body["appointments"], 1)
	assert.Nil(t, body["superseded"])
}

func TestSearchSuperseded(t *testing.T) {
	f := newFixture()
	f.searcher.applied = false

	rec, body := f.do(t, http.MethodGet, "/search?q=stale")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["superseded"])
	assert.Len(t, body["appointments"], 0)
}

func TestResolveName(t *testing.T) {
	f := newFixture()

	rec, body := f.do(t, http.MethodGet, "/names/doctor/D1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dr. Lee (Cardiology)", body["name"])

	rec, _ = f.do(t, http.MethodGet, "/names/clinic/C1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
