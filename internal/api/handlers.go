package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carehub-health/billing-core/internal/appointments"
	"github.com/carehub-health/billing-core/internal/artifact"
	"github.com/carehub-health/billing-core/internal/billing"
	"github.com/carehub-health/billing-core/internal/directory"
	"github.com/carehub-health/billing-core/internal/ledger"
	"github.com/carehub-health/billing-core/internal/observability/metrics"
	"github.com/carehub-health/billing-core/pkg/logging"
)

// Loader loads appointments for a scope.
type Loader interface {
	LoadForPatient(ctx context.Context, patientID string) ([]appointments.Appointment, error)
	LoadForToday(ctx context.Context) ([]appointments.Appointment, error)
}

// Reconciler performs the unpaid -> paid transition.
type Reconciler interface {
	MarkPaid(ctx context.Context, appointmentID string) (*billing.Billing, error)
}

// Generator produces and links bill artifacts.
type Generator interface {
	EnsureArtifact(ctx context.Context, b *billing.Billing) (string, error)
}

// BillingReader fetches one billing record.
type BillingReader interface {
	BillingByID(ctx context.Context, billingID string) (*billing.Billing, error)
}

// HistoryLister lists payment history.
type HistoryLister interface {
	List(ctx context.Context) ([]billing.Entry, error)
}

// Searcher runs one correlation-search invocation.
type Searcher interface {
	Search(ctx context.Context, query string, candidates []appointments.Appointment) ([]appointments.Appointment, bool)
}

// NameResolver resolves display names, degrading to placeholders.
type NameResolver interface {
	Resolve(ctx context.Context, kind directory.Kind, id string) string
}

// Handler exposes the billing core over HTTP.
type Handler struct {
	repo       Loader
	roster     *appointments.Roster
	reconciler Reconciler
	generator  Generator
	billings   BillingReader
	history    HistoryLister
	engine     Searcher
	resolver   NameResolver
	metrics    *metrics.BillingMetrics
	logger     *logging.Logger
}

// HandlerConfig wires the handler's collaborators.
type HandlerConfig struct {
	Repo       Loader
	Roster     *appointments.Roster
	Reconciler Reconciler
	Generator  Generator
	Billings   BillingReader
	History    HistoryLister
	Engine     Searcher
	Resolver   NameResolver
	Metrics    *metrics.BillingMetrics
	Logger     *logging.Logger
}

// NewHandler creates the API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:       cfg.Repo,
		roster:     cfg.Roster,
		reconciler: cfg.Reconciler,
		generator:  cfg.Generator,
		billings:   cfg.Billings,
		history:    cfg.History,
		engine:     cfg.Engine,
		resolver:   cfg.Resolver,
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListAppointments handles GET /appointments. The loaded scope replaces the
// roster; the response carries the derived paid/unpaid partitions.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.loadScope(r)
	if err != nil {
		h.logger.Error("failed to load appointments", "error", err)
		writeLoadError(w, err)
		return
	}
	h.roster.Replace(appts)

	writeJSON(w, http.StatusOK, map[string]any{
		"paid":   emptyIfNil(h.roster.Paid()),
		"unpaid": emptyIfNil(h.roster.Unpaid()),
	})
}

// Pay handles POST /appointments/{appointmentID}/pay.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "appointmentID")
	record, err := h.reconciler.MarkPaid(r.Context(), appointmentID)

	var partial *billing.PartialWriteError
	switch {
	case errors.As(err, &partial):
		// The appointment is durably paid but the record is missing. Repair
		// tooling needs both ids, so surface them distinctly.
		h.logger.Error("partial write during reconciliation",
			"appointment_id", partial.AppointmentID,
			"billing_id", partial.BillingID,
			"error", err,
		)
		h.metrics.ObservePay("partial_write")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":         "billing record write failed after appointment update",
			"partialWrite":  true,
			"appointmentId": partial.AppointmentID,
			"billingId":     partial.BillingID,
		})
	case errors.Is(err, billing.ErrNotFound), errors.Is(err, ledger.ErrNotFound):
		// ledger.ErrNotFound means the roster was stale: the appointment is
		// gone remotely. Either way the id cannot be paid.
		h.metrics.ObservePay("not_found")
		writeError(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, billing.ErrFeeUnavailable):
		h.metrics.ObservePay("fee_unavailable")
		writeError(w, http.StatusUnprocessableEntity, "consultation fee unavailable")
	case errors.Is(err, ledger.ErrUnavailable):
		h.metrics.ObservePay("remote_unavailable")
		writeError(w, http.StatusBadGateway, "ledger unavailable")
	case err != nil:
		h.logger.Error("failed to mark appointment paid", "appointment_id", appointmentID, "error", err)
		h.metrics.ObservePay("error")
		writeError(w, http.StatusInternalServerError, "failed to mark appointment paid")
	default:
		h.metrics.ObservePay("ok")
		writeJSON(w, http.StatusOK, record)
	}
}

// EnsureArtifact handles POST /billings/{billingID}/artifact.
func (h *Handler) EnsureArtifact(w http.ResponseWriter, r *http.Request) {
	billingID := chi.URLParam(r, "billingID")
	record, err := h.billings.BillingByID(r.Context(), billingID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeError(w, http.StatusNotFound, "billing record not found")
			return
		}
		h.logger.Error("failed to fetch billing record", "billing_id", billingID, "error", err)
		writeError(w, http.StatusBadGateway, "ledger unavailable")
		return
	}

	handle, err := h.generator.EnsureArtifact(r.Context(), record)
	switch {
	case errors.Is(err, artifact.ErrPersist):
		// Artifact exists but the record does not point at it yet; return
		// the handle so the caller can retry the link step alone.
		h.logger.Error("artifact generated but unlinked", "billing_id", billingID, "error", err)
		h.metrics.ObserveArtifact("persist_failed")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "artifact generated but not linked",
			"billURL": handle,
			"linked":  false,
		})
	case errors.Is(err, artifact.ErrUpload):
		h.metrics.ObserveArtifact("upload_failed")
		writeError(w, http.StatusBadGateway, "artifact upload failed")
	case err != nil:
		h.logger.Error("failed to generate artifact", "billing_id", billingID, "error", err)
		h.metrics.ObserveArtifact("render_failed")
		writeError(w, http.StatusInternalServerError, "artifact generation failed")
	default:
		h.metrics.ObserveArtifact("ok")
		writeJSON(w, http.StatusOK, map[string]string{"billURL": handle})
	}
}

// ListBillings handles GET /billings.
func (h *Handler) ListBillings(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list billings", "error", err)
		writeLoadError(w, err)
		return
	}
	if entries == nil {
		entries = []billing.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"billings": entries,
		"count":    len(entries),
	})
}

// SearchAppointments handles GET /search.
func (h *Handler) SearchAppointments(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.loadScope(r)
	if err != nil {
		h.logger.Error("failed to load search candidates", "error", err)
		writeLoadError(w, err)
		return
	}

	query := r.URL.Query().Get("q")
	matches, applied := h.engine.Search(r.Context(), query, candidates)
	if !applied {
		writeJSON(w, http.StatusOK, map[string]any{
			"superseded":   true,
			"appointments": []appointments.Appointment{},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": emptyIfNil(matches),
		"count":        len(matches),
	})
}

// ResolveName handles GET /names/{kind}/{id}.
func (h *Handler) ResolveName(w http.ResponseWriter, r *http.Request) {
	kind := directory.Kind(chi.URLParam(r, "kind"))
	if kind != directory.KindPatient && kind != directory.KindDoctor {
		writeError(w, http.StatusBadRequest, "kind must be patient or doctor")
		return
	}
	id := chi.URLParam(r, "id")
	name := h.resolver.Resolve(r.Context(), kind, id)
	writeJSON(w, http.StatusOK, map[string]string{
		"kind": string(kind),
		"id":   id,
		"name": name,
	})
}

func (h *Handler) loadScope(r *http.Request) ([]appointments.Appointment, error) {
	if patientID := r.URL.Query().Get("patientId"); patientID != "" {
		return h.repo.LoadForPatient(r.Context(), patientID)
	}
	return h.repo.LoadForToday(r.Context())
}

func writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, ledger.ErrUnavailable) {
		writeError(w, http.StatusBadGateway, "ledger unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func emptyIfNil(appts []appointments.Appointment) []appointments.Appointment {
	if appts == nil {
		return []appointments.Appointment{}
	}
	return appts
}
