package billing

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/carehub-health/billing-core/internal/directory"
	"github.com/carehub-health/billing-core/pkg/logging"
)

// HistoryLedger lists billing records newest-first.
type HistoryLedger interface {
	BillingsByDate(ctx context.Context, limit int) ([]Billing, error)
}

// NameResolver resolves display names, degrading to placeholders.
type NameResolver interface {
	Resolve(ctx context.Context, kind directory.Kind, id string) string
}

// Entry is one payment-history row with resolved display names attached.
type Entry struct {
	Billing
	PatientName string `json:"patientName"`
	DoctorName  string `json:"doctorName"`
}

// History lists past billing records and opportunistically warms the name
// cache for every patient and doctor that appears.
type History struct {
	ledger   HistoryLedger
	resolver NameResolver
	limit    int
	logger   *logging.Logger
}

// NewHistory builds a history lister. limit caps the number of records per
// listing; zero means no cap.
func NewHistory(ledger HistoryLedger, resolver NameResolver, limit int, logger *logging.Logger) *History {
	if logger == nil {
		logger = logging.Default()
	}
	return &History{ledger: ledger, resolver: resolver, limit: limit, logger: logger}
}

// List returns billing records newest-first with display names resolved.
// Name resolution fans out once per distinct id; unresolvable names come
// back as placeholders, never as errors.
func (h *History) List(ctx context.Context) ([]Entry, error) {
	bills, err := h.ledger.BillingsByDate(ctx, h.limit)
	if err != nil {
		return nil, fmt.Errorf("billing: list history: %w", err)
	}

	type key struct {
		kind directory.Kind
		id   string
	}
	wanted := make(map[key]struct{})
	for _, b := range bills {
		if b.PatientID != "" {
			wanted[key{directory.KindPatient, b.PatientID}] = struct{}{}
		}
		if b.DoctorID != "" {
			wanted[key{directory.KindDoctor, b.DoctorID}] = struct{}{}
		}
	}

	var (
		mu    sync.Mutex
		names = make(map[key]string, len(wanted))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for k := range wanted {
		k := k
		g.Go(func() error {
			name := h.resolver.Resolve(gctx, k.kind, k.id)
			mu.Lock()
			names[k] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]Entry, 0, len(bills))
	for _, b := range bills {
		entries = append(entries, Entry{
			Billing:     b,
			PatientName: names[key{directory.KindPatient, b.PatientID}],
			DoctorName:  names[key{directory.KindDoctor, b.DoctorID}],
		})
	}
	return entries, nil
}
