package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/carehub-health/billing-core/internal/observability/metrics"
	"github.com/carehub-health/billing-core/pkg/logging"
)

// Kind selects which directory collection an identifier belongs to.
type Kind string

const (
	KindPatient Kind = "patient"
	KindDoctor  Kind = "doctor"
)

// Ledger is the slice of the remote ledger the resolver reads names from.
type Ledger interface {
	PatientName(ctx context.Context, patientID string) (string, error)
	DoctorProfile(ctx context.Context, doctorID string) (name, department string, err error)
}

// Resolver memoizes resolved display names for patient and doctor ids.
// Entries are advisory and live for the process lifetime; a failed lookup is
// never cached, so a later successful resolution can still land.
type Resolver struct {
	ledger  Ledger
	metrics *metrics.BillingMetrics
	logger  *logging.Logger

	mu    sync.RWMutex
	names map[Kind]map[string]string
}

// NewResolver builds a resolver over the given ledger.
func NewResolver(ledger Ledger, m *metrics.BillingMetrics, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		ledger:  ledger,
		metrics: m,
		logger:  logger,
		names: map[Kind]map[string]string{
			KindPatient: {},
			KindDoctor:  {},
		},
	}
}

// Lookup returns the resolved display name, consulting the cache first. The
// cache is written on success only.
func (r *Resolver) Lookup(ctx context.Context, kind Kind, id string) (string, error) {
	if name, ok := r.cached(kind, id); ok {
		r.metrics.ObserveNameLookup(string(kind), "hit")
		return name, nil
	}

	name, err := r.fetch(ctx, kind, id)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.names[kind][id] = name
	r.mu.Unlock()
	r.metrics.ObserveNameLookup(string(kind), "miss")
	return name, nil
}

// Resolve is Lookup degraded to a displayable placeholder on failure. The
// placeholder is valid output, never cached, and never an error.
func (r *Resolver) Resolve(ctx context.Context, kind Kind, id string) string {
	name, err := r.Lookup(ctx, kind, id)
	if err != nil {
		r.logger.Debug("name lookup failed, using placeholder", "kind", kind, "id", id, "error", err)
		r.metrics.ObserveNameLookup(string(kind), "fallback")
		return Placeholder(kind)
	}
	return name
}

// Placeholder is the non-authoritative display value used when a name cannot
// be resolved.
func Placeholder(kind Kind) string {
	if kind == KindDoctor {
		return "Unknown Doctor"
	}
	return "Unknown Patient"
}

func (r *Resolver) cached(kind Kind, id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[kind][id]
	return name, ok
}

func (r *Resolver) fetch(ctx context.Context, kind Kind, id string) (string, error) {
	switch kind {
	case KindPatient:
		name, err := r.ledger.PatientName(ctx, id)
		if err != nil {
			return "", fmt.Errorf("directory: patient %s: %w", id, err)
		}
		if strings.TrimSpace(name) == "" {
			return "", fmt.Errorf("directory: patient %s has no name on record", id)
		}
		return name, nil
	case KindDoctor:
		name, department, err := r.ledger.DoctorProfile(ctx, id)
		if err != nil {
			return "", fmt.Errorf("directory: doctor %s: %w", id, err)
		}
		if strings.TrimSpace(name) == "" {
			return "", fmt.Errorf("directory: doctor %s has no name on record", id)
		}
		display := "Dr. " + name
		if department != "" {
			display += " (" + department + ")"
		}
		return display, nil
	default:
		return "", fmt.Errorf("directory: unknown kind %q", kind)
	}
}
