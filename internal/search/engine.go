package search

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carehub-health/billing-core/internal/appointments"
	"github.com/carehub-health/billing-core/internal/directory"
	"github.com/carehub-health/billing-core/internal/observability/metrics"
	"github.com/carehub-health/billing-core/pkg/logging"
)

// Resolver resolves a display name for a patient or doctor id. Failures mean
// the name is unknown; they never match a query.
type Resolver interface {
	Lookup(ctx context.Context, kind directory.Kind, id string) (string, error)
}

// Engine correlates a free-text query against appointments by resolving
// patient and doctor names concurrently. Invocations are tagged with a
// monotonic counter; only the newest invocation may publish its result, so a
// query issued mid-flight supersedes the older one (last-invocation-wins).
type Engine struct {
	resolver    Resolver
	metrics     *metrics.BillingMetrics
	logger      *logging.Logger
	lookupLimit int

	invocations atomic.Uint64

	mu      sync.Mutex
	visible []appointments.Appointment
}

// NewEngine builds a search engine. lookupLimit caps concurrent name
// lookups; zero means unlimited.
func NewEngine(resolver Resolver, lookupLimit int, m *metrics.BillingMetrics, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		resolver:    resolver,
		metrics:     m,
		logger:      logger,
		lookupLimit: lookupLimit,
	}
}

// Search runs one invocation to completion and reports whether its result
// was applied to the visible set. A false return means a newer invocation
// superseded this one and its result was discarded.
//
// An empty query matches every candidate without any remote calls.
// Candidates whose patient or doctor id already contains the query are
// retained by the synchronous prefilter; every remaining candidate fans out
// two concurrent name lookups, and matches are collected in arrival order.
func (e *Engine) Search(ctx context.Context, query string, candidates []appointments.Appointment) ([]appointments.Appointment, bool) {
	start := time.Now()
	inv := e.invocations.Add(1)

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return e.publish(inv, candidates, start)
	}

	var (
		matchMu sync.Mutex
		seen    = make(map[string]bool, len(candidates))
		matches []appointments.Appointment
	)
	add := func(a appointments.Appointment) {
		matchMu.Lock()
		if !seen[a.ID] {
			seen[a.ID] = true
			matches = append(matches, a)
		}
		matchMu.Unlock()
	}

	var remaining []appointments.Appointment
	for _, a := range candidates {
		if strings.Contains(strings.ToLower(a.PatientID), q) ||
			strings.Contains(strings.ToLower(a.DoctorID), q) {
			add(a)
			continue
		}
		remaining = append(remaining, a)
	}

	g, gctx := errgroup.WithContext(ctx)
	if e.lookupLimit > 0 {
		g.SetLimit(e.lookupLimit)
	}
	for _, a := range remaining {
		appt := a
		nameCheck := func(kind directory.Kind, id string) func() error {
			return func() error {
				name, err := e.resolver.Lookup(gctx, kind, id)
				if err != nil {
					return nil
				}
				if strings.Contains(strings.ToLower(name), q) {
					add(appt)
				}
				return nil
			}
		}
		g.Go(nameCheck(directory.KindPatient, appt.PatientID))
		g.Go(nameCheck(directory.KindDoctor, appt.DoctorID))
	}
	// Fan-in barrier: every resolution pair must complete before the result
	// set is published. Lookup tasks never return errors.
	_ = g.Wait()

	return e.publish(inv, matches, start)
}

// Current returns the visible result set of the newest completed invocation.
func (e *Engine) Current() []appointments.Appointment {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]appointments.Appointment, len(e.visible))
	copy(out, e.visible)
	return out
}

func (e *Engine) publish(inv uint64, matches []appointments.Appointment, start time.Time) ([]appointments.Appointment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if inv != e.invocations.Load() {
		e.logger.Debug("discarding superseded search invocation", "invocation", inv)
		e.metrics.ObserveSearch("superseded", time.Since(start).Seconds())
		return nil, false
	}
	e.visible = matches
	e.metrics.ObserveSearch("applied", time.Since(start).Seconds())
	return matches, true
}
