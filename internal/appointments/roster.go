package appointments

import "sync"

// Roster holds the currently loaded appointments. The paid/unpaid partitions
// are derived views recomputed from billingStatus on every read; the single
// source list is the only stored state. All mutation goes through the
// roster's lock, which is the serialization point for partition updates.
type Roster struct {
	mu    sync.RWMutex
	appts []Appointment
}

// NewRoster returns an empty roster.
func NewRoster() *Roster {
	return &Roster{}
}

// Replace swaps the source list wholesale, e.g. after a fresh scope load.
func (r *Roster) Replace(appts []Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appts = make([]Appointment, len(appts))
	copy(r.appts, appts)
}

// All returns a copy of the source list.
func (r *Roster) All() []Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Appointment, len(r.appts))
	copy(out, r.appts)
	return out
}

// Paid returns the appointments whose billingStatus is paid.
func (r *Roster) Paid() []Appointment {
	return r.filter(true)
}

// Unpaid returns the appointments whose billingStatus is not paid.
func (r *Roster) Unpaid() []Appointment {
	return r.filter(false)
}

// FindUnpaid looks up an appointment in the unpaid partition.
func (r *Roster) FindUnpaid(appointmentID string) (Appointment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.appts {
		if a.ID == appointmentID && !a.Paid() {
			return a, true
		}
	}
	return Appointment{}, false
}

// MarkPaid flips one appointment to paid with the derived amount. It reports
// false if the appointment is absent or already paid.
func (r *Roster) MarkPaid(appointmentID string, amount float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.appts {
		if r.appts[i].ID != appointmentID || r.appts[i].Paid() {
			continue
		}
		r.appts[i].BillingStatus = BillingPaid
		r.appts[i].Amount = &amount
		return true
	}
	return false
}

func (r *Roster) filter(paid bool) []Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.Paid() == paid {
			out = append(out, a)
		}
	}
	return out
}
