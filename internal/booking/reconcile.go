package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/harentsoaR/clinic-api/internal/models"
	"github.com/harentsoaR/clinic-api/internal/store"
)

// AuditSource is the read side the Reconciler needs.
type AuditSource interface {
	store.LedgerRepository
	store.AppointmentRepository
}

// Discrepancy is one slot on which the ledger and the appointments disagree.
type Discrepancy struct {
	Slot          models.SlotKey `json:"slot"`
	AppointmentID string         `json:"appointmentId,omitempty"`
}

type Report struct {
	CheckedAt   time.Time `json:"checkedAt"`
	LedgerSlots int       `json:"ledgerSlots"`
	HeldSlots   int       `json:"heldSlots"`
	// Orphaned ledger entries have no appointment holding their slot.
	Orphaned []Discrepancy `json:"orphaned"`
	// Missing lists slot-holding appointments with no ledger entry.
	Missing []Discrepancy `json:"missing"`
}

func (r Report) Consistent() bool {
	return len(r.Orphaned) == 0 && len(r.Missing) == 0
}

// Reconciler audits the slot ledger against the appointments. It only reads,
// and the two reads are not a snapshot, so a booking racing the audit can
// show up as a transient discrepancy.
type Reconciler struct {
	src    AuditSource
	logger zerolog.Logger
	now    func() time.Time
}

func NewReconciler(src AuditSource, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		src:    src,
		logger: logger.With().Str("component", "reconciler").Logger(),
		now:    time.Now,
	}
}

func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	entries, err := r.src.ListSlotEntries(ctx, "")
	if err != nil {
		return Report{}, fmt.Errorf("list ledger: %w", err)
	}
	appts, err := r.src.ListAppointments(ctx, models.AppointmentFilter{})
	if err != nil {
		return Report{}, fmt.Errorf("list appointments: %w", err)
	}

	held := make(map[models.SlotKey]string)
	for i := range appts {
		if appts[i].HoldsSlot() {
			held[appts[i].SlotKey()] = appts[i].ID.Hex()
		}
	}
	ledger := make(map[models.SlotKey]string, len(entries))
	for _, e := range entries {
		ledger[e.Key()] = e.AppointmentID
	}

	report := Report{
		CheckedAt:   r.now().UTC(),
		LedgerSlots: len(ledger),
		HeldSlots:   len(held),
		Orphaned:    make([]Discrepancy, 0),
		Missing:     make([]Discrepancy, 0),
	}
	for _, e := range entries {
		if _, ok := held[e.Key()]; !ok {
			report.Orphaned = append(report.Orphaned, Discrepancy{Slot: e.Key(), AppointmentID: e.AppointmentID})
		}
	}
	for i := range appts {
		a := &appts[i]
		if !a.HoldsSlot() {
			continue
		}
		if _, ok := ledger[a.SlotKey()]; !ok {
			report.Missing = append(report.Missing, Discrepancy{Slot: a.SlotKey(), AppointmentID: a.ID.Hex()})
		}
	}

	ev := r.logger.Info()
	if !report.Consistent() {
		ev = r.logger.Warn()
	}
	ev.Int("ledger_slots", report.LedgerSlots).
		Int("held_slots", report.HeldSlots).
		Int("orphaned", len(report.Orphaned)).
		Int("missing", len(report.Missing)).
		Msg("slot ledger audited")
	return report, nil
}
