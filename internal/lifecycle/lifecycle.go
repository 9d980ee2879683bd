package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

type Status struct {
	Active  bool
	Premium bool
}

// ComputeStatus derives an institution's entitlement from its contract
// window. Date comparisons are day-granular. With no contract dates at all
// the institution stays under manual control and the current status is
// returned unchanged. payment_status is recorded on the institution but
// does not participate in the transition.
func ComputeStatus(start, end *time.Time, current Status, today time.Time) Status {
	day := dateOnly(today)

	switch {
	case start != nil && end != nil:
		if dateOnly(*start).After(day) {
			return Status{Active: false, Premium: current.Premium}
		}
		if dateOnly(*end).Before(day) {
			return Status{Active: false, Premium: false}
		}
		return Status{Active: true, Premium: current.Premium}
	case end != nil:
		if dateOnly(*end).Before(day) {
			return Status{Active: false, Premium: false}
		}
		return current
	case start != nil:
		if dateOnly(*start).After(day) {
			return Status{Active: false, Premium: current.Premium}
		}
		return Status{Active: true, Premium: current.Premium}
	default:
		return current
	}
}

func dateOnly(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

type Store interface {
	UpdateInstitutionStatus(ctx context.Context, id string, active, premium bool) error
	CascadeMembershipActive(ctx context.Context, institutionID string, active bool) error
}

type Engine struct {
	store  Store
	logger *zap.Logger
}

func NewEngine(store Store, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// ApplyContractUpdate recomputes entitlement after any contract-field
// update. It intentionally overrides a prior manual toggle: manual control
// only holds until the next contract update.
func (e *Engine) ApplyContractUpdate(ctx context.Context, inst *model.Institution, today time.Time) error {
	current := Status{Active: inst.IsActive, Premium: inst.IsPremium}
	next := ComputeStatus(inst.ContractStart, inst.ContractEnd, current, today)
	changed := next != current
	inst.IsActive = next.Active
	inst.IsPremium = next.Premium

	if err := e.store.UpdateInstitutionStatus(ctx, inst.ID, next.Active, next.Premium); err != nil {
		return err
	}
	if changed {
		e.cascade(ctx, inst.ID, next.Active)
	}
	return nil
}

// SetActiveManual bypasses the contract computation entirely; the override
// holds until the next contract update recomputes.
func (e *Engine) SetActiveManual(ctx context.Context, inst *model.Institution, active bool) error {
	changed := inst.IsActive != active
	inst.IsActive = active
	if err := e.store.UpdateInstitutionStatus(ctx, inst.ID, active, inst.IsPremium); err != nil {
		return err
	}
	if changed {
		e.cascade(ctx, inst.ID, active)
	}
	return nil
}

// cascade failures are logged and swallowed: they are not retried and not
// fatal to the institution-row update. Effective permission is computed at
// read time through the membership join, so a missed cascade only delays
// the flag mirror, never the decision.
func (e *Engine) cascade(ctx context.Context, institutionID string, active bool) {
	if err := e.store.CascadeMembershipActive(ctx, institutionID, active); err != nil {
		e.logger.Warn("membership cascade failed",
			zap.String("institution_id", institutionID),
			zap.Bool("active", active),
			zap.Error(err))
	}
}
