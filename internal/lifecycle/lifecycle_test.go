package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

func date(value string) *time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &parsed
}

func TestComputeStatusContractWindow(t *testing.T) {
	start := date("2025-01-01")
	end := date("2025-12-31")

	cases := []struct {
		name    string
		start   *time.Time
		end     *time.Time
		current Status
		today   string
		expect  Status
	}{
		{"within window is active", start, end, Status{Active: false, Premium: true}, "2025-06-01", Status{Active: true, Premium: true}},
		{"before start is pending", start, end, Status{Active: true, Premium: true}, "2024-12-31", Status{Active: false, Premium: true}},
		{"after end expires and drops premium", start, end, Status{Active: true, Premium: true}, "2026-01-15", Status{Active: false, Premium: false}},
		{"window boundaries are inclusive", start, end, Status{}, "2025-01-01", Status{Active: true}},
		{"end only, not yet expired, unchanged", nil, end, Status{Active: true, Premium: true}, "2025-06-01", Status{Active: true, Premium: true}},
		{"end only, expired", nil, end, Status{Active: true, Premium: true}, "2026-01-01", Status{Active: false, Premium: false}},
		{"start only, reached", start, nil, Status{Active: false, Premium: true}, "2025-02-01", Status{Active: true, Premium: true}},
		{"start only, future", start, nil, Status{Active: true}, "2024-06-01", Status{Active: false}},
		{"no dates stays manual", nil, nil, Status{Active: true, Premium: true}, "2025-06-01", Status{Active: true, Premium: true}},
	}

	for _, tc := range cases {
		got := ComputeStatus(tc.start, tc.end, tc.current, *date(tc.today))
		if got != tc.expect {
			t.Fatalf("%s: expected %+v, got %+v", tc.name, tc.expect, got)
		}
	}
}

func TestComputeStatusDeterministic(t *testing.T) {
	start := date("2025-01-01")
	end := date("2025-12-31")
	first := ComputeStatus(start, end, Status{Premium: true}, *date("2025-06-01"))
	for i := 0; i < 10; i++ {
		if got := ComputeStatus(start, end, Status{Premium: true}, *date("2025-06-01")); got != first {
			t.Fatalf("expected identical output on identical input, got %+v then %+v", first, got)
		}
	}
}

type fakeLifecycleStore struct {
	statusCalls  int
	lastActive   bool
	lastPremium  bool
	cascadeCalls int
	cascadeErr   error
	statusErr    error
}

func (f *fakeLifecycleStore) UpdateInstitutionStatus(_ context.Context, _ string, active, premium bool) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statusCalls++
	f.lastActive = active
	f.lastPremium = premium
	return nil
}

func (f *fakeLifecycleStore) CascadeMembershipActive(_ context.Context, _ string, _ bool) error {
	f.cascadeCalls++
	return f.cascadeErr
}

func TestContractUpdateOverridesManualToggle(t *testing.T) {
	store := &fakeLifecycleStore{}
	engine := NewEngine(store, zap.NewNop())

	inst := &model.Institution{
		ID:            "inst-1",
		ContractStart: date("2025-01-01"),
		ContractEnd:   date("2025-12-31"),
		IsActive:      true,
		IsPremium:     true,
	}

	// Manual deactivation holds on its own.
	if err := engine.SetActiveManual(context.Background(), inst, false); err != nil {
		t.Fatalf("manual toggle error: %v", err)
	}
	if inst.IsActive {
		t.Fatalf("expected manual toggle to deactivate")
	}

	// The next contract update recomputes and wins over the toggle.
	if err := engine.ApplyContractUpdate(context.Background(), inst, *date("2025-06-01")); err != nil {
		t.Fatalf("contract update error: %v", err)
	}
	if !inst.IsActive {
		t.Fatalf("expected contract recomputation to override manual toggle")
	}
	if !store.lastActive {
		t.Fatalf("expected active status persisted")
	}
}

func TestCascadeFailureIsNotFatal(t *testing.T) {
	store := &fakeLifecycleStore{cascadeErr: errors.New("boom")}
	engine := NewEngine(store, zap.NewNop())

	inst := &model.Institution{ID: "inst-1", ContractEnd: date("2020-01-01"), IsActive: true, IsPremium: true}
	if err := engine.ApplyContractUpdate(context.Background(), inst, *date("2025-06-01")); err != nil {
		t.Fatalf("expected cascade failure to be swallowed, got %v", err)
	}
	if store.cascadeCalls != 1 {
		t.Fatalf("expected one cascade attempt, got %d", store.cascadeCalls)
	}
	if inst.IsActive || inst.IsPremium {
		t.Fatalf("expected expired institution to lose active and premium")
	}
}

func TestUnchangedStatusSkipsCascade(t *testing.T) {
	store := &fakeLifecycleStore{}
	engine := NewEngine(store, zap.NewNop())

	inst := &model.Institution{ID: "inst-1", ContractStart: date("2025-01-01"), ContractEnd: date("2025-12-31"), IsActive: true}
	if err := engine.ApplyContractUpdate(context.Background(), inst, *date("2025-06-01")); err != nil {
		t.Fatalf("contract update error: %v", err)
	}
	if store.cascadeCalls != 0 {
		t.Fatalf("expected no cascade when status did not change, got %d", store.cascadeCalls)
	}
}
