package ledger

import (
	"context"
	"testing"
)

func TestRealBalancesWithLinkedEnvelope(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.AddAccount(ctx, "Checking", 100000); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if _, err := s.AddEnvelope(ctx, EnvelopeInput{
		Name:         "Vacaciones",
		TargetCents:  60000,
		CurrentCents: 30000,
		Account:      "Checking",
	}); err != nil {
		t.Fatalf("AddEnvelope: %v", err)
	}

	balances, err := s.RealBalances(ctx)
	if err != nil {
		t.Fatalf("RealBalances: %v", err)
	}
	if len(balances) != 1 {
		t.Fatalf("accounts = %d, want 1", len(balances))
	}
	if balances[0].RealCents != 70000 {
		t.Errorf("real = %d, want 70000", balances[0].RealCents)
	}
	// Envelopes never touch the stored balance.
	if balances[0].Account.BalanceCents != 100000 {
		t.Errorf("stored = %d, want 100000", balances[0].Account.BalanceCents)
	}
}

func TestRealBalancesSpreadsUnlinkedProportionally(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.AddAccount(ctx, "Checking", 75000); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if _, err := s.AddAccount(ctx, "Savings", 25000); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	if _, err := s.AddEnvelope(ctx, EnvelopeInput{
		Name:         "Emergencias",
		TargetCents:  50000,
		CurrentCents: 20000,
	}); err != nil {
		t.Fatalf("AddEnvelope: %v", err)
	}

	balances, err := s.RealBalances(ctx)
	if err != nil {
		t.Fatalf("RealBalances: %v", err)
	}
	byName := make(map[string]int64, len(balances))
	for _, b := range balances {
		byName[b.Account.Name] = b.RealCents
	}
	// 20000 spread 75/25: Checking bears 15000, Savings 5000.
	if byName["Checking"] != 60000 {
		t.Errorf("Checking real = %d, want 60000", byName["Checking"])
	}
	if byName["Savings"] != 20000 {
		t.Errorf("Savings real = %d, want 20000", byName["Savings"])
	}
}

func TestRealBalancesClampAtZero(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.AddAccount(ctx, "Checking", 10000); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	// Reserve more than the account holds.
	if _, err := s.AddEnvelope(ctx, EnvelopeInput{
		Name:         "Coche",
		TargetCents:  500000,
		CurrentCents: 50000,
		Account:      "Checking",
	}); err != nil {
		t.Fatalf("AddEnvelope: %v", err)
	}

	balances, err := s.RealBalances(ctx)
	if err != nil {
		t.Fatalf("RealBalances: %v", err)
	}
	if balances[0].RealCents != 0 {
		t.Errorf("real = %d, want 0 (clamped)", balances[0].RealCents)
	}
}

func TestDeactivatedEnvelopeReleasesReservation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.AddAccount(ctx, "Checking", 50000); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	envelope, err := s.AddEnvelope(ctx, EnvelopeInput{
		Name:         "Regalos",
		TargetCents:  20000,
		CurrentCents: 20000,
		Account:      "Checking",
	})
	if err != nil {
		t.Fatalf("AddEnvelope: %v", err)
	}
	if err := s.DeactivateEnvelope(ctx, envelope.ID); err != nil {
		t.Fatalf("DeactivateEnvelope: %v", err)
	}

	balances, err := s.RealBalances(ctx)
	if err != nil {
		t.Fatalf("RealBalances: %v", err)
	}
	if balances[0].RealCents != 50000 {
		t.Errorf("real = %d, want 50000", balances[0].RealCents)
	}
}

func TestFundEnvelope(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	envelope, err := s.AddEnvelope(ctx, EnvelopeInput{Name: "Viaje", TargetCents: 100000})
	if err != nil {
		t.Fatalf("AddEnvelope: %v", err)
	}

	if err := s.FundEnvelope(ctx, envelope.ID, 25000); err != nil {
		t.Fatalf("FundEnvelope: %v", err)
	}
	if err := s.FundEnvelope(ctx, envelope.ID, -10000); err != nil {
		t.Fatalf("FundEnvelope release: %v", err)
	}

	got, err := s.repo.Queries().GetEnvelope(ctx, envelope.ID)
	if err != nil {
		t.Fatalf("GetEnvelope: %v", err)
	}
	if got.CurrentCents != 15000 {
		t.Errorf("current = %d, want 15000", got.CurrentCents)
	}

	if err := s.FundEnvelope(ctx, envelope.ID, -99999); err == nil {
		t.Error("overdraw accepted, want error")
	}
}

func TestSetEnvelopeRollover(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	envelope, err := s.AddEnvelope(ctx, EnvelopeInput{
		Name: "Ocio mensual", TargetCents: 10000, CurrentCents: 6000,
	})
	if err != nil {
		t.Fatalf("AddEnvelope: %v", err)
	}
	if err := s.SetEnvelopeRollover(ctx, envelope.ID, true); err != nil {
		t.Fatalf("SetEnvelopeRollover: %v", err)
	}

	// Now a reset leaves it alone.
	reset, err := s.ResetEnvelopes(ctx)
	if err != nil {
		t.Fatalf("ResetEnvelopes: %v", err)
	}
	if reset != 0 {
		t.Errorf("reset = %d, want 0", reset)
	}

	if err := s.SetEnvelopeRollover(ctx, 9999, true); err == nil {
		t.Error("missing envelope accepted")
	}
}

func TestResetEnvelopesHonorsRollover(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	keeper, err := s.AddEnvelope(ctx, EnvelopeInput{
		Name: "Emergencias", TargetCents: 100000, CurrentCents: 40000, Rollover: true,
	})
	if err != nil {
		t.Fatalf("AddEnvelope: %v", err)
	}
	monthly, err := s.AddEnvelope(ctx, EnvelopeInput{
		Name: "Ocio mensual", TargetCents: 10000, CurrentCents: 6000,
	})
	if err != nil {
		t.Fatalf("AddEnvelope: %v", err)
	}

	reset, err := s.ResetEnvelopes(ctx)
	if err != nil {
		t.Fatalf("ResetEnvelopes: %v", err)
	}
	if reset != 1 {
		t.Errorf("reset = %d, want 1", reset)
	}

	kept, _ := s.repo.Queries().GetEnvelope(ctx, keeper.ID)
	if kept.CurrentCents != 40000 {
		t.Errorf("rollover envelope = %d, want 40000", kept.CurrentCents)
	}
	zeroed, _ := s.repo.Queries().GetEnvelope(ctx, monthly.ID)
	if zeroed.CurrentCents != 0 {
		t.Errorf("monthly envelope = %d, want 0", zeroed.CurrentCents)
	}
}
