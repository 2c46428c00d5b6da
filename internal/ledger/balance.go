package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finanzas/internal/core"
)

// AvailableBalance reconstructs an account's balance from its event history
// instead of reading the stored value: initial balance plus net incomes,
// minus expenses and outgoing transfers, plus incoming transfers, all dated
// on or before asOf. For a consistent ledger this equals the stored balance
// when asOf is today.
func (s *Service) AvailableBalance(ctx context.Context, accountID int64, asOf time.Time) (int64, error) {
	q := s.repo.Queries()

	account, err := q.GetAccountByID(ctx, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("account %d: %w", accountID, core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get account %d: %w", accountID, err)
	}

	incomes, err := q.SumIncomesThrough(ctx, accountID, asOf)
	if err != nil {
		return 0, fmt.Errorf("sum incomes: %w", err)
	}
	expenses, err := q.SumExpensesThrough(ctx, accountID, asOf)
	if err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	out, err := q.SumTransfersOutThrough(ctx, accountID, asOf)
	if err != nil {
		return 0, fmt.Errorf("sum transfers out: %w", err)
	}
	in, err := q.SumTransfersInThrough(ctx, accountID, asOf)
	if err != nil {
		return 0, fmt.Errorf("sum transfers in: %w", err)
	}

	return account.InitialBalanceCents + incomes - expenses - out + in, nil
}

// RealBalance pairs an account with what is actually free to spend once
// envelope reservations are taken out.
type RealBalance struct {
	Account   core.Account
	RealCents int64
}

// RealBalances computes per-account spendable balances. Envelopes linked to
// an account reduce that account alone; envelope money not linked anywhere
// is spread across accounts in proportion to their stored balances. Results
// never go below zero: over-reserving shows empty accounts, not negatives.
func (s *Service) RealBalances(ctx context.Context) ([]RealBalance, error) {
	q := s.repo.Queries()

	accounts, err := q.ListAccounts(ctx, core.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	envelopes, err := q.ListActiveEnvelopes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}

	linked := make(map[int64]int64)
	var unlinked int64
	for _, env := range envelopes {
		if env.AccountID != nil {
			linked[*env.AccountID] += env.CurrentCents
		} else {
			unlinked += env.CurrentCents
		}
	}

	var total int64
	for _, acc := range accounts {
		total += acc.BalanceCents
	}

	result := make([]RealBalance, 0, len(accounts))
	for _, acc := range accounts {
		real := acc.BalanceCents - linked[acc.ID]
		if unlinked > 0 && total > 0 {
			// Integer share; rounding residue stays spendable.
			real -= unlinked * acc.BalanceCents / total
		} else if unlinked > 0 {
			// Nothing to weight by, so every account is fully reserved.
			real = 0
		}
		if real < 0 {
			real = 0
		}
		result = append(result, RealBalance{Account: acc, RealCents: real})
	}
	return result, nil
}

// ReconcileAccount compares the stored running balance against the
// reconstruction as of now and returns the discrepancy in cents. Zero means
// the ledger is internally consistent for this account.
func (s *Service) ReconcileAccount(ctx context.Context, accountID int64) (int64, error) {
	account, err := s.repo.Queries().GetAccountByID(ctx, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("account %d: %w", accountID, core.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("get account %d: %w", accountID, err)
	}

	reconstructed, err := s.AvailableBalance(ctx, accountID, s.now())
	if err != nil {
		return 0, err
	}
	return account.BalanceCents - reconstructed, nil
}
