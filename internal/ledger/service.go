// Package ledger implements the account-balance mutation engine: every
// financial event mutates the stored running balance inside one storage
// transaction, and every delete is exactly reversible.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/storage"
	"finanzas/internal/undo"
)

// Service applies and reverses the balance effect of every event kind. One
// exclusive transaction per operation; isolation comes entirely from the
// store's commit/rollback, never from application locks.
type Service struct {
	repo   *storage.Repository
	events *amqp.Client
	undo   *undo.Stack
	now    func() time.Time
}

// NewService wires the engine to its store, an optional event publisher, and
// the session-scoped undo stack.
func NewService(repo *storage.Repository, events *amqp.Client, undoStack *undo.Stack) *Service {
	if undoStack == nil {
		undoStack = undo.NewStack()
	}
	return &Service{
		repo:   repo,
		events: events,
		undo:   undoStack,
		now:    time.Now,
	}
}

// Repo exposes the underlying store for read-side collaborators.
func (s *Service) Repo() *storage.Repository {
	return s.repo
}

// ----------------------------- accounts -----------------------------

// AddAccount creates an account with the given opening balance. The name must
// be unique among all accounts, active or inactive.
func (s *Service) AddAccount(ctx context.Context, name string, initialBalanceCents int64) (core.Account, error) {
	if strings.TrimSpace(name) == "" {
		return core.Account{}, core.ErrEmptyName
	}

	var account core.Account
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		_, err := q.GetAccountByName(ctx, name)
		if err == nil {
			return fmt.Errorf("account %q: %w", name, core.ErrDuplicate)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("get account %q: %w", name, err)
		}
		account, err = q.CreateAccount(ctx, name, initialBalanceCents)
		if err != nil {
			return fmt.Errorf("create account %q: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}

	slog.InfoContext(ctx, "Account created",
		"id", account.ID,
		"name", account.Name,
		"balance_cents", account.BalanceCents)
	return account, nil
}

// CorrectAccountBalance overwrites the stored balance with a manual value.
// The reconstruction baseline shifts by the same delta, so event replay stays
// equivalent to the stored balance after the correction.
func (s *Service) CorrectAccountBalance(ctx context.Context, accountID, newBalanceCents int64) error {
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		account, err := q.GetAccountByID(ctx, accountID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("account %d: %w", accountID, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get account %d: %w", accountID, err)
		}
		delta := newBalanceCents - account.BalanceCents
		return q.UpdateAccountBalances(ctx, accountID, newBalanceCents, account.InitialBalanceCents+delta)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventAccountCorrected, accountID, accountID))
	return nil
}

// DeactivateAccount soft-deletes an account. Balance and history are kept;
// the account simply drops out of active listings.
func (s *Service) DeactivateAccount(ctx context.Context, accountID int64) error {
	return s.repo.WithTx(ctx, func(q *storage.Queries) error {
		_, err := q.GetAccountByID(ctx, accountID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("account %d: %w", accountID, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get account %d: %w", accountID, err)
		}
		return q.SetAccountStatus(ctx, accountID, core.StatusInactive)
	})
}

// ----------------------------- expenses -----------------------------

// ExpenseInput names the account, category and tag rather than carrying ids;
// all three resolve with get-or-create semantics.
type ExpenseInput struct {
	Date        time.Time
	Account     string
	Description string
	Category    string
	Type        core.ExpenseType
	Tag         string
	AmountCents int64
	RecurringID *int64
}

// AddExpense inserts the expense and subtracts its amount from the owning
// account's balance, atomically.
func (s *Service) AddExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	draft := core.Expense{
		Date:        in.Date,
		Description: in.Description,
		Type:        in.Type,
		AmountCents: in.AmountCents,
	}
	if err := draft.Validate(); err != nil {
		return core.Expense{}, err
	}
	if strings.TrimSpace(in.Account) == "" {
		return core.Expense{}, core.ErrEmptyName
	}

	var expense core.Expense
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		account, err := storage.GetOrCreateAccount(ctx, q, in.Account)
		if err != nil {
			return err
		}
		categoryID, err := storage.GetOrCreateCategory(ctx, q, in.Category)
		if err != nil {
			return err
		}
		tagID, err := storage.GetOrCreateTag(ctx, q, in.Tag)
		if err != nil {
			return err
		}
		expense, err = q.CreateExpense(ctx, storage.CreateExpenseParams{
			Date:        in.Date,
			AccountID:   account.ID,
			Description: in.Description,
			CategoryID:  categoryID,
			Type:        in.Type,
			TagID:       tagID,
			AmountCents: in.AmountCents,
			RecurringID: in.RecurringID,
		})
		if err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		return q.AdjustAccountBalance(ctx, account.ID, -in.AmountCents)
	})
	if err != nil {
		return core.Expense{}, err
	}

	slog.InfoContext(ctx, "Expense added",
		"id", expense.ID,
		"account", in.Account,
		"amount_cents", expense.AmountCents,
		"date", expense.Date.Format("2006-01-02"))
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventExpenseAdded, expense.ID, expense.AccountID))
	return expense, nil
}

// DeleteExpense removes the expense, adds its amount back to the owning
// account (exact reversal), and records an undo snapshot.
func (s *Service) DeleteExpense(ctx context.Context, id int64) error {
	var snapshot core.Expense
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		expense, err := q.GetExpense(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get expense %d: %w", id, err)
		}
		snapshot = expense
		if err := q.AdjustAccountBalance(ctx, expense.AccountID, expense.AmountCents); err != nil {
			return fmt.Errorf("reverse balance: %w", err)
		}
		if err := q.DeleteExpense(ctx, id); err != nil {
			return fmt.Errorf("delete expense %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.undo.PushDeleteExpense(snapshot)
	slog.InfoContext(ctx, "Expense deleted",
		"id", id,
		"amount_cents", snapshot.AmountCents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventExpenseDeleted, id, snapshot.AccountID))
	return nil
}

// ----------------------------- incomes -----------------------------

type IncomeInput struct {
	Date        time.Time
	Account     string
	Description string
	Source      string
	GrossCents  int64
	NetCents    int64
}

// AddIncome inserts the income; the net amount reaches the account balance
// only when the income date is not in the future. Future-dated incomes stay
// stored with their balance effect deferred.
func (s *Service) AddIncome(ctx context.Context, in IncomeInput) (core.Income, error) {
	draft := core.Income{
		Date:        in.Date,
		Description: in.Description,
		Source:      in.Source,
		GrossCents:  in.GrossCents,
		NetCents:    in.NetCents,
	}
	if err := draft.Validate(); err != nil {
		return core.Income{}, err
	}
	if strings.TrimSpace(in.Account) == "" {
		return core.Income{}, core.ErrEmptyName
	}

	var income core.Income
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		account, err := storage.GetOrCreateAccount(ctx, q, in.Account)
		if err != nil {
			return err
		}
		income, err = q.CreateIncome(ctx, storage.CreateIncomeParams{
			Date:        in.Date,
			AccountID:   account.ID,
			Description: in.Description,
			Source:      in.Source,
			GrossCents:  in.GrossCents,
			NetCents:    in.NetCents,
		})
		if err != nil {
			return fmt.Errorf("create income: %w", err)
		}
		if core.EffectiveAsOf(in.Date, s.now()) {
			return q.AdjustAccountBalance(ctx, account.ID, in.NetCents)
		}
		return nil
	})
	if err != nil {
		return core.Income{}, err
	}

	slog.InfoContext(ctx, "Income added",
		"id", income.ID,
		"account", in.Account,
		"net_cents", income.NetCents,
		"deferred", !core.EffectiveAsOf(income.Date, s.now()))
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventIncomeAdded, income.ID, income.AccountID))
	return income, nil
}

// DeleteIncome removes the income. The net effect is reversed only if the
// stored date had made it effective; a still-deferred income leaves the
// balance untouched.
func (s *Service) DeleteIncome(ctx context.Context, id int64) error {
	var snapshot core.Income
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		income, err := q.GetIncome(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("income %d: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get income %d: %w", id, err)
		}
		snapshot = income
		if core.EffectiveAsOf(income.Date, s.now()) {
			if err := q.AdjustAccountBalance(ctx, income.AccountID, -income.NetCents); err != nil {
				return fmt.Errorf("reverse balance: %w", err)
			}
		}
		if err := q.DeleteIncome(ctx, id); err != nil {
			return fmt.Errorf("delete income %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.undo.PushDeleteIncome(snapshot)
	slog.InfoContext(ctx, "Income deleted",
		"id", id,
		"net_cents", snapshot.NetCents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventIncomeDeleted, id, snapshot.AccountID))
	return nil
}

// UpdateIncome reverses the old net effect (using the old date) and applies
// the new one (using the new date) inside a single transaction, so no reader
// ever observes the reversed-but-not-reapplied intermediate balance.
func (s *Service) UpdateIncome(ctx context.Context, id int64, in IncomeInput) error {
	draft := core.Income{
		Date:        in.Date,
		Description: in.Description,
		Source:      in.Source,
		GrossCents:  in.GrossCents,
		NetCents:    in.NetCents,
	}
	if err := draft.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Account) == "" {
		return core.ErrEmptyName
	}

	var accountID int64
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		old, err := q.GetIncome(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("income %d: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get income %d: %w", id, err)
		}
		if core.EffectiveAsOf(old.Date, s.now()) {
			if err := q.AdjustAccountBalance(ctx, old.AccountID, -old.NetCents); err != nil {
				return fmt.Errorf("reverse old balance: %w", err)
			}
		}
		account, err := storage.GetOrCreateAccount(ctx, q, in.Account)
		if err != nil {
			return err
		}
		accountID = account.ID
		err = q.UpdateIncome(ctx, id, storage.CreateIncomeParams{
			Date:        in.Date,
			AccountID:   account.ID,
			Description: in.Description,
			Source:      in.Source,
			GrossCents:  in.GrossCents,
			NetCents:    in.NetCents,
		})
		if err != nil {
			return fmt.Errorf("update income %d: %w", id, err)
		}
		if core.EffectiveAsOf(in.Date, s.now()) {
			return q.AdjustAccountBalance(ctx, account.ID, in.NetCents)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventIncomeUpdated, id, accountID))
	return nil
}

// ----------------------------- transfers -----------------------------

type TransferInput struct {
	Date        time.Time
	From        string
	To          string
	AmountCents int64
	Description string
}

// AddTransfer debits the source and credits the destination immediately,
// regardless of date. Unlike incomes there is no future-dating rule here;
// the asymmetry is deliberate and preserved. Both accounts must already
// exist: transfers never get-or-create.
func (s *Service) AddTransfer(ctx context.Context, in TransferInput) (core.Transfer, error) {
	if in.Date.IsZero() {
		return core.Transfer{}, errors.New("date cannot be zero")
	}
	if in.AmountCents <= 0 {
		return core.Transfer{}, core.ErrInvalidAmount
	}
	if in.From == in.To {
		return core.Transfer{}, core.ErrSameAccount
	}

	var transfer core.Transfer
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		from, err := q.GetAccountByName(ctx, in.From)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("account %q: %w", in.From, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get account %q: %w", in.From, err)
		}
		to, err := q.GetAccountByName(ctx, in.To)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("account %q: %w", in.To, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get account %q: %w", in.To, err)
		}
		transfer, err = q.CreateTransfer(ctx, storage.CreateTransferParams{
			Date:          in.Date,
			FromAccountID: from.ID,
			ToAccountID:   to.ID,
			AmountCents:   in.AmountCents,
			Description:   in.Description,
		})
		if err != nil {
			return fmt.Errorf("create transfer: %w", err)
		}
		if err := q.AdjustAccountBalance(ctx, from.ID, -in.AmountCents); err != nil {
			return fmt.Errorf("debit source: %w", err)
		}
		return q.AdjustAccountBalance(ctx, to.ID, in.AmountCents)
	})
	if err != nil {
		return core.Transfer{}, err
	}

	slog.InfoContext(ctx, "Transfer added",
		"id", transfer.ID,
		"from", in.From,
		"to", in.To,
		"amount_cents", transfer.AmountCents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventTransferAdded, transfer.ID, transfer.FromAccountID))
	return transfer, nil
}

// ----------------------------- undo -----------------------------

// UndoLast replays the most recent delete in reverse: the snapshot is
// reinserted with its original foreign keys (the row id itself is new) and
// the balance effect is reapplied. Income restores re-check the date rule,
// so a still-future income comes back deferred exactly as a fresh insert
// would. Returns false with no state change when the history is empty.
func (s *Service) UndoLast(ctx context.Context) (bool, error) {
	action, ok := s.undo.Pop()
	if !ok {
		return false, nil
	}

	var err error
	switch action.Kind {
	case undo.KindDeleteExpense:
		err = s.restoreExpense(ctx, *action.Expense)
	case undo.KindDeleteIncome:
		err = s.restoreIncome(ctx, *action.Income)
	default:
		return false, fmt.Errorf("unknown undo kind: %s", action.Kind)
	}
	if err != nil {
		// Keep the snapshot so the caller can retry.
		s.undo.Restore(action)
		return false, err
	}
	return true, nil
}

func (s *Service) restoreExpense(ctx context.Context, e core.Expense) error {
	var restored core.Expense
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		restored, err = q.CreateExpense(ctx, storage.CreateExpenseParams{
			Date:        e.Date,
			AccountID:   e.AccountID,
			Description: e.Description,
			CategoryID:  e.CategoryID,
			Type:        e.Type,
			TagID:       e.TagID,
			AmountCents: e.AmountCents,
			RecurringID: e.RecurringID,
		})
		if err != nil {
			return fmt.Errorf("reinsert expense: %w", err)
		}
		return q.AdjustAccountBalance(ctx, e.AccountID, -e.AmountCents)
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Expense restored", "id", restored.ID, "amount_cents", e.AmountCents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventExpenseRestored, restored.ID, e.AccountID))
	return nil
}

func (s *Service) restoreIncome(ctx context.Context, i core.Income) error {
	var restored core.Income
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		restored, err = q.CreateIncome(ctx, storage.CreateIncomeParams{
			Date:        i.Date,
			AccountID:   i.AccountID,
			Description: i.Description,
			Source:      i.Source,
			GrossCents:  i.GrossCents,
			NetCents:    i.NetCents,
		})
		if err != nil {
			return fmt.Errorf("reinsert income: %w", err)
		}
		if core.EffectiveAsOf(i.Date, s.now()) {
			return q.AdjustAccountBalance(ctx, i.AccountID, i.NetCents)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Income restored", "id", restored.ID, "net_cents", i.NetCents)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventIncomeRestored, restored.ID, i.AccountID))
	return nil
}

// publish sends a ledger event without failing the operation: the mutation
// has already committed, so a broker outage only costs the notification.
func (s *Service) publish(ctx context.Context, event *amqp.LedgerEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"kind", event.Kind,
			"entity_id", event.EntityID,
			"error", err)
	}
}
