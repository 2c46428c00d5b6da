package storage

import (
	"context"
	"database/sql"
	"time"

	"finanzas/internal/core"
)

// CreateExpenseParams carries every expense column, including the optional
// foreign keys, so undo can reinsert a snapshot with its original references.
type CreateExpenseParams struct {
	Date        time.Time
	AccountID   int64
	Description string
	CategoryID  *int64
	Type        core.ExpenseType
	TagID       *int64
	AmountCents int64
	RecurringID *int64
}

const createExpense = `
INSERT INTO expenses (date, account_id, description, category_id, type, tag_id, amount_cents, recurring_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateExpense(ctx context.Context, p CreateExpenseParams) (core.Expense, error) {
	res, err := q.db.ExecContext(ctx, createExpense,
		fmtDate(p.Date), p.AccountID, p.Description, nullID(p.CategoryID),
		p.Type, nullID(p.TagID), p.AmountCents, nullID(p.RecurringID))
	if err != nil {
		return core.Expense{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:          id,
		Date:        p.Date,
		AccountID:   p.AccountID,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Type:        p.Type,
		TagID:       p.TagID,
		AmountCents: p.AmountCents,
		RecurringID: p.RecurringID,
	}, nil
}

const getExpense = `
SELECT id, date, account_id, description, category_id, type, tag_id, amount_cents, recurring_id
FROM expenses WHERE id = ?
`

func (q *Queries) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	var e core.Expense
	var date, typ string
	var categoryID, tagID, recurringID sql.NullInt64
	err := q.db.QueryRowContext(ctx, getExpense, id).Scan(
		&e.ID, &date, &e.AccountID, &e.Description, &categoryID, &typ, &tagID, &e.AmountCents, &recurringID)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date = parseDate(date)
	e.Type = core.ExpenseType(typ)
	e.CategoryID = idPtr(categoryID)
	e.TagID = idPtr(tagID)
	e.RecurringID = idPtr(recurringID)
	return e, nil
}

func (q *Queries) DeleteExpense(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	return err
}

const listExpensesInRange = `
SELECT id, date, account_id, description, category_id, type, tag_id, amount_cents, recurring_id
FROM expenses WHERE date >= ? AND date <= ? ORDER BY date, id
`

func (q *Queries) ListExpensesInRange(ctx context.Context, start, end time.Time) ([]core.Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesInRange, fmtDate(start), fmtDate(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var date, typ string
		var categoryID, tagID, recurringID sql.NullInt64
		if err := rows.Scan(&e.ID, &date, &e.AccountID, &e.Description, &categoryID, &typ, &tagID, &e.AmountCents, &recurringID); err != nil {
			return nil, err
		}
		e.Date = parseDate(date)
		e.Type = core.ExpenseType(typ)
		e.CategoryID = idPtr(categoryID)
		e.TagID = idPtr(tagID)
		e.RecurringID = idPtr(recurringID)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

const countExpensesForRecurring = `
SELECT COUNT(*) FROM expenses
WHERE recurring_id = ? AND date >= ? AND date <= ?
`

// CountExpensesForRecurring reports how many expenses a recurring charge has
// already materialized inside the given month range.
func (q *Queries) CountExpensesForRecurring(ctx context.Context, recurringID int64, start, end time.Time) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countExpensesForRecurring, recurringID, fmtDate(start), fmtDate(end)).Scan(&count)
	return count, err
}

const sumExpensesThrough = `
SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
WHERE account_id = ? AND date <= ?
`

func (q *Queries) SumExpensesThrough(ctx context.Context, accountID int64, asOf time.Time) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx, sumExpensesThrough, accountID, fmtDate(asOf)).Scan(&sum)
	return sum, err
}

// ExpenseRow is an expense with display names substituted for foreign keys.
type ExpenseRow struct {
	ID          int64
	Date        time.Time
	Account     string
	Description string
	Category    string
	Type        core.ExpenseType
	Tag         string
	AmountCents int64
	RecurringID *int64
}

const listExpenseRows = `
SELECT e.id, e.date, a.name, e.description,
       COALESCE(c.name, ''), e.type, COALESCE(t.name, ''), e.amount_cents, e.recurring_id
FROM expenses e
JOIN accounts a ON e.account_id = a.id
LEFT JOIN categories c ON e.category_id = c.id
LEFT JOIN tags t ON e.tag_id = t.id
WHERE e.date >= ? AND e.date <= ?
ORDER BY e.date, e.id
`

func (q *Queries) ListExpenseRows(ctx context.Context, start, end time.Time) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenseRows, fmtDate(start), fmtDate(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ExpenseRow
	for rows.Next() {
		var r ExpenseRow
		var date, typ string
		var recurringID sql.NullInt64
		if err := rows.Scan(&r.ID, &date, &r.Account, &r.Description, &r.Category, &typ, &r.Tag, &r.AmountCents, &recurringID); err != nil {
			return nil, err
		}
		r.Date = parseDate(date)
		r.Type = core.ExpenseType(typ)
		r.RecurringID = idPtr(recurringID)
		result = append(result, r)
	}
	return result, rows.Err()
}

// ----------------------------- incomes -----------------------------

type CreateIncomeParams struct {
	Date        time.Time
	AccountID   int64
	Description string
	Source      string
	GrossCents  int64
	NetCents    int64
}

const createIncome = `
INSERT INTO incomes (date, account_id, description, source, gross_cents, net_cents)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateIncome(ctx context.Context, p CreateIncomeParams) (core.Income, error) {
	res, err := q.db.ExecContext(ctx, createIncome,
		fmtDate(p.Date), p.AccountID, p.Description, p.Source, p.GrossCents, p.NetCents)
	if err != nil {
		return core.Income{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Income{}, err
	}
	return core.Income{
		ID:          id,
		Date:        p.Date,
		AccountID:   p.AccountID,
		Description: p.Description,
		Source:      p.Source,
		GrossCents:  p.GrossCents,
		NetCents:    p.NetCents,
	}, nil
}

const getIncome = `
SELECT id, date, account_id, description, source, gross_cents, net_cents
FROM incomes WHERE id = ?
`

func (q *Queries) GetIncome(ctx context.Context, id int64) (core.Income, error) {
	var i core.Income
	var date string
	err := q.db.QueryRowContext(ctx, getIncome, id).Scan(
		&i.ID, &date, &i.AccountID, &i.Description, &i.Source, &i.GrossCents, &i.NetCents)
	if err != nil {
		return core.Income{}, err
	}
	i.Date = parseDate(date)
	return i, nil
}

const updateIncome = `
UPDATE incomes SET date = ?, account_id = ?, description = ?, source = ?, gross_cents = ?, net_cents = ?
WHERE id = ?
`

func (q *Queries) UpdateIncome(ctx context.Context, id int64, p CreateIncomeParams) error {
	_, err := q.db.ExecContext(ctx, updateIncome,
		fmtDate(p.Date), p.AccountID, p.Description, p.Source, p.GrossCents, p.NetCents, id)
	return err
}

func (q *Queries) DeleteIncome(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, id)
	return err
}

const listIncomesInRange = `
SELECT id, date, account_id, description, source, gross_cents, net_cents
FROM incomes WHERE date >= ? AND date <= ? ORDER BY date, id
`

func (q *Queries) ListIncomesInRange(ctx context.Context, start, end time.Time) ([]core.Income, error) {
	rows, err := q.db.QueryContext(ctx, listIncomesInRange, fmtDate(start), fmtDate(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incomes []core.Income
	for rows.Next() {
		var i core.Income
		var date string
		if err := rows.Scan(&i.ID, &date, &i.AccountID, &i.Description, &i.Source, &i.GrossCents, &i.NetCents); err != nil {
			return nil, err
		}
		i.Date = parseDate(date)
		incomes = append(incomes, i)
	}
	return incomes, rows.Err()
}

const sumIncomesThrough = `
SELECT COALESCE(SUM(net_cents), 0) FROM incomes
WHERE account_id = ? AND date <= ?
`

// SumIncomesThrough sums net amounts only; gross never enters a balance.
func (q *Queries) SumIncomesThrough(ctx context.Context, accountID int64, asOf time.Time) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx, sumIncomesThrough, accountID, fmtDate(asOf)).Scan(&sum)
	return sum, err
}

// IncomeRow is an income with the account name substituted for its id.
type IncomeRow struct {
	ID          int64
	Date        time.Time
	Account     string
	Description string
	Source      string
	GrossCents  int64
	NetCents    int64
}

const listIncomeRows = `
SELECT i.id, i.date, a.name, i.description, i.source, i.gross_cents, i.net_cents
FROM incomes i
JOIN accounts a ON i.account_id = a.id
WHERE i.date >= ? AND i.date <= ?
ORDER BY i.date, i.id
`

func (q *Queries) ListIncomeRows(ctx context.Context, start, end time.Time) ([]IncomeRow, error) {
	rows, err := q.db.QueryContext(ctx, listIncomeRows, fmtDate(start), fmtDate(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []IncomeRow
	for rows.Next() {
		var r IncomeRow
		var date string
		if err := rows.Scan(&r.ID, &date, &r.Account, &r.Description, &r.Source, &r.GrossCents, &r.NetCents); err != nil {
			return nil, err
		}
		r.Date = parseDate(date)
		result = append(result, r)
	}
	return result, rows.Err()
}

// ----------------------------- transfers -----------------------------

type CreateTransferParams struct {
	Date          time.Time
	FromAccountID int64
	ToAccountID   int64
	AmountCents   int64
	Description   string
}

const createTransfer = `
INSERT INTO transfers (date, from_account_id, to_account_id, amount_cents, description)
VALUES (?, ?, ?, ?, ?)
`

func (q *Queries) CreateTransfer(ctx context.Context, p CreateTransferParams) (core.Transfer, error) {
	res, err := q.db.ExecContext(ctx, createTransfer,
		fmtDate(p.Date), p.FromAccountID, p.ToAccountID, p.AmountCents, p.Description)
	if err != nil {
		return core.Transfer{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transfer{}, err
	}
	return core.Transfer{
		ID:            id,
		Date:          p.Date,
		FromAccountID: p.FromAccountID,
		ToAccountID:   p.ToAccountID,
		AmountCents:   p.AmountCents,
		Description:   p.Description,
	}, nil
}

const listTransfersInRange = `
SELECT id, date, from_account_id, to_account_id, amount_cents, description
FROM transfers WHERE date >= ? AND date <= ? ORDER BY date, id
`

func (q *Queries) ListTransfersInRange(ctx context.Context, start, end time.Time) ([]core.Transfer, error) {
	rows, err := q.db.QueryContext(ctx, listTransfersInRange, fmtDate(start), fmtDate(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []core.Transfer
	for rows.Next() {
		var t core.Transfer
		var date string
		if err := rows.Scan(&t.ID, &date, &t.FromAccountID, &t.ToAccountID, &t.AmountCents, &t.Description); err != nil {
			return nil, err
		}
		t.Date = parseDate(date)
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

const sumTransfersOutThrough = `
SELECT COALESCE(SUM(amount_cents), 0) FROM transfers
WHERE from_account_id = ? AND date <= ?
`

func (q *Queries) SumTransfersOutThrough(ctx context.Context, accountID int64, asOf time.Time) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx, sumTransfersOutThrough, accountID, fmtDate(asOf)).Scan(&sum)
	return sum, err
}

const sumTransfersInThrough = `
SELECT COALESCE(SUM(amount_cents), 0) FROM transfers
WHERE to_account_id = ? AND date <= ?
`

func (q *Queries) SumTransfersInThrough(ctx context.Context, accountID int64, asOf time.Time) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx, sumTransfersInThrough, accountID, fmtDate(asOf)).Scan(&sum)
	return sum, err
}

// TransferRow is a transfer with account names substituted for ids.
type TransferRow struct {
	ID          int64
	Date        time.Time
	From        string
	To          string
	AmountCents int64
	Description string
}

const listTransferRows = `
SELECT t.id, t.date, src.name, dst.name, t.amount_cents, t.description
FROM transfers t
JOIN accounts src ON t.from_account_id = src.id
JOIN accounts dst ON t.to_account_id = dst.id
WHERE t.date >= ? AND t.date <= ?
ORDER BY t.date, t.id
`

func (q *Queries) ListTransferRows(ctx context.Context, start, end time.Time) ([]TransferRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransferRows, fmtDate(start), fmtDate(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []TransferRow
	for rows.Next() {
		var r TransferRow
		var date string
		if err := rows.Scan(&r.ID, &date, &r.From, &r.To, &r.AmountCents, &r.Description); err != nil {
			return nil, err
		}
		r.Date = parseDate(date)
		result = append(result, r)
	}
	return result, rows.Err()
}
