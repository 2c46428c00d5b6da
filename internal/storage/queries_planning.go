package storage

import (
	"context"
	"database/sql"

	"finanzas/internal/core"
)

// ----------------------------- recurring charges -----------------------------

type CreateRecurringChargeParams struct {
	Name        string
	AmountCents int64
	Period      core.Periodicity
	DayOfMonth  int
	AccountID   *int64
	CategoryID  *int64
}

const createRecurringCharge = `
INSERT INTO recurring_charges (name, amount_cents, period, day_of_month, account_id, category_id, status)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateRecurringCharge(ctx context.Context, p CreateRecurringChargeParams) (core.RecurringCharge, error) {
	res, err := q.db.ExecContext(ctx, createRecurringCharge,
		p.Name, p.AmountCents, p.Period, p.DayOfMonth, nullID(p.AccountID), nullID(p.CategoryID), core.StatusActive)
	if err != nil {
		return core.RecurringCharge{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.RecurringCharge{}, err
	}
	return core.RecurringCharge{
		ID:          id,
		Name:        p.Name,
		AmountCents: p.AmountCents,
		Period:      p.Period,
		DayOfMonth:  p.DayOfMonth,
		AccountID:   p.AccountID,
		CategoryID:  p.CategoryID,
		Status:      core.StatusActive,
	}, nil
}

const getRecurringCharge = `
SELECT id, name, amount_cents, period, day_of_month, account_id, category_id, status
FROM recurring_charges WHERE id = ?
`

func (q *Queries) GetRecurringCharge(ctx context.Context, id int64) (core.RecurringCharge, error) {
	var rc core.RecurringCharge
	var period, status string
	var accountID, categoryID sql.NullInt64
	err := q.db.QueryRowContext(ctx, getRecurringCharge, id).Scan(
		&rc.ID, &rc.Name, &rc.AmountCents, &period, &rc.DayOfMonth, &accountID, &categoryID, &status)
	if err != nil {
		return core.RecurringCharge{}, err
	}
	rc.Period = core.Periodicity(period)
	rc.Status = core.Status(status)
	rc.AccountID = idPtr(accountID)
	rc.CategoryID = idPtr(categoryID)
	return rc, nil
}

const listActiveRecurringCharges = `
SELECT id, name, amount_cents, period, day_of_month, account_id, category_id, status
FROM recurring_charges WHERE status = ? ORDER BY id
`

func (q *Queries) ListActiveRecurringCharges(ctx context.Context) ([]core.RecurringCharge, error) {
	rows, err := q.db.QueryContext(ctx, listActiveRecurringCharges, core.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []core.RecurringCharge
	for rows.Next() {
		var rc core.RecurringCharge
		var period, status string
		var accountID, categoryID sql.NullInt64
		if err := rows.Scan(&rc.ID, &rc.Name, &rc.AmountCents, &period, &rc.DayOfMonth, &accountID, &categoryID, &status); err != nil {
			return nil, err
		}
		rc.Period = core.Periodicity(period)
		rc.Status = core.Status(status)
		rc.AccountID = idPtr(accountID)
		rc.CategoryID = idPtr(categoryID)
		charges = append(charges, rc)
	}
	return charges, rows.Err()
}

func (q *Queries) SetRecurringChargeStatus(ctx context.Context, id int64, status core.Status) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE recurring_charges SET status = ? WHERE id = ?`, status, id)
	return err
}

// RecurringChargeRow is a recurring charge with display names for its
// optional account and category.
type RecurringChargeRow struct {
	ID          int64
	Name        string
	AmountCents int64
	Period      core.Periodicity
	DayOfMonth  int
	Account     string
	Category    string
	Status      core.Status
}

const listRecurringChargeRows = `
SELECT r.id, r.name, r.amount_cents, r.period, r.day_of_month,
       COALESCE(a.name, ''), COALESCE(c.name, ''), r.status
FROM recurring_charges r
LEFT JOIN accounts a ON r.account_id = a.id
LEFT JOIN categories c ON r.category_id = c.id
ORDER BY r.id
`

func (q *Queries) ListRecurringChargeRows(ctx context.Context) ([]RecurringChargeRow, error) {
	rows, err := q.db.QueryContext(ctx, listRecurringChargeRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RecurringChargeRow
	for rows.Next() {
		var r RecurringChargeRow
		var period, status string
		if err := rows.Scan(&r.ID, &r.Name, &r.AmountCents, &period, &r.DayOfMonth, &r.Account, &r.Category, &status); err != nil {
			return nil, err
		}
		r.Period = core.Periodicity(period)
		r.Status = core.Status(status)
		result = append(result, r)
	}
	return result, rows.Err()
}

// ----------------------------- envelopes -----------------------------

type CreateEnvelopeParams struct {
	Name         string
	Description  string
	TargetCents  int64
	CurrentCents int64
	Rollover     bool
	AccountID    *int64
}

const createEnvelope = `
INSERT INTO envelopes (name, description, target_cents, current_cents, rollover, account_id, status)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateEnvelope(ctx context.Context, p CreateEnvelopeParams) (core.Envelope, error) {
	res, err := q.db.ExecContext(ctx, createEnvelope,
		p.Name, p.Description, p.TargetCents, p.CurrentCents, p.Rollover, nullID(p.AccountID), core.StatusActive)
	if err != nil {
		return core.Envelope{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Envelope{}, err
	}
	return core.Envelope{
		ID:           id,
		Name:         p.Name,
		Description:  p.Description,
		TargetCents:  p.TargetCents,
		CurrentCents: p.CurrentCents,
		Rollover:     p.Rollover,
		AccountID:    p.AccountID,
		Status:       core.StatusActive,
	}, nil
}

const getEnvelope = `
SELECT id, name, description, target_cents, current_cents, rollover, account_id, status
FROM envelopes WHERE id = ?
`

func (q *Queries) GetEnvelope(ctx context.Context, id int64) (core.Envelope, error) {
	var e core.Envelope
	var status string
	var accountID sql.NullInt64
	err := q.db.QueryRowContext(ctx, getEnvelope, id).Scan(
		&e.ID, &e.Name, &e.Description, &e.TargetCents, &e.CurrentCents, &e.Rollover, &accountID, &status)
	if err != nil {
		return core.Envelope{}, err
	}
	e.Status = core.Status(status)
	e.AccountID = idPtr(accountID)
	return e, nil
}

const updateEnvelope = `
UPDATE envelopes SET name = ?, description = ?, target_cents = ?, current_cents = ?, rollover = ?, account_id = ?
WHERE id = ?
`

func (q *Queries) UpdateEnvelope(ctx context.Context, id int64, p CreateEnvelopeParams) error {
	_, err := q.db.ExecContext(ctx, updateEnvelope,
		p.Name, p.Description, p.TargetCents, p.CurrentCents, p.Rollover, nullID(p.AccountID), id)
	return err
}

func (q *Queries) SetEnvelopeStatus(ctx context.Context, id int64, status core.Status) error {
	_, err := q.db.ExecContext(ctx, `UPDATE envelopes SET status = ? WHERE id = ?`, status, id)
	return err
}

func (q *Queries) SetEnvelopeRollover(ctx context.Context, id int64, rollover bool) error {
	_, err := q.db.ExecContext(ctx, `UPDATE envelopes SET rollover = ? WHERE id = ?`, rollover, id)
	return err
}

const listActiveEnvelopes = `
SELECT id, name, description, target_cents, current_cents, rollover, account_id, status
FROM envelopes WHERE status = ? ORDER BY name
`

func (q *Queries) ListActiveEnvelopes(ctx context.Context) ([]core.Envelope, error) {
	rows, err := q.db.QueryContext(ctx, listActiveEnvelopes, core.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var envelopes []core.Envelope
	for rows.Next() {
		var e core.Envelope
		var status string
		var accountID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.TargetCents, &e.CurrentCents, &e.Rollover, &accountID, &status); err != nil {
			return nil, err
		}
		e.Status = core.Status(status)
		e.AccountID = idPtr(accountID)
		envelopes = append(envelopes, e)
	}
	return envelopes, rows.Err()
}
