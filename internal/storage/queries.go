package storage

import (
	"context"
	"database/sql"
	"time"

	"finanzas/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query can run inside
// or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const dateLayout = "2006-01-02"

func fmtDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func idPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// ----------------------------- accounts -----------------------------

const createAccount = `
INSERT INTO accounts (name, balance_cents, initial_balance_cents, status)
VALUES (?, ?, ?, ?)
`

func (q *Queries) CreateAccount(ctx context.Context, name string, balanceCents int64) (core.Account, error) {
	res, err := q.db.ExecContext(ctx, createAccount, name, balanceCents, balanceCents, core.StatusActive)
	if err != nil {
		return core.Account{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Account{}, err
	}
	return core.Account{
		ID:                  id,
		Name:                name,
		BalanceCents:        balanceCents,
		InitialBalanceCents: balanceCents,
		Status:              core.StatusActive,
	}, nil
}

const getAccountByID = `
SELECT id, name, balance_cents, initial_balance_cents, status, created_at
FROM accounts WHERE id = ?
`

func (q *Queries) GetAccountByID(ctx context.Context, id int64) (core.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccountByID, id))
}

const getAccountByName = `
SELECT id, name, balance_cents, initial_balance_cents, status, created_at
FROM accounts WHERE name = ?
`

func (q *Queries) GetAccountByName(ctx context.Context, name string) (core.Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccountByName, name))
}

func scanAccount(row *sql.Row) (core.Account, error) {
	var a core.Account
	var status, createdAt string
	err := row.Scan(&a.ID, &a.Name, &a.BalanceCents, &a.InitialBalanceCents, &status, &createdAt)
	if err != nil {
		return core.Account{}, err
	}
	a.Status = core.Status(status)
	if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
		a.CreatedAt = t
	}
	return a, nil
}

const updateAccountBalances = `
UPDATE accounts SET balance_cents = ?, initial_balance_cents = ? WHERE id = ?
`

func (q *Queries) UpdateAccountBalances(ctx context.Context, id, balanceCents, initialBalanceCents int64) error {
	_, err := q.db.ExecContext(ctx, updateAccountBalances, balanceCents, initialBalanceCents, id)
	return err
}

const adjustAccountBalance = `
UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ?
`

// AdjustAccountBalance applies a signed delta to the stored running balance.
func (q *Queries) AdjustAccountBalance(ctx context.Context, id, deltaCents int64) error {
	_, err := q.db.ExecContext(ctx, adjustAccountBalance, deltaCents, id)
	return err
}

const setAccountStatus = `
UPDATE accounts SET status = ? WHERE id = ?
`

func (q *Queries) SetAccountStatus(ctx context.Context, id int64, status core.Status) error {
	_, err := q.db.ExecContext(ctx, setAccountStatus, status, id)
	return err
}

const listAccounts = `
SELECT id, name, balance_cents, initial_balance_cents, status, created_at
FROM accounts WHERE status = ? ORDER BY name
`

// ListAccounts returns accounts with the given status, ordered by name.
func (q *Queries) ListAccounts(ctx context.Context, status core.Status) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var st, createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &a.BalanceCents, &a.InitialBalanceCents, &st, &createdAt); err != nil {
			return nil, err
		}
		a.Status = core.Status(st)
		if t, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
			a.CreatedAt = t
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ----------------------------- categories and tags -----------------------------

func (q *Queries) GetCategoryByName(ctx context.Context, name string) (core.Category, error) {
	var c core.Category
	var status string
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, status FROM categories WHERE name = ?`, name).
		Scan(&c.ID, &c.Name, &status)
	if err != nil {
		return core.Category{}, err
	}
	c.Status = core.Status(status)
	return c, nil
}

func (q *Queries) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO categories (name, status) VALUES (?, ?)`, name, core.StatusActive)
	if err != nil {
		return core.Category{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, err
	}
	return core.Category{ID: id, Name: name, Status: core.StatusActive}, nil
}

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, status FROM categories WHERE status = ? ORDER BY name`, core.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		var status string
		if err := rows.Scan(&c.ID, &c.Name, &status); err != nil {
			return nil, err
		}
		c.Status = core.Status(status)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (q *Queries) GetTagByName(ctx context.Context, name string) (core.Tag, error) {
	var t core.Tag
	var status string
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, status FROM tags WHERE name = ?`, name).
		Scan(&t.ID, &t.Name, &status)
	if err != nil {
		return core.Tag{}, err
	}
	t.Status = core.Status(status)
	return t, nil
}

func (q *Queries) CreateTag(ctx context.Context, name string) (core.Tag, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO tags (name, status) VALUES (?, ?)`, name, core.StatusActive)
	if err != nil {
		return core.Tag{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Tag{}, err
	}
	return core.Tag{ID: id, Name: name, Status: core.StatusActive}, nil
}

func (q *Queries) ListTags(ctx context.Context) ([]core.Tag, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, name, status FROM tags WHERE status = ? ORDER BY name`, core.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []core.Tag
	for rows.Next() {
		var t core.Tag
		var status string
		if err := rows.Scan(&t.ID, &t.Name, &status); err != nil {
			return nil, err
		}
		t.Status = core.Status(status)
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ----------------------------- settings -----------------------------

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	return value, err
}

func (q *Queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (q *Queries) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		values[k] = v
	}
	return values, rows.Err()
}
