package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// Monthly is the only periodicity recurring charges currently support.
	Monthly Periodicity = "monthly"

	TypeFixed    ExpenseType = "Fijo"
	TypeVariable ExpenseType = "Variable"
	TypeOther    ExpenseType = "Otro"

	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type (
	Periodicity string

	// ExpenseType is the closed budget split of an expense.
	ExpenseType string

	// Status marks soft-deletable entities. An enum rather than a bool so
	// additional states can be added without a schema break.
	Status string

	Money struct {
		Cents int64
	}

	Account struct {
		ID int64
		// Name is unique among all accounts, active or not.
		Name string
		// BalanceCents is the live running balance, mutated only by the
		// ledger engine at write time.
		BalanceCents int64
		// InitialBalanceCents is the reconstruction baseline. Manual
		// balance corrections shift it by the same delta so event replay
		// stays equivalent to the stored balance.
		InitialBalanceCents int64
		Status              Status
		CreatedAt           time.Time
	}

	Category struct {
		ID        int64
		Name      string
		Status    Status
		CreatedAt time.Time
	}

	Tag struct {
		ID        int64
		Name      string
		Status    Status
		CreatedAt time.Time
	}

	Expense struct {
		ID          int64
		Date        time.Time
		AccountID   int64
		Description string
		CategoryID  *int64
		Type        ExpenseType
		TagID       *int64
		AmountCents int64
		// RecurringID links a materialized expense back to its recurring
		// charge; nil for manual entries.
		RecurringID *int64
	}

	Income struct {
		ID          int64
		Date        time.Time
		AccountID   int64
		Description string
		Source      string
		// GrossCents is informational only and never touches a balance.
		GrossCents int64
		NetCents   int64
	}

	Transfer struct {
		ID            int64
		Date          time.Time
		FromAccountID int64
		ToAccountID   int64
		AmountCents   int64
		Description   string
	}

	RecurringCharge struct {
		ID          int64
		Name        string
		AmountCents int64
		Period      Periodicity
		// DayOfMonth is clamped to the last valid day of short months at
		// materialization time.
		DayOfMonth int
		AccountID  *int64
		CategoryID *int64
		Status     Status
	}

	// Envelope is a sinking fund: money conceptually set aside without
	// moving between accounts. CurrentCents is a manually adjusted counter,
	// not derived from the expense log.
	Envelope struct {
		ID           int64
		Name         string
		Description  string
		TargetCents  int64
		CurrentCents int64
		Rollover     bool
		AccountID    *int64
		Status       Status
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("already exists")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrSameAccount      = errors.New("transfer accounts must differ")
	ErrInvalidType      = errors.New("invalid expense type")
	ErrInvalidDay       = errors.New("invalid day of month")

	ErrInvalidPercentages = errors.New("budget percentages must sum to 100%")
)

// EffectiveAsOf reports whether an event dated eventDate has taken effect by
// asOf, comparing calendar days. Incomes use this rule for every balance
// mutation; transfers deliberately do not (they always execute immediately).
func EffectiveAsOf(eventDate, asOf time.Time) bool {
	ed := eventDate.Format("2006-01-02")
	ad := asOf.Format("2006-01-02")
	return ed <= ad
}

// MonthRange returns the inclusive range [first day 00:00:00, last day
// 23:59:59] of the month containing d.
func MonthRange(d time.Time) (time.Time, time.Time) {
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}

// LastDayOfMonth returns the number of days in the month containing d.
func LastDayOfMonth(d time.Time) int {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (t ExpenseType) Validate() error {
	switch t {
	case TypeFixed, TypeVariable, TypeOther:
		return nil
	default:
		return ErrInvalidType
	}
}

// IsFixed compares the type against the fixed budget block, case-insensitively.
func (t ExpenseType) IsFixed() bool {
	return strings.EqualFold(string(t), string(TypeFixed))
}

// IsVariable compares the type against the variable budget block,
// case-insensitively.
func (t ExpenseType) IsVariable() bool {
	return strings.EqualFold(string(t), string(TypeVariable))
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if e.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	return e.Type.Validate()
}

func (i Income) Validate() error {
	if i.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if strings.TrimSpace(i.Description) == "" {
		return ErrEmptyDescription
	}
	if i.NetCents <= 0 {
		return ErrInvalidAmount
	}
	if i.GrossCents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transfer) Validate() error {
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if t.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if t.FromAccountID == t.ToAccountID {
		return ErrSameAccount
	}
	return nil
}

func (rc RecurringCharge) Validate() error {
	if strings.TrimSpace(rc.Name) == "" {
		return ErrEmptyName
	}
	if rc.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if rc.Period != Monthly {
		return errors.New("unsupported periodicity: " + string(rc.Period))
	}
	if rc.DayOfMonth < 1 || rc.DayOfMonth > 31 {
		return ErrInvalidDay
	}
	return nil
}

func (e Envelope) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if e.TargetCents < 0 || e.CurrentCents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
