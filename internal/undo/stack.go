// Package undo holds a bounded history of destructive ledger operations.
//
// The stack is session-scoped, in-memory state: it is owned by whoever owns
// the ledger session and is not synchronized, matching the single-process,
// single-session deployment model. A multi-instance deployment would need to
// move this into the transactional store.
package undo

import (
	"time"

	"github.com/google/uuid"

	"finanzas/internal/core"
)

type Kind string

const (
	KindDeleteExpense Kind = "delete_expense"
	KindDeleteIncome  Kind = "delete_income"
)

// MaxDepth is the number of destructive operations kept; older entries are
// evicted silently.
const MaxDepth = 10

// Action is a full pre-deletion snapshot of the deleted record.
type Action struct {
	ID      string
	Kind    Kind
	Expense *core.Expense
	Income  *core.Income
	At      time.Time
}

type Stack struct {
	actions []Action
}

func NewStack() *Stack {
	return &Stack{}
}

// PushDeleteExpense records a deleted expense snapshot.
func (s *Stack) PushDeleteExpense(e core.Expense) {
	s.push(Action{
		ID:      uuid.NewString(),
		Kind:    KindDeleteExpense,
		Expense: &e,
		At:      time.Now(),
	})
}

// PushDeleteIncome records a deleted income snapshot.
func (s *Stack) PushDeleteIncome(i core.Income) {
	s.push(Action{
		ID:     uuid.NewString(),
		Kind:   KindDeleteIncome,
		Income: &i,
		At:     time.Now(),
	})
}

func (s *Stack) push(a Action) {
	s.actions = append(s.actions, a)
	if len(s.actions) > MaxDepth {
		s.actions = s.actions[len(s.actions)-MaxDepth:]
	}
}

// Pop removes and returns the most recent action. The second return is false
// when the stack is empty.
func (s *Stack) Pop() (Action, bool) {
	if len(s.actions) == 0 {
		return Action{}, false
	}
	a := s.actions[len(s.actions)-1]
	s.actions = s.actions[:len(s.actions)-1]
	return a, true
}

// Restore puts an action back on top, used when replaying it failed.
func (s *Stack) Restore(a Action) {
	s.push(a)
}

func (s *Stack) Len() int {
	return len(s.actions)
}
