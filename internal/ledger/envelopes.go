package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// EnvelopeInput carries an envelope's editable fields. Account is a name
// resolved with get-or-create; empty leaves the envelope unlinked, which
// makes its funds a proportional reservation across all accounts.
type EnvelopeInput struct {
	Name         string
	Description  string
	TargetCents  int64
	CurrentCents int64
	Rollover     bool
	Account      string
}

// AddEnvelope creates a savings envelope. Envelope funds are earmarked
// account money, never a balance mutation: no account balance changes here.
func (s *Service) AddEnvelope(ctx context.Context, in EnvelopeInput) (core.Envelope, error) {
	draft := core.Envelope{
		Name:         in.Name,
		TargetCents:  in.TargetCents,
		CurrentCents: in.CurrentCents,
	}
	if err := draft.Validate(); err != nil {
		return core.Envelope{}, err
	}

	var envelope core.Envelope
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var accountID *int64
		if in.Account != "" {
			acc, err := storage.GetOrCreateAccount(ctx, q, in.Account)
			if err != nil {
				return err
			}
			accountID = &acc.ID
		}
		var err error
		envelope, err = q.CreateEnvelope(ctx, storage.CreateEnvelopeParams{
			Name:         in.Name,
			Description:  in.Description,
			TargetCents:  in.TargetCents,
			CurrentCents: in.CurrentCents,
			Rollover:     in.Rollover,
			AccountID:    accountID,
		})
		if err != nil {
			return fmt.Errorf("create envelope: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Envelope{}, err
	}

	slog.InfoContext(ctx, "Envelope created",
		"id", envelope.ID,
		"name", envelope.Name,
		"target_cents", envelope.TargetCents)
	return envelope, nil
}

// UpdateEnvelope replaces the editable fields of an envelope.
func (s *Service) UpdateEnvelope(ctx context.Context, id int64, in EnvelopeInput) error {
	draft := core.Envelope{
		Name:         in.Name,
		TargetCents:  in.TargetCents,
		CurrentCents: in.CurrentCents,
	}
	if err := draft.Validate(); err != nil {
		return err
	}

	return s.repo.WithTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetEnvelope(ctx, id); errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("envelope %d: %w", id, core.ErrNotFound)
		} else if err != nil {
			return fmt.Errorf("get envelope %d: %w", id, err)
		}
		var accountID *int64
		if in.Account != "" {
			acc, err := storage.GetOrCreateAccount(ctx, q, in.Account)
			if err != nil {
				return err
			}
			accountID = &acc.ID
		}
		return q.UpdateEnvelope(ctx, id, storage.CreateEnvelopeParams{
			Name:         in.Name,
			Description:  in.Description,
			TargetCents:  in.TargetCents,
			CurrentCents: in.CurrentCents,
			Rollover:     in.Rollover,
			AccountID:    accountID,
		})
	})
}

// FundEnvelope moves earmarked money into an envelope. Amount may be
// negative to release funds, but the envelope can never hold less than zero.
func (s *Service) FundEnvelope(ctx context.Context, id int64, amountCents int64) error {
	return s.repo.WithTx(ctx, func(q *storage.Queries) error {
		envelope, err := q.GetEnvelope(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("envelope %d: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get envelope %d: %w", id, err)
		}
		next := envelope.CurrentCents + amountCents
		if next < 0 {
			return fmt.Errorf("envelope %d would hold %d cents: %w", id, next, core.ErrInvalidAmount)
		}
		return q.UpdateEnvelope(ctx, id, storage.CreateEnvelopeParams{
			Name:         envelope.Name,
			Description:  envelope.Description,
			TargetCents:  envelope.TargetCents,
			CurrentCents: next,
			Rollover:     envelope.Rollover,
			AccountID:    envelope.AccountID,
		})
	})
}

// SetEnvelopeRollover flips whether the envelope keeps its funds across the
// monthly reset.
func (s *Service) SetEnvelopeRollover(ctx context.Context, id int64, rollover bool) error {
	return s.repo.WithTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetEnvelope(ctx, id); errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("envelope %d: %w", id, core.ErrNotFound)
		} else if err != nil {
			return fmt.Errorf("get envelope %d: %w", id, err)
		}
		return q.SetEnvelopeRollover(ctx, id, rollover)
	})
}

// DeactivateEnvelope releases the envelope's reservation by retiring it.
func (s *Service) DeactivateEnvelope(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetEnvelope(ctx, id); errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("envelope %d: %w", id, core.ErrNotFound)
		} else if err != nil {
			return fmt.Errorf("get envelope %d: %w", id, err)
		}
		return q.SetEnvelopeStatus(ctx, id, core.StatusInactive)
	})
}

// ResetEnvelopes zeroes non-rollover envelopes at a month boundary.
// Rollover envelopes keep their accumulated funds.
func (s *Service) ResetEnvelopes(ctx context.Context) (int, error) {
	reset := 0
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		envelopes, err := q.ListActiveEnvelopes(ctx)
		if err != nil {
			return fmt.Errorf("list envelopes: %w", err)
		}
		for _, envelope := range envelopes {
			if envelope.Rollover || envelope.CurrentCents == 0 {
				continue
			}
			err := q.UpdateEnvelope(ctx, envelope.ID, storage.CreateEnvelopeParams{
				Name:         envelope.Name,
				Description:  envelope.Description,
				TargetCents:  envelope.TargetCents,
				CurrentCents: 0,
				Rollover:     envelope.Rollover,
				AccountID:    envelope.AccountID,
			})
			if err != nil {
				return fmt.Errorf("reset envelope %d: %w", envelope.ID, err)
			}
			reset++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if reset > 0 {
		slog.InfoContext(ctx, "Envelopes reset", "count", reset)
	}
	return reset, nil
}
