package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"finanzas/internal/core"
)

// LoadSettings reads the full settings table into the typed Settings struct.
// Absent keys fall back to defaults.
func (r *Repository) LoadSettings(ctx context.Context) (core.Settings, error) {
	values, err := r.queries.ListSettings(ctx)
	if err != nil {
		return core.Settings{}, fmt.Errorf("list settings: %w", err)
	}
	return core.DecodeSettings(values, time.Now()), nil
}

// SaveSettings writes every settings field in one transaction.
func (r *Repository) SaveSettings(ctx context.Context, s core.Settings) error {
	return r.WithTx(ctx, func(q *Queries) error {
		for key, value := range s.Encode() {
			if err := q.SetSetting(ctx, key, value); err != nil {
				return fmt.Errorf("set setting %q: %w", key, err)
			}
		}
		return nil
	})
}

var defaultCategories = []string{
	"Alimentación", "Transporte", "Vivienda", "Ocio", "Salud",
	"Educación", "Ropa", "Servicios", "Otros",
}

var defaultTags = []string{"Urgente", "Lujo", "Necesario", "Inversión"}

// SeedDefaults populates base categories, tags and settings on first run.
// Existing rows are left untouched, so the call is safe to repeat.
func (r *Repository) SeedDefaults(ctx context.Context) error {
	err := r.WithTx(ctx, func(q *Queries) error {
		for _, name := range defaultCategories {
			if _, err := GetOrCreateCategory(ctx, q, name); err != nil {
				return err
			}
		}
		for _, name := range defaultTags {
			if _, err := GetOrCreateTag(ctx, q, name); err != nil {
				return err
			}
		}
		existing, err := q.ListSettings(ctx)
		if err != nil {
			return fmt.Errorf("list settings: %w", err)
		}
		for key, value := range core.DefaultSettings(time.Now()).Encode() {
			if _, ok := existing[key]; ok {
				continue
			}
			if err := q.SetSetting(ctx, key, value); err != nil {
				return fmt.Errorf("seed setting %q: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Default data seeded",
		"categories", len(defaultCategories),
		"tags", len(defaultTags))
	return nil
}
