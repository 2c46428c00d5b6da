package classify

import (
	"context"
	"path/filepath"
	"testing"

	"finanzas/internal/core"
	"finanzas/internal/storage"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "finanzas.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return New(repo)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  NETFLIX  Mensual ", "netflix mensual"},
		{"netflix mensual", "netflix mensual"},
		{"Compra\tsemanal", "compra semanal"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLearnAndClassifyExact(t *testing.T) {
	c := newTestClassifier(t)
	ctx := context.Background()

	want := Classification{Type: core.TypeFixed, Category: "Ocio", Tag: "Lujo"}
	if err := c.Learn(ctx, "Netflix", want); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	got, ok, err := c.Classify(ctx, "  NETFLIX ")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !ok {
		t.Fatal("no match for learned description")
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestClassifySubstringBothDirections(t *testing.T) {
	c := newTestClassifier(t)
	ctx := context.Background()

	want := Classification{Type: core.TypeFixed, Category: "Ocio"}
	if err := c.Learn(ctx, "netflix", want); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	// Learned key inside the query.
	got, ok, err := c.Classify(ctx, "netflix abril")
	if err != nil || !ok {
		t.Fatalf("Classify = %v, %v", ok, err)
	}
	if got.Category != "Ocio" {
		t.Errorf("got %+v", got)
	}

	// Query inside the learned key.
	if err := c.Learn(ctx, "gimnasio municipal", Classification{Type: core.TypeFixed, Category: "Salud"}); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	got, ok, err = c.Classify(ctx, "gimnasio")
	if err != nil || !ok {
		t.Fatalf("Classify = %v, %v", ok, err)
	}
	if got.Category != "Salud" {
		t.Errorf("got %+v", got)
	}
}

func TestClassifyFuzzyMatch(t *testing.T) {
	c := newTestClassifier(t)
	ctx := context.Background()

	if err := c.Learn(ctx, "farmacia", Classification{Type: core.TypeVariable, Category: "Salud"}); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	// One typo away.
	got, ok, err := c.Classify(ctx, "farmacai")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if !ok {
		t.Fatal("fuzzy match missed a 2-edit neighbor")
	}
	if got.Category != "Salud" {
		t.Errorf("got %+v", got)
	}

	// Far away: no suggestion.
	_, ok, err = c.Classify(ctx, "gasolinera repsol")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if ok {
		t.Error("unrelated description matched")
	}
}

func TestLearnStoresTwoWordPrefix(t *testing.T) {
	c := newTestClassifier(t)
	ctx := context.Background()

	if err := c.Learn(ctx, "alquiler piso madrid", Classification{Type: core.TypeFixed, Category: "Vivienda"}); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	got, ok, err := c.Classify(ctx, "alquiler piso")
	if err != nil || !ok {
		t.Fatalf("prefix match = %v, %v", ok, err)
	}
	if got.Category != "Vivienda" {
		t.Errorf("got %+v", got)
	}
}

func TestLearnOverwritesAndInvalidatesCache(t *testing.T) {
	c := newTestClassifier(t)
	ctx := context.Background()

	if err := c.Learn(ctx, "spotify", Classification{Type: core.TypeVariable, Category: "Ocio"}); err != nil {
		t.Fatalf("Learn: %v", err)
	}
	// Populate the cache.
	if _, ok, err := c.Classify(ctx, "spotify"); err != nil || !ok {
		t.Fatalf("warm-up classify failed: %v", err)
	}

	// Re-file it; the cached result must not survive.
	if err := c.Learn(ctx, "spotify", Classification{Type: core.TypeFixed, Category: "Servicios"}); err != nil {
		t.Fatalf("relearn: %v", err)
	}
	got, ok, err := c.Classify(ctx, "spotify")
	if err != nil || !ok {
		t.Fatalf("Classify = %v, %v", ok, err)
	}
	if got.Category != "Servicios" || got.Type != core.TypeFixed {
		t.Errorf("stale classification: %+v", got)
	}
}

func TestLearnRejectsEmptyDescription(t *testing.T) {
	c := newTestClassifier(t)
	if err := c.Learn(context.Background(), "   ", Classification{}); err == nil {
		t.Error("empty description accepted")
	}
}

func TestClassifyEmptyDescription(t *testing.T) {
	c := newTestClassifier(t)
	_, ok, err := c.Classify(context.Background(), "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if ok {
		t.Error("empty description matched")
	}
}
