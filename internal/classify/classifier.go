// Package classify suggests expense type, category and tag from the
// description, learning from how past expenses were filed.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/storage"
)

// Classification is the suggested filing for a description. Empty fields
// mean no suggestion.
type Classification struct {
	Type     core.ExpenseType `json:"type"`
	Category string           `json:"category"`
	Tag      string           `json:"tag"`
}

// maxEditDistance bounds the fuzzy match: "netflix" and "netflx" should hit,
// "netflix" and "gasolina" should not.
const maxEditDistance = 2

// Classifier matches normalized descriptions against learned rules. Rules
// persist in the settings table as a JSON object keyed by normalized
// description; lookups go exact first, then substring, then Levenshtein.
type Classifier struct {
	repo  *storage.Repository
	cache *cache.LRUCache[Classification]
}

func New(repo *storage.Repository) *Classifier {
	return &Classifier{
		repo:  repo,
		cache: cache.NewLRUCache[Classification](256, 10*time.Minute),
	}
}

// Normalize lowercases and collapses whitespace so "  NETFLIX  Mensual " and
// "netflix mensual" share a rule key.
func Normalize(description string) string {
	return strings.Join(strings.Fields(strings.ToLower(description)), " ")
}

// Classify returns the best suggestion for the description, or false when no
// rule comes close enough.
func (c *Classifier) Classify(ctx context.Context, description string) (Classification, bool, error) {
	key := Normalize(description)
	if key == "" {
		return Classification{}, false, nil
	}

	if hit, ok := c.cache.Get(key); ok {
		return hit, true, nil
	}

	rules, err := c.loadRules(ctx)
	if err != nil {
		return Classification{}, false, err
	}

	if match, ok := rules[key]; ok {
		c.cache.Set(key, match)
		return match, true, nil
	}

	// Substring match in either direction: a learned "netflix" rule should
	// classify "netflix abril", and vice versa.
	for ruleKey, match := range rules {
		if strings.Contains(key, ruleKey) || strings.Contains(ruleKey, key) {
			c.cache.Set(key, match)
			return match, true, nil
		}
	}

	bestDistance := maxEditDistance + 1
	var best Classification
	found := false
	for ruleKey, match := range rules {
		if d := levenshtein.ComputeDistance(key, ruleKey); d < bestDistance {
			bestDistance = d
			best = match
			found = true
		}
	}
	if found {
		c.cache.Set(key, best)
		return best, true, nil
	}
	return Classification{}, false, nil
}

// Learn records how a description was filed. Besides the full normalized
// key, descriptions longer than two words also store their two-word prefix,
// so "alquiler piso madrid" later matches "alquiler piso".
func (c *Classifier) Learn(ctx context.Context, description string, cl Classification) error {
	key := Normalize(description)
	if key == "" {
		return core.ErrEmptyDescription
	}

	rules, err := c.loadRules(ctx)
	if err != nil {
		return err
	}
	rules[key] = cl
	if words := strings.Fields(key); len(words) > 2 {
		rules[strings.Join(words[:2], " ")] = cl
	}

	blob, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("marshal classification rules: %w", err)
	}
	err = c.repo.WithTx(ctx, func(q *storage.Queries) error {
		return q.SetSetting(ctx, core.KeyClassificationRules, string(blob))
	})
	if err != nil {
		return fmt.Errorf("save classification rules: %w", err)
	}

	c.cache.Purge()
	return nil
}

func (c *Classifier) loadRules(ctx context.Context) (map[string]Classification, error) {
	settings, err := c.repo.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	rules := make(map[string]Classification)
	if settings.ClassificationRules == "" {
		return rules, nil
	}
	if err := json.Unmarshal([]byte(settings.ClassificationRules), &rules); err != nil {
		return nil, fmt.Errorf("parse classification rules: %w", err)
	}
	return rules, nil
}
