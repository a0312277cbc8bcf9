package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cbodonnell/platespotter/pkg/catalog"
	"github.com/cbodonnell/platespotter/pkg/game/types"
)

// BonusRules maps a normalized player name to a score multiplier.
type BonusRules map[string]int

// ParseBonusRules parses entries of the form "name=multiplier".
// Names are matched case-insensitively; multipliers must be at least 1.
func ParseBonusRules(entries []string) (BonusRules, error) {
	rules := make(BonusRules, len(entries))
	for _, entry := range entries {
		name, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid bonus rule %q: expected name=multiplier", entry)
		}
		key := normalizeName(name)
		if key == "" {
			return nil, fmt.Errorf("invalid bonus rule %q: empty name", entry)
		}
		multiplier, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid bonus rule %q: %w", entry, err)
		}
		if multiplier < 1 {
			return nil, fmt.Errorf("invalid bonus rule %q: multiplier must be at least 1", entry)
		}
		rules[key] = multiplier
	}
	return rules, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Calculator computes player scores from claimed regions.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	catalog *catalog.Catalog
	rules   BonusRules
}

func NewCalculator(c *catalog.Catalog, rules BonusRules) *Calculator {
	normalized := make(BonusRules, len(rules))
	for name, multiplier := range rules {
		normalized[normalizeName(name)] = multiplier
	}
	return &Calculator{
		catalog: c,
		rules:   normalized,
	}
}

// Multiplier returns the bonus multiplier for the player name, 1 if none applies.
func (c *Calculator) Multiplier(name string) int {
	if m, ok := c.rules[normalizeName(name)]; ok && m > 0 {
		return m
	}
	return 1
}

// Score sums the point value of every claimed region and applies the
// player's bonus multiplier. Unknown region ids are worth catalog.DefaultPoints.
func (c *Calculator) Score(claims types.RegionSet, name string) int {
	base := 0
	for id := range claims {
		base += c.catalog.PointsFor(id)
	}
	return base * c.Multiplier(name)
}
