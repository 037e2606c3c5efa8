package roadmap

import (
	"errors"
	"fmt"

	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

// Proficiency bounds. Unrated subdomains count as DefaultProficiency.
const (
	MinProficiency     = 0
	MaxProficiency     = 5
	DefaultProficiency = 3
)

// ErrInvalidProficiency is returned for out-of-range levels or unknown
// subdomain names.
var ErrInvalidProficiency = errors.New("invalid proficiency")

var proficiencyLabels = [...]string{
	"Unfamiliar",
	"Beginner",
	"Developing",
	"Moderate",
	"Proficient",
	"Mastered",
}

// ProficiencyLabel names a level. Levels outside 0..5 have no label.
func ProficiencyLabel(level int) string {
	if level < MinProficiency || level > MaxProficiency {
		return ""
	}
	return proficiencyLabels[level]
}

// ValidateProficiency checks that every key names a subdomain of tax and
// every level is within range.
func ValidateProficiency(tax *taxonomy.Taxonomy, proficiency map[string]int) error {
	for name, level := range proficiency {
		if _, ok := tax.Subdomain(name); !ok {
			return fmt.Errorf("%w: unknown subdomain %q", ErrInvalidProficiency, name)
		}
		if level < MinProficiency || level > MaxProficiency {
			return fmt.Errorf("%w: %s level %d outside %d..%d", ErrInvalidProficiency, name, level, MinProficiency, MaxProficiency)
		}
	}
	return nil
}
