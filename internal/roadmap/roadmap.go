package roadmap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/p-n-ai/sat-prep/internal/taxonomy"
)

// ErrLevelOutOfRange is returned when a progress cursor falls outside 0..N.
var ErrLevelOutOfRange = errors.New("progress level out of range")

// Step is one decoded roadmap position.
type Step struct {
	StepNumber       int      `json:"stepNumber"`
	Domain           string   `json:"domain"`
	Category         string   `json:"category"`
	SkillName        string   `json:"skillName"`
	SkillNumber      int      `json:"skillNumber"`
	Subskills        []string `json:"subskills"`
	ProficiencyLevel int      `json:"proficiencyLevel"`
	ProficiencyLabel string   `json:"proficiencyLabel,omitempty"`
	Color            string   `json:"color,omitempty"`
	Icon             string   `json:"icon,omitempty"`
	IsCompleted      bool     `json:"isCompleted"`
	// Degraded marks a token that could not be resolved. Such steps keep
	// their position but carry no skill data.
	Degraded bool   `json:"degraded,omitempty"`
	Token    string `json:"token,omitempty"`
}

// Decode rebuilds steps from a roadmap string. Tokens that do not parse or
// name no skill become degraded steps; decoding never fails as a whole.
// An empty string has no steps.
func Decode(s string, tax *taxonomy.Taxonomy) []Step {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	tokens := strings.Split(s, "-")
	steps := make([]Step, len(tokens))
	for i, tok := range tokens {
		step := Step{StepNumber: i + 1}
		n, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			step.Degraded = true
			step.Token = tok
			steps[i] = step
			continue
		}
		step.SkillNumber = n

		ref, ok := tax.SkillByNumber(n)
		if !ok {
			step.Degraded = true
			step.Token = tok
			steps[i] = step
			continue
		}
		step.Domain = ref.Domain
		step.Category = ref.Subdomain
		step.SkillName = ref.Skill.Name
		step.Subskills = append([]string(nil), ref.Skill.Topics...)
		step.Color = ref.Color
		step.Icon = ref.Icon
		step.ProficiencyLevel = DefaultProficiency
		step.ProficiencyLabel = ProficiencyLabel(DefaultProficiency)
		steps[i] = step
	}
	return steps
}

// EncodeSteps is Encode for decoded steps. Degraded steps are written back
// exactly as they were read, including empty tokens.
func EncodeSteps(steps []Step) string {
	parts := make([]string, len(steps))
	for i, st := range steps {
		if st.Degraded {
			parts[i] = st.Token
			continue
		}
		parts[i] = strconv.Itoa(st.SkillNumber)
	}
	return strings.Join(parts, "-")
}

// AdvanceProgress moves the cursor to target. Any target in 0..n is
// allowed, including moving backwards.
func AdvanceProgress(current, target, n int) (int, error) {
	if target < 0 || target > n {
		return current, fmt.Errorf("%w: %d not in 0..%d", ErrLevelOutOfRange, target, n)
	}
	return target, nil
}

// MarkCompleted sets IsCompleted on every step: a step at index i is
// completed exactly when i < level.
func MarkCompleted(steps []Step, level int) {
	for i := range steps {
		steps[i].IsCompleted = i < level
	}
}

// Roadmap is a learner's decoded roadmap with its progress cursor.
type Roadmap struct {
	LearnerID     string         `json:"learnerId"`
	RoadmapString string         `json:"roadmapString"`
	CurrentLevel  int            `json:"currentLevel"`
	Proficiency   map[string]int `json:"proficiency,omitempty"`
	Steps         []Step         `json:"steps"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// FromRecord decodes a persisted record. Step proficiency comes from the
// record's ratings when present. A cursor beyond the decoded length is
// clamped.
func FromRecord(learnerID string, rec Record, tax *taxonomy.Taxonomy) *Roadmap {
	steps := Decode(rec.RoadmapString, tax)
	applyProficiency(steps, rec.Proficiency)

	level := rec.CurrentLevel
	if level < 0 {
		level = 0
	}
	if level > len(steps) {
		level = len(steps)
	}
	MarkCompleted(steps, level)

	return &Roadmap{
		LearnerID:     learnerID,
		RoadmapString: rec.RoadmapString,
		CurrentLevel:  level,
		Proficiency:   rec.Proficiency,
		Steps:         steps,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func applyProficiency(steps []Step, proficiency map[string]int) {
	if len(proficiency) == 0 {
		return
	}
	levels := make(map[string]int, len(proficiency))
	for name, level := range proficiency {
		levels[strings.ToLower(strings.TrimSpace(name))] = level
	}
	for i := range steps {
		if steps[i].Degraded {
			continue
		}
		if level, ok := levels[strings.ToLower(steps[i].Category)]; ok {
			steps[i].ProficiencyLevel = level
			steps[i].ProficiencyLabel = ProficiencyLabel(level)
		}
	}
}

// Len returns the number of steps.
func (r *Roadmap) Len() int {
	return len(r.Steps)
}

// CurrentStep returns the first step not yet completed. It reports false
// when every step is done.
func (r *Roadmap) CurrentStep() (Step, bool) {
	if r.CurrentLevel >= len(r.Steps) {
		return Step{}, false
	}
	return r.Steps[r.CurrentLevel], true
}

// Percent returns the completed share of the roadmap, 0..100.
func (r *Roadmap) Percent() int {
	if len(r.Steps) == 0 {
		return 0
	}
	return r.CurrentLevel * 100 / len(r.Steps)
}

// Completed reports whether every step is done.
func (r *Roadmap) Completed() bool {
	return len(r.Steps) > 0 && r.CurrentLevel >= len(r.Steps)
}

// Degraded returns the steps that could not be resolved.
func (r *Roadmap) Degraded() []Step {
	var out []Step
	for _, st := range r.Steps {
		if st.Degraded {
			out = append(out, st)
		}
	}
	return out
}

// Record returns the persisted form.
func (r *Roadmap) Record() Record {
	return Record{
		RoadmapString: r.RoadmapString,
		CurrentLevel:  r.CurrentLevel,
		Proficiency:   r.Proficiency,
		UpdatedAt:     r.UpdatedAt,
	}
}
