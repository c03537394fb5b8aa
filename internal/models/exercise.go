package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the closed set of submission shapes an exercise accepts
type Kind string

const (
	KindMarkupStyle Kind = "markup-style" // raw HTML + CSS text
	KindComponent   Kind = "component"    // callable producing a render tree
)

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	return k == KindMarkupStyle || k == KindComponent
}

// Difficulty is ordered: Easy < Medium < Hard
type Difficulty int

const (
	DifficultyEasy Difficulty = iota + 1
	DifficultyMedium
	DifficultyHard
)

var difficultyNames = map[Difficulty]string{
	DifficultyEasy:   "Easy",
	DifficultyMedium: "Medium",
	DifficultyHard:   "Hard",
}

func (d Difficulty) String() string {
	if name, ok := difficultyNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Difficulty(%d)", int(d))
}

// ParseDifficulty parses a difficulty name, case-insensitively
func ParseDifficulty(s string) (Difficulty, error) {
	for d, name := range difficultyNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown difficulty: %q", s)
}

func (d Difficulty) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Difficulty) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDifficulty(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Example is one worked input/output pair shown with the problem
type Example struct {
	ID          int    `json:"id"`
	Input       string `json:"inputText"`
	Output      string `json:"outputText"`
	Explanation string `json:"explanation,omitempty"`
}

// Metadata is the presentation content of an exercise
type Metadata struct {
	Title            string     `json:"title"`
	Difficulty       Difficulty `json:"difficulty"`
	Category         string     `json:"category"`
	Language         string     `json:"language"`
	ProblemStatement []string   `json:"problemStatement"`
	Examples         []Example  `json:"examples"`
	Constraints      []string   `json:"constraints"`
	Order            int        `json:"order"`
	VideoID          string     `json:"videoId,omitempty"`
}

// StarterArtifacts is the initial content shown to the learner.
// Which fields are populated depends on the exercise kind.
type StarterArtifacts struct {
	HTML         string `json:"html,omitempty"`
	CSS          string `json:"css,omitempty"`
	Component    string `json:"component,omitempty"`
	FunctionName string `json:"functionName,omitempty"`
}

// Solution is the reference solution. Code is display text only;
// HTML and CSS hold the split markup-style solution used by self-checks.
type Solution struct {
	Approach    string   `json:"approach"`
	Explanation []string `json:"explanation"`
	Code        string   `json:"code"`
	HTML        string   `json:"-"`
	CSS         string   `json:"-"`
}

// Exercise is one catalog entry. Immutable after construction.
type Exercise struct {
	ID       string           `json:"id"`
	Slug     string           `json:"slug"`
	Kind     Kind             `json:"type"`
	Metadata Metadata         `json:"metadata"`
	Starter  StarterArtifacts `json:"starter"`
	Solution Solution         `json:"solution"`
	Verifier Verifier         `json:"-"`
}

// Verifier grades a submission for one exercise.
// Implementations must be pure: no shared mutable state between calls.
type Verifier interface {
	Kind() Kind
	Verify(sub Submission) Result
}

// Verify runs the exercise verifier after checking the submission kind
func (e *Exercise) Verify(sub Submission) (Result, error) {
	if e.Verifier == nil {
		return Result{}, fmt.Errorf("exercise %s has no verifier", e.Slug)
	}
	if sub == nil || sub.Kind() != e.Kind {
		return Result{}, fmt.Errorf("exercise %s expects %s submission", e.Slug, e.Kind)
	}
	return e.Verifier.Verify(sub), nil
}

// Summary is the listing view of an exercise
type Summary struct {
	ID         string     `json:"id"`
	Slug       string     `json:"slug"`
	Kind       Kind       `json:"type"`
	Title      string     `json:"title"`
	Difficulty Difficulty `json:"difficulty"`
	Category   string     `json:"category"`
	Order      int        `json:"order"`
}

// Summary returns the listing view of e
func (e *Exercise) Summary() Summary {
	return Summary{
		ID:         e.ID,
		Slug:       e.Slug,
		Kind:       e.Kind,
		Title:      e.Metadata.Title,
		Difficulty: e.Metadata.Difficulty,
		Category:   e.Metadata.Category,
		Order:      e.Metadata.Order,
	}
}
