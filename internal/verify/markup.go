// Package verify implements the two verifier protocols: the full checklist
// used for markup-style exercises and the short-circuit component checks.
package verify

import (
	"fmt"

	"github.com/terra-clan/exercise-engine/internal/domassert"
	"github.com/terra-clan/exercise-engine/internal/models"
)

// SuccessText is appended as a final hint when no check failed
const SuccessText = "Congrats! All tests passed"

// ElementFamily is a required descendant. Selector may list alternatives
// ("h2, h3, .card-title"); the first match in document order satisfies it.
type ElementFamily struct {
	Selector string
	Found    string
	Missing  string
}

// Property is a required declaration inside a style rule
type Property struct {
	Name    string
	Found   string
	Missing string
}

// StyleRule lists the properties the block for Selector must declare
type StyleRule struct {
	Selector     string
	MissingBlock string
	Properties   []Property
}

// DocumentCheck is a structural check that a selector alone cannot express
type DocumentCheck struct {
	Found   string
	Missing string
	Check   func(doc *domassert.Document) bool
}

// MarkupSpec describes the checks of one markup-style exercise.
// Checks run in field order: root, families, styles, then custom checks.
type MarkupSpec struct {
	Root       string
	RootFound  string
	Families   []ElementFamily
	Styles     []StyleRule
	Custom     []DocumentCheck
	Match      domassert.MatchMode
	SuccessMsg string
}

// Markup grades markup-style submissions against a MarkupSpec
type Markup struct {
	spec MarkupSpec
}

// NewMarkup returns a verifier for spec
func NewMarkup(spec MarkupSpec) *Markup {
	if spec.Match == "" {
		spec.Match = domassert.MatchLoose
	}
	if spec.SuccessMsg == "" {
		spec.SuccessMsg = SuccessText
	}
	if spec.RootFound == "" && spec.Root != "" {
		spec.RootFound = fmt.Sprintf("Found %s element.", spec.Root)
	}
	return &Markup{spec: spec}
}

// Spec returns the checks this verifier runs
func (m *Markup) Spec() MarkupSpec {
	return m.spec
}

func (m *Markup) Kind() models.Kind {
	return models.KindMarkupStyle
}

// Verify implements models.Verifier
func (m *Markup) Verify(sub models.Submission) models.Result {
	ms, ok := sub.(models.MarkupSubmission)
	if !ok {
		return models.NewResult(models.StrategyFullChecklist, []models.Message{
			models.Error(fmt.Sprintf("expected %s submission", models.KindMarkupStyle)),
		})
	}
	return models.NewResult(models.StrategyFullChecklist, m.Check(ms.HTML, ms.CSS))
}

// Check runs the checklist and returns messages in check order.
// It never panics: a failure inside a check is reported as a final error.
func (m *Markup) Check(markup, css string) (messages []models.Message) {
	c := &checklist{}

	defer func() {
		if r := recover(); r != nil {
			c.fail(fmt.Sprint(r))
		}
		if !c.failed {
			c.pass(m.spec.SuccessMsg)
		}
		messages = c.messages
	}()

	doc, err := domassert.BuildDocument(markup, css)
	if err != nil {
		c.fail(err.Error())
		return
	}

	if m.spec.Root != "" {
		if err := domassert.AssertExists(doc, m.spec.Root); err != nil {
			c.fail(err.Error())
		} else {
			c.pass(m.spec.RootFound)
		}
	}

	for _, fam := range m.spec.Families {
		if _, ok := doc.Query(fam.Selector); ok {
			c.pass(fam.Found)
		} else {
			c.fail(fam.Missing)
		}
	}

	for _, rule := range m.spec.Styles {
		block, ok := doc.Styles().Block(rule.Selector, m.spec.Match)
		if !ok {
			c.fail(rule.MissingBlock)
			continue
		}
		for _, prop := range rule.Properties {
			if block.Has(prop.Name) {
				c.pass(prop.Found)
			} else {
				c.fail(prop.Missing)
			}
		}
	}

	for _, check := range m.spec.Custom {
		if check.Check(doc) {
			c.pass(check.Found)
		} else {
			c.fail(check.Missing)
		}
	}
	return
}

// MinCount is a DocumentCheck requiring at least n matches of selector
func MinCount(selector string, n int, found, missing string) DocumentCheck {
	return DocumentCheck{
		Found:   found,
		Missing: missing,
		Check: func(doc *domassert.Document) bool {
			return len(doc.QueryAll(selector)) >= n
		},
	}
}

// checklist accumulates messages without ever stopping early
type checklist struct {
	messages []models.Message
	failed   bool
}

func (c *checklist) pass(text string) {
	c.messages = append(c.messages, models.Hint(text))
}

func (c *checklist) fail(text string) {
	c.messages = append(c.messages, models.Error(text))
	c.failed = true
}
