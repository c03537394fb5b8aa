package domassert

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// MatchMode selects how declaration blocks are searched for properties
type MatchMode string

const (
	// MatchLoose finds the first "selector { ... }" block in the normalized
	// text and accepts a property when its name occurs anywhere in the
	// block, so "padding" is satisfied by "padding-left".
	MatchLoose MatchMode = "loose"

	// MatchStrict tokenizes the stylesheet and accepts a property only when
	// it is declared by a rule whose selector list contains the selector.
	// A stylesheet that does not parse as a whole is searched rule by rule
	// and only the declarations of matching rules are tokenized.
	MatchStrict MatchMode = "strict"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	ruleText   = regexp.MustCompile(`([^{}]+)\{([^{}]*)\}`)
)

// NormalizeCSS lowercases css and collapses runs of whitespace to one space
func NormalizeCSS(text string) string {
	return whitespace.ReplaceAllString(strings.ToLower(text), " ")
}

// RuleBlock extracts the body of the first "selector { ... }" block in the
// normalized stylesheet text
func RuleBlock(text, selector string) (string, bool) {
	sel := strings.TrimSpace(NormalizeCSS(selector))
	re, err := regexp.Compile(regexp.QuoteMeta(sel) + `\s*\{([^}]+)\}`)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(NormalizeCSS(text))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Stylesheet is the CSS text attached to a document
type Stylesheet struct {
	raw string

	parseOnce sync.Once
	parsed    *css.Stylesheet
	parseErr  error
}

// NewStylesheet wraps raw CSS text
func NewStylesheet(raw string) *Stylesheet {
	return &Stylesheet{raw: raw}
}

// Raw returns the CSS text as submitted
func (s *Stylesheet) Raw() string {
	return s.raw
}

// Block is a declaration block found for a selector
type Block struct {
	mode  MatchMode
	text  string
	props map[string]struct{}
}

// Has reports whether the block declares property, according to the mode
// the block was located with
func (b Block) Has(property string) bool {
	property = strings.ToLower(strings.TrimSpace(property))
	if b.mode == MatchStrict {
		_, ok := b.props[property]
		return ok
	}
	return strings.Contains(b.text, property)
}

// Block locates the declarations for selector
func (s *Stylesheet) Block(selector string, mode MatchMode) (Block, bool) {
	if mode == MatchStrict {
		return s.strictBlock(selector)
	}
	text, ok := RuleBlock(s.raw, selector)
	if !ok {
		return Block{}, false
	}
	return Block{mode: MatchLoose, text: text}, true
}

func (s *Stylesheet) strictBlock(selector string) (Block, bool) {
	s.parseOnce.Do(func() {
		s.parsed, s.parseErr = parser.Parse(s.raw)
		if s.parseErr != nil {
			slog.Warn("stylesheet does not parse, matching rules individually", "error", s.parseErr)
		}
	})

	want := strings.TrimSpace(NormalizeCSS(selector))
	props := make(map[string]struct{})
	found := false
	if s.parseErr != nil || s.parsed == nil {
		found = s.collectFromRuleBlocks(want, props)
	} else {
		collectDeclarations(s.parsed.Rules, want, props, &found)
	}
	if !found {
		return Block{}, false
	}
	return Block{mode: MatchStrict, props: props}, true
}

// collectFromRuleBlocks finds every rule whose selector list names want in
// the raw text and tokenizes each declaration body on its own
func (s *Stylesheet) collectFromRuleBlocks(want string, props map[string]struct{}) bool {
	found := false
	for _, m := range ruleText.FindAllStringSubmatch(NormalizeCSS(s.raw), -1) {
		if !selectorListNames(m[1], want) {
			continue
		}
		found = true
		decls, err := parser.ParseDeclarations(dropEmptyDeclarations(m[2]))
		if err != nil {
			slog.Warn("rule declarations do not parse", "selector", want, "error", err)
		}
		for _, decl := range decls {
			if prop := strings.ToLower(strings.TrimSpace(decl.Property)); prop != "" {
				props[prop] = struct{}{}
			}
		}
	}
	return found
}

// dropEmptyDeclarations removes stray semicolons, which the tokenizer
// rejects but browsers ignore
func dropEmptyDeclarations(body string) string {
	parts := strings.Split(body, ";")
	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ";")
}

func selectorListNames(list, want string) bool {
	for _, sel := range strings.Split(list, ",") {
		if strings.TrimSpace(sel) == want {
			return true
		}
	}
	return false
}

// collectDeclarations walks qualified rules, including those nested in
// at-rules such as @media, gathering declarations of rules naming want
func collectDeclarations(rules []*css.Rule, want string, props map[string]struct{}, found *bool) {
	for _, rule := range rules {
		if rule.Kind == css.AtRule {
			collectDeclarations(rule.Rules, want, props, found)
			continue
		}
		for _, sel := range rule.Selectors {
			if strings.TrimSpace(NormalizeCSS(sel)) != want {
				continue
			}
			*found = true
			for _, decl := range rule.Declarations {
				props[strings.ToLower(strings.TrimSpace(decl.Property))] = struct{}{}
			}
			break
		}
	}
}
