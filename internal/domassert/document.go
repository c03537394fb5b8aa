// Package domassert builds queryable documents from learner markup and
// answers the structural questions verifiers ask about them.
package domassert

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// MaxDocumentBytes bounds the markup accepted by BuildDocument
const MaxDocumentBytes = 1 << 20

// ParseError is returned when markup cannot be turned into a document
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse HTML: %s: %v", e.Reason, e.Err)
	}
	return "failed to parse HTML: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// AssertionError is returned by AssertExists when nothing matches
type AssertionError struct {
	Selector string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("Expected element %q to exist", e.Selector)
}

// Document is parsed markup with its associated stylesheet
type Document struct {
	root   *html.Node
	styles *Stylesheet
}

// BuildDocument parses markup and associates the stylesheet text with it
func BuildDocument(markup, css string) (*Document, error) {
	if len(markup) > MaxDocumentBytes {
		return nil, &ParseError{Reason: fmt.Sprintf("markup exceeds %d bytes", MaxDocumentBytes)}
	}
	if len(css) > MaxDocumentBytes {
		return nil, &ParseError{Reason: fmt.Sprintf("stylesheet exceeds %d bytes", MaxDocumentBytes)}
	}

	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, &ParseError{Reason: "invalid markup", Err: err}
	}

	return &Document{
		root:   root,
		styles: NewStylesheet(css),
	}, nil
}

// Root returns the document node
func (d *Document) Root() *html.Node {
	return d.root
}

// Styles returns the stylesheet attached to the document
func (d *Document) Styles() *Stylesheet {
	return d.styles
}

// Query returns the first element, in document order, matched by selector.
// The selector may be a group ("a, b") in which case any alternative matches.
// An invalid selector matches nothing.
func (d *Document) Query(selector string) (*html.Node, bool) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		slog.Warn("invalid selector", "selector", selector, "error", err)
		return nil, false
	}
	n := sel.MatchFirst(d.root)
	return n, n != nil
}

// QueryAll returns every element matched by selector in document order
func (d *Document) QueryAll(selector string) []*html.Node {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		slog.Warn("invalid selector", "selector", selector, "error", err)
		return nil
	}
	return sel.MatchAll(d.root)
}

// AssertExists fails with an *AssertionError when selector matches nothing
func AssertExists(doc *Document, selector string) error {
	if _, ok := doc.Query(selector); !ok {
		return &AssertionError{Selector: selector}
	}
	return nil
}

// Attr returns the value of an attribute on n
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
