package models

import "strings"

// Submission is a learner submission. The set of variants is closed:
// MarkupSubmission and ComponentSubmission.
type Submission interface {
	Kind() Kind
	sealed()
}

// MarkupSubmission is raw HTML and CSS text
type MarkupSubmission struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
}

func (MarkupSubmission) Kind() Kind { return KindMarkupStyle }
func (MarkupSubmission) sealed()    {}

// Props are the properties a component is invoked with
type Props map[string]any

// Node is an element of a rendered component tree
type Node struct {
	Type     string         `json:"type"`
	Props    map[string]any `json:"props,omitempty"`
	Text     string         `json:"text,omitempty"`
	Children []*Node        `json:"children,omitempty"`
}

// Walk visits n and its descendants depth-first, stopping when fn returns false
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns the first node (depth-first) of the given element type
func (n *Node) Find(typ string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if c.Type == typ {
			found = c
			return false
		}
		return true
	})
	return found
}

// Count returns how many nodes of the given element type are in the tree
func (n *Node) Count(typ string) int {
	count := 0
	n.Walk(func(c *Node) bool {
		if c.Type == typ {
			count++
		}
		return true
	})
	return count
}

// Component is a learner component: invoked with props, returns its render tree.
// A nil tree means the component rendered nothing.
type Component func(props Props) *Node

// ComponentSubmission wraps a learner component. Render is nil when the
// submission did not produce a callable.
type ComponentSubmission struct {
	Name   string
	Render Component
}

func (ComponentSubmission) Kind() Kind { return KindComponent }
func (ComponentSubmission) sealed()    {}

// StaticComponent returns a component that always renders tree.
// Used when the tree was produced by an external renderer.
func StaticComponent(tree *Node) Component {
	return func(Props) *Node {
		return tree
	}
}

// TextContent concatenates the text of n and all its descendants
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.Walk(func(c *Node) bool {
		sb.WriteString(c.Text)
		return true
	})
	return sb.String()
}
