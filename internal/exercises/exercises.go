// Package exercises binds the embedded exercise content to the Go
// verifiers that grade it.
package exercises

import (
	"embed"

	"github.com/terra-clan/exercise-engine/internal/domassert"
	"github.com/terra-clan/exercise-engine/internal/models"
	"github.com/terra-clan/exercise-engine/internal/verify"
)

// Content holds one YAML document per exercise
//
//go:embed content/*.yaml
var Content embed.FS

// ContentDir is the directory of Content holding the YAML files
const ContentDir = "content"

// Verifiers returns a fresh slug -> verifier map for the built-in exercises
func Verifiers() map[string]models.Verifier {
	return map[string]models.Verifier{
		"card":      Card(),
		"navbar":    Navbar(),
		"counter":   Counter(),
		"greeting":  Greeting(),
		"user-card": UserCard(),
	}
}

// Card checks a card with image, title, text and an action, styled with
// rounded corners, a shadow and padding
func Card() *verify.Markup {
	return verify.NewMarkup(verify.MarkupSpec{
		Root:      ".card",
		RootFound: "Found .card element.",
		Families: []verify.ElementFamily{
			{
				Selector: ".card img",
				Found:    "Card contains an image.",
				Missing:  "Card should contain an image",
			},
			{
				Selector: ".card h2, .card h3, .card .card-title",
				Found:    "Card contains a title.",
				Missing:  "Card should contain a title (h2, h3, or .card-title)",
			},
			{
				Selector: ".card p, .card .card-text",
				Found:    "Card contains description text.",
				Missing:  "Card should contain description text (p or .card-text)",
			},
			{
				Selector: ".card button, .card a.button, .card .card-button",
				Found:    "Card contains a button or link.",
				Missing:  "Card should contain a button or link",
			},
		},
		Styles: []verify.StyleRule{{
			Selector:     ".card",
			MissingBlock: "Card CSS rules not found",
			Properties: []verify.Property{
				{Name: "border-radius", Found: "Card has rounded corners.", Missing: "Card should have rounded corners (border-radius)"},
				{Name: "box-shadow", Found: "Card has a shadow.", Missing: "Card should have a shadow (box-shadow)"},
				{Name: "padding", Found: "Card has padding.", Missing: "Card should have padding"},
			},
		}},
	})
}

// Navbar checks a horizontal flex navigation bar. Declarations are matched
// by property name, not substring.
func Navbar() *verify.Markup {
	return verify.NewMarkup(verify.MarkupSpec{
		Root:      ".navbar",
		RootFound: "Found .navbar element.",
		Families: []verify.ElementFamily{
			{
				Selector: ".navbar .logo, .navbar h1",
				Found:    "Navbar contains a brand.",
				Missing:  "Navbar should contain a brand (.logo or h1)",
			},
			{
				Selector: ".navbar ul li, .navbar .nav-item",
				Found:    "Navbar contains a list of items.",
				Missing:  "Navbar should contain a list of items (ul > li or .nav-item)",
			},
		},
		Styles: []verify.StyleRule{
			{
				Selector:     ".navbar",
				MissingBlock: "Navbar CSS rules not found",
				Properties: []verify.Property{
					{Name: "display", Found: "Navbar sets a display mode.", Missing: "Navbar should use flexbox (display)"},
					{Name: "justify-content", Found: "Navbar distributes its items.", Missing: "Navbar should distribute items (justify-content)"},
					{Name: "align-items", Found: "Navbar aligns its items.", Missing: "Navbar should vertically align items (align-items)"},
				},
			},
			{
				Selector:     ".nav-links",
				MissingBlock: "Nav links CSS rules not found",
				Properties: []verify.Property{
					{Name: "display", Found: "Nav links are laid out in a row.", Missing: "Nav links should be laid out in a row (display)"},
					{Name: "gap", Found: "Nav links are spaced.", Missing: "Nav links should be spaced apart (gap)"},
				},
			},
		},
		Custom: []verify.DocumentCheck{
			verify.MinCount(".navbar a", 3, "Navbar contains at least three links.", "Navbar should contain at least three links"),
		},
		Match: domassert.MatchStrict,
	})
}

// Counter only validates the component shape
func Counter() *verify.Component {
	return verify.NewComponent(verify.ComponentSpec{Name: "Counter"})
}

// Greeting only validates the component shape
func Greeting() *verify.Component {
	return verify.NewComponent(verify.ComponentSpec{Name: "Greeting"})
}

// UserCard inspects the rendered tree for an avatar and a name heading
func UserCard() *verify.Component {
	return verify.NewComponent(verify.ComponentSpec{
		Name: "UserCard",
		Checks: []verify.NodeCheck{
			verify.HasElement("img", "UserCard should render an avatar image"),
			verify.HasElement("h2", "UserCard should render the name in an h2"),
		},
	})
}
