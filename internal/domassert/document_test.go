package domassert

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDocumentAndQuery(t *testing.T) {
	doc, err := BuildDocument(`<div class="card"><img src="x.png"><h3>Title</h3></div>`, "")
	require.NoError(t, err)

	n, ok := doc.Query(".card img")
	require.True(t, ok)
	assert.Equal(t, "img", n.Data)

	src, ok := Attr(n, "src")
	assert.True(t, ok)
	assert.Equal(t, "x.png", src)

	_, ok = doc.Query(".card p")
	assert.False(t, ok)
}

func TestQuerySelectorGroupFirstMatchWins(t *testing.T) {
	doc, err := BuildDocument(`<div class="card"><h3>late</h3><span class="card-title">first</span></div>`, "")
	require.NoError(t, err)

	// document order decides, not the order of alternatives in the group
	n, ok := doc.Query(".card h2, .card .card-title, .card h3")
	require.True(t, ok)
	assert.Equal(t, "h3", n.Data)
}

func TestQueryInvalidSelectorIsAbsent(t *testing.T) {
	doc, err := BuildDocument(`<div></div>`, "")
	require.NoError(t, err)

	_, ok := doc.Query("div[")
	assert.False(t, ok)
	assert.Empty(t, doc.QueryAll("div["))
}

func TestQueryAll(t *testing.T) {
	doc, err := BuildDocument(`<ul><li>a</li><li>b</li><li>c</li></ul>`, "")
	require.NoError(t, err)
	assert.Len(t, doc.QueryAll("ul li"), 3)
}

func TestBuildDocumentEmptyInput(t *testing.T) {
	doc, err := BuildDocument("", "")
	require.NoError(t, err)

	_, ok := doc.Query("body")
	assert.True(t, ok, "parser always synthesizes html/head/body")
	assert.Error(t, AssertExists(doc, ".card"))
}

func TestBuildDocumentTooLarge(t *testing.T) {
	_, err := BuildDocument(strings.Repeat("a", MaxDocumentBytes+1), "")
	require.Error(t, err)

	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
	assert.Contains(t, err.Error(), "markup exceeds")

	_, err = BuildDocument("", strings.Repeat("a", MaxDocumentBytes+1))
	assert.ErrorAs(t, err, &perr)
}

func TestAssertExists(t *testing.T) {
	doc, err := BuildDocument(`<div class="card"></div>`, "")
	require.NoError(t, err)

	assert.NoError(t, AssertExists(doc, ".card"))

	err = AssertExists(doc, ".missing")
	var aerr *AssertionError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, ".missing", aerr.Selector)
	assert.Contains(t, err.Error(), ".missing")
}
