// Package markup turns rendered HTML into plain text suitable for narration.
package markup

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// StripTags removes all markup, decodes entities and collapses runs of
// whitespace to single spaces. Script and style bodies are dropped with their
// elements.
func StripTags(doc string) string {
	text := strict.Sanitize(doc)
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}
