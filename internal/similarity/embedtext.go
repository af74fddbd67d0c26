package similarity

import "github.com/hyperengineering/pagesmith/internal/markup"

// MaxEmbeddingRunes keeps embedding inputs under typical model context limits.
const MaxEmbeddingRunes = 6000

// EmbeddingText is the projection of page content that gets embedded. Stored
// originals and candidates must both pass through it so their vectors are
// comparable.
func EmbeddingText(content string) string {
	text := markup.StripTags(content)
	if text == "" {
		text = content
	}
	runes := []rune(text)
	if len(runes) > MaxEmbeddingRunes {
		return string(runes[:MaxEmbeddingRunes])
	}
	return text
}
