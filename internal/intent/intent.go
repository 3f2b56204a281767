// Package intent classifies the latest user turn into a chat intent using an
// ordered list of regex patterns. Image-generation patterns are evaluated
// before image-search patterns: "generate an image of a cat" matches both
// grammars and must route to generation, so precedence is explicit here
// rather than implicit in code layout.
package intent

import (
	"regexp"
	"strings"

	"cloud-backend/internal/models"
)

type Kind int

const (
	KindNone Kind = iota
	KindImageSearch
	KindImageGeneration
)

// Intent is the classification result. Query holds the generation prompt or
// the search query depending on Kind; empty for KindNone.
type Intent struct {
	Kind  Kind
	Query string
}

var None = Intent{Kind: KindNone}

// pattern pairs a compiled regex with a constructor for the intent it yields.
// subjectGroup is the capture group holding the free-text subject; 0 means
// the pattern has no subject and the full original message is used instead.
type pattern struct {
	re           *regexp.Regexp
	kind         Kind
	subjectGroup int
}

// Evaluation order is the contract: first match wins.
var patterns = []pattern{
	// Generation with an explicit subject: "draw me a picture of a red panda".
	{
		re:           regexp.MustCompile(`(?i)\b(generate|create|make|draw|design)\s+(me\s+)?(an?\s+)?(image|picture|art|artwork|illustration)\s+(of|for|showing|with)\s+(.+)`),
		kind:         KindImageGeneration,
		subjectGroup: 6,
	},
	// Bare generation: "generate an image" with no subject. The whole
	// message becomes the prompt.
	{
		re:           regexp.MustCompile(`(?i)\b(generate|create|make|draw|design)\s+(me\s+)?(an?\s+)?(image|picture|art|artwork|illustration)\b`),
		kind:         KindImageGeneration,
		subjectGroup: 0,
	},
	// Search with a leading verb: "show me some pictures of mountains".
	{
		re:           regexp.MustCompile(`(?i)\b(show|find|get)\s+(me\s+)?(some\s+)?(images|pictures|photos)\s+(of|for)\s+(.+)`),
		kind:         KindImageSearch,
		subjectGroup: 6,
	},
	// Bare search: "images of the northern lights".
	{
		re:           regexp.MustCompile(`(?i)\b(images|pictures|photos)\s+(of|for)\s+(.+)`),
		kind:         KindImageSearch,
		subjectGroup: 3,
	},
}

// Classify inspects the final turn only. If the turn list is empty or the
// final turn was not authored by the user, no intent is inferred.
func Classify(turns []models.ChatTurn) Intent {
	if len(turns) == 0 {
		return None
	}
	last := turns[len(turns)-1]
	if last.Role != "user" {
		return None
	}

	text := strings.TrimSpace(last.Text())
	if text == "" {
		return None
	}

	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		query := text
		if p.subjectGroup > 0 {
			query = strings.TrimSpace(m[p.subjectGroup])
		}
		return Intent{Kind: p.kind, Query: query}
	}
	return None
}
