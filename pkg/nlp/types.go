package nlp

import (
	"context"

	"CarelineGolang/internal/entity"

	"golang.org/x/text/language"
)

// MatchResult explains one scoring contribution for an intent hypothesis.
type MatchResult struct {
	Keyword string  `json:"keyword"`
	Score   float64 `json:"score"`
	Type    string  `json:"type"` // exact, synonym, fuzzy
}

// IClassifier scores a message against the known intent set. The full
// ranked list is returned; callers pick the best hypothesis but may keep
// the rest for disambiguation.
type IClassifier interface {
	Classify(ctx context.Context, text string, history []entity.Turn) ([]entity.IntentResult, error)
	Definitions() []entity.IntentDefinition
	AddPattern(intentName, pattern string) error
	CannedResponse(kind entity.IntentKind, seed uint64) string
}

// IExtractor pulls typed entities out of a message, scoped by the intent
// the classifier settled on.
type IExtractor interface {
	Extract(ctx context.Context, text string, intent entity.IntentKind) ([]entity.Entity, error)
}

// ILanguageDetector guesses the message language, falling back to the
// configured default when the guess is too weak to trust.
type ILanguageDetector interface {
	Detect(text string) language.Tag
}

// IntentMappingData is the configuration behind one intent: exact keywords,
// longer synonym phrases, and canned responses used when generation is not
// involved (greeting, thanks, goodbye, clarification).
type IntentMappingData struct {
	Intent    string   `json:"intent"`
	Keywords  []string `json:"keywords"`
	Synonyms  []string `json:"synonyms"`
	Category  string   `json:"category"`
	Responses []string `json:"responses"`
}
