package nlp

import (
	"strings"

	"golang.org/x/text/language"
)

type languageDetector struct {
	fallback language.Tag
	markers  map[language.Tag][]string
}

// NewLanguageDetector builds a best-effort stopword-based detector. It only
// needs to separate the languages the hospital group actually serves; weak
// evidence falls back to the configured default.
func NewLanguageDetector(fallback language.Tag) ILanguageDetector {
	return &languageDetector{
		fallback: fallback,
		markers: map[language.Tag][]string{
			language.English: {
				"the", "and", "have", "my", "is", "are", "what", "where",
				"how", "can", "need", "want", "please",
			},
			language.Indonesian: {
				"saya", "dan", "yang", "tidak", "ingin", "mau", "bisa",
				"dengan", "untuk", "apa", "dimana", "tolong",
			},
			language.Spanish: {
				"el", "la", "que", "tengo", "necesito", "quiero", "donde",
				"como", "por", "favor", "una",
			},
		},
	}
}

func (d *languageDetector) Detect(text string) language.Tag {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return d.fallback
	}

	best := d.fallback
	bestHits := 0
	for tag, markers := range d.markers {
		hits := 0
		for _, w := range words {
			for _, m := range markers {
				if w == m {
					hits++
				}
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = tag
		}
	}

	// One stray stopword is not evidence.
	if bestHits < 2 && best != d.fallback {
		return d.fallback
	}
	return best
}
