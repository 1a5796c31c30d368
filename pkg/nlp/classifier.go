package nlp

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"CarelineGolang/internal/entity"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type classifier struct {
	mu        sync.RWMutex
	mappings  map[string]IntentMappingData
	stopWords map[string]bool
}

func NewClassifier(mappings map[string]IntentMappingData) IClassifier {
	stopWords := map[string]bool{
		"i": true, "a": true, "an": true, "the": true, "to": true,
		"is": true, "am": true, "are": true, "was": true, "do": true,
		"my": true, "me": true, "for": true, "of": true, "at": true,
		"in": true, "on": true, "and": true, "or": true, "with": true,
		"can": true, "could": true, "would": true, "please": true,
		"you": true, "your": true, "have": true, "has": true,
	}

	if mappings == nil {
		mappings = DefaultIntentMappings()
	}

	return &classifier{
		mappings:  mappings,
		stopWords: stopWords,
	}
}

func (c *classifier) Classify(ctx context.Context, text string, history []entity.Turn) ([]entity.IntentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleanText := c.cleanText(text)
	tokens := c.extractTokens(cleanText)

	c.mu.RLock()
	defer c.mu.RUnlock()

	var results []entity.IntentResult
	for name, mapping := range c.mappings {
		confidence, _ := c.scoreIntent(tokens, cleanText, mapping)
		if confidence > 0.2 {
			results = append(results, entity.IntentResult{
				Kind:       entity.ParseIntentKind(name),
				Confidence: confidence,
			})
		}
	}

	results = c.applyHistoryBias(results, tokens, history)

	if len(results) == 0 {
		return []entity.IntentResult{{Kind: entity.IntentUnknown, Confidence: 0}}, nil
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	return results, nil
}

// applyHistoryBias nudges ambiguous messages toward the conversation's
// running topic: a bare confirmation after an appointment question should
// not reclassify the whole exchange.
func (c *classifier) applyHistoryBias(results []entity.IntentResult, tokens []string, history []entity.Turn) []entity.IntentResult {
	if len(history) == 0 || len(tokens) > 4 {
		return results
	}

	confirmations := map[string]bool{
		"yes": true, "yeah": true, "sure": true, "ok": true, "okay": true,
		"confirm": true, "correct": true, "right": true,
	}
	confirming := false
	for _, t := range tokens {
		if confirmations[t] {
			confirming = true
			break
		}
	}
	if !confirming {
		return results
	}

	last := history[len(history)-1].Intent
	if last == entity.IntentUnknown {
		return results
	}

	for i := range results {
		if results[i].Kind == last {
			results[i].Confidence = math.Min(results[i].Confidence+0.3, 1.0)
			return results
		}
	}
	return append(results, entity.IntentResult{Kind: last, Confidence: 0.5})
}

func (c *classifier) scoreIntent(tokens []string, fullText string, mapping IntentMappingData) (float64, []MatchResult) {
	var matches []MatchResult
	totalScore := 0.0
	maxPossibleScore := 0.0

	for _, keyword := range mapping.Keywords {
		for _, token := range tokens {
			if strings.EqualFold(token, keyword) {
				matches = append(matches, MatchResult{Keyword: keyword, Score: 1.0, Type: "exact"})
				totalScore += 1.0
			}
		}
		maxPossibleScore += 1.0
	}

	for _, synonym := range mapping.Synonyms {
		similarity := c.similarity(fullText, synonym)
		if similarity > 0.6 {
			matches = append(matches, MatchResult{Keyword: synonym, Score: similarity, Type: "synonym"})
			totalScore += similarity * 1.2
		}
	}

	for _, keyword := range mapping.Keywords {
		for _, token := range tokens {
			similarity := c.similarity(token, keyword)
			if similarity > 0.5 && similarity < 1.0 {
				matches = append(matches, MatchResult{Keyword: keyword, Score: similarity * 0.7, Type: "fuzzy"})
				totalScore += similarity * 0.7
			}
		}
	}

	totalScore += c.categoryBonus(tokens, mapping.Category)

	// Square-root normalization keeps a single strong keyword hit above
	// threshold even for intents with large keyword banks.
	confidence := totalScore / math.Max(math.Sqrt(maxPossibleScore), 1.0)
	if len(matches) > 1 {
		confidence *= 1.1
	}
	confidence = math.Min(confidence, 1.0)

	return confidence, matches
}

func (c *classifier) similarity(text1, text2 string) float64 {
	norm1 := c.cleanText(text1)
	norm2 := c.cleanText(text2)

	if norm1 == norm2 {
		return 1.0
	}

	if strings.Contains(norm1, norm2) || strings.Contains(norm2, norm1) {
		shorter, longer := norm1, norm2
		if len(norm1) > len(norm2) {
			shorter, longer = norm2, norm1
		}
		return float64(len(shorter)) / float64(len(longer))
	}

	distance := levenshteinDistance(norm1, norm2)
	maxLen := math.Max(float64(len(norm1)), float64(len(norm2)))
	if maxLen == 0 {
		return 0.0
	}

	return math.Max(0, 1.0-(float64(distance)/maxLen))
}

func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := 0; j <= len(s2); j++ {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 0
			if s1[i-1] != s2[j-1] {
				cost = 1
			}
			matrix[i][j] = minOf(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}

func minOf(a, b, c int) int {
	if a < b && a < c {
		return a
	} else if b < c {
		return b
	}
	return c
}

func (c *classifier) categoryBonus(tokens []string, category string) float64 {
	categoryKeywords := map[string][]string{
		"medical":     {"pain", "hurt", "sick", "fever", "symptom", "ill", "ache", "doctor", "medicine"},
		"scheduling":  {"book", "schedule", "appointment", "visit", "slot", "tomorrow", "today", "available"},
		"information": {"where", "when", "what", "which", "hours", "location", "insurance", "cost", "price"},
		"urgent":      {"emergency", "urgent", "immediately", "critical", "severe", "now"},
		"social":      {"hello", "hi", "thanks", "thank", "bye", "goodbye", "morning", "evening"},
		"records":     {"record", "report", "prescription", "history", "document", "result"},
	}

	keywords, exists := categoryKeywords[category]
	if !exists {
		return 0.0
	}

	bonus := 0.0
	for _, token := range tokens {
		for _, keyword := range keywords {
			if strings.Contains(strings.ToLower(token), keyword) {
				bonus += 0.1
			}
		}
	}

	return math.Min(bonus, 0.3)
}

func (c *classifier) cleanText(text string) string {
	text = strings.ToLower(text)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, text)

	result = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, result)

	return strings.Join(strings.Fields(result), " ")
}

func (c *classifier) extractTokens(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(text) {
		word = strings.TrimSpace(word)
		if len(word) > 1 && !c.stopWords[word] {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

func (c *classifier) Definitions() []entity.IntentDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]entity.IntentDefinition, 0, len(c.mappings))
	for name, mapping := range c.mappings {
		defs = append(defs, entity.IntentDefinition{
			Name:      name,
			Patterns:  append([]string(nil), mapping.Synonyms...),
			Responses: append([]string(nil), mapping.Responses...),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func (c *classifier) AddPattern(intentName, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mapping, ok := c.mappings[intentName]
	if !ok {
		return fmt.Errorf("unknown intent %q", intentName)
	}

	for _, existing := range mapping.Synonyms {
		if strings.EqualFold(existing, pattern) {
			return nil
		}
	}
	mapping.Synonyms = append(mapping.Synonyms, pattern)
	c.mappings[intentName] = mapping
	return nil
}

// CannedResponse returns one of the intent's configured responses, chosen
// deterministically from the seed.
func (c *classifier) CannedResponse(kind entity.IntentKind, seed uint64) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	mapping, ok := c.mappings[kind.String()]
	if !ok || len(mapping.Responses) == 0 {
		return "I'm not sure how to respond to that. Could you please rephrase?"
	}
	return mapping.Responses[seed%uint64(len(mapping.Responses))]
}

// DefaultIntentMappings holds the built-in intent configuration. A
// deployment normally extends it through the admin pattern endpoint.
func DefaultIntentMappings() map[string]IntentMappingData {
	return map[string]IntentMappingData{
		"greeting": {
			Intent:   "greeting",
			Keywords: []string{"hello", "hi", "hey", "morning", "afternoon", "evening"},
			Synonyms: []string{"good morning", "good afternoon", "good evening", "hi there"},
			Category: "social",
			Responses: []string{
				"Hi! How can I assist you with your healthcare needs today?",
				"Hello! What can I help you with today?",
			},
		},
		"appointment_booking": {
			Intent:   "appointment_booking",
			Keywords: []string{"book", "appointment", "schedule", "consultation", "reschedule", "visit"},
			Synonyms: []string{
				"i want to book an appointment", "schedule a consultation",
				"book a doctor visit", "see a doctor", "make an appointment",
				"reschedule my appointment",
			},
			Category: "scheduling",
			Responses: []string{
				"I'll help you book an appointment. Could you specify which department or doctor you'd like to see?",
			},
		},
		"symptom_inquiry": {
			Intent:   "symptom_inquiry",
			Keywords: []string{"headache", "fever", "pain", "ache", "sick", "cough", "cold", "dizzy", "nauseous", "hurts"},
			Synonyms: []string{
				"i have a headache", "my stomach hurts", "i'm feeling sick",
				"i am not feeling well", "i have a fever", "feeling dizzy",
			},
			Category: "medical",
			Responses: []string{
				"I understand you're not feeling well. Could you tell me more about your symptoms?",
			},
		},
		"department_info": {
			Intent:   "department_info",
			Keywords: []string{"departments", "specialties", "services", "cardiology", "pediatrics", "neurology", "gynecology"},
			Synonyms: []string{
				"what departments do you have", "show me your specialties",
				"what medical services do you offer", "tell me about your departments",
			},
			Category: "information",
			Responses: []string{
				"I'll be happy to tell you about our departments and specialties.",
			},
		},
		"medical_records": {
			Intent:   "medical_records",
			Keywords: []string{"records", "reports", "prescription", "results", "documents"},
			Synonyms: []string{
				"i need my medical records", "download my reports",
				"view my prescription history", "my test results",
			},
			Category: "records",
			Responses: []string{
				"I can help you access your medical records.",
			},
		},
		"emergency": {
			Intent:   "emergency",
			Keywords: []string{"emergency", "urgent", "critical", "ambulance", "severe"},
			Synonyms: []string{
				"this is an emergency", "i need urgent help", "critical situation",
				"call an ambulance",
			},
			Category: "urgent",
			Responses: []string{
				"If this is a medical emergency, please call our emergency line or visit the 24/7 emergency department immediately.",
			},
		},
		"general_inquiry": {
			Intent:   "general_inquiry",
			Keywords: []string{"hours", "located", "location", "insurance", "parking", "cost", "price", "address"},
			Synonyms: []string{
				"what are your working hours", "where are you located",
				"do you accept insurance", "how much does it cost",
			},
			Category: "information",
			Responses: []string{
				"I'll help you with that information.",
			},
		},
		"thanks": {
			Intent:   "thanks",
			Keywords: []string{"thanks", "thank", "appreciated", "helpful"},
			Synonyms: []string{"thank you", "thanks a lot", "that was helpful"},
			Category: "social",
			Responses: []string{
				"You're welcome! Is there anything else I can help you with?",
				"Happy to help! Let me know if you need anything else.",
			},
		},
		"goodbye": {
			Intent:   "goodbye",
			Keywords: []string{"bye", "goodbye", "later"},
			Synonyms: []string{"see you later", "talk to you later", "that's all"},
			Category: "social",
			Responses: []string{
				"Take care! We're here whenever you need us.",
				"Goodbye! Wishing you good health.",
			},
		},
	}
}
