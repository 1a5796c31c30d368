package empathy

import (
	"strings"

	"CarelineGolang/internal/entity"
)

// Emotion is a keyword-detected emotional cue in a user message.
type Emotion string

const (
	EmotionNeutral     Emotion = "neutral"
	EmotionAnxiety     Emotion = "anxiety"
	EmotionPain        Emotion = "pain"
	EmotionUrgency     Emotion = "urgency"
	EmotionFrustration Emotion = "frustration"
	EmotionConfusion   Emotion = "confusion"
)

var emotionKeywords = map[Emotion][]string{
	EmotionAnxiety:     {"worried", "anxious", "nervous", "scared", "concerned"},
	EmotionPain:        {"hurt", "painful", "aching", "sore", "discomfort", "pain"},
	EmotionUrgency:     {"emergency", "immediate", "urgent", "critical"},
	EmotionFrustration: {"frustrated", "annoyed", "upset", "angry"},
	EmotionConfusion:   {"confused", "unsure", "unclear", "don't understand", "dont understand"},
}

var empathyTemplates = map[Emotion][]string{
	EmotionAnxiety: {
		"I understand this might be causing you worry. We're here to help you through this.",
		"It's completely normal to feel anxious about your health. Let me assist you step by step.",
	},
	EmotionPain: {
		"I'm sorry to hear you're in pain. We'll make sure you get the care you need.",
		"Thank you for sharing about your discomfort. We'll help you find relief.",
	},
	EmotionUrgency: {
		"I understand the urgency of your situation. Let's get you the help you need right away.",
		"Your immediate concern is our priority. We'll handle this as quickly as possible.",
	},
	EmotionFrustration: {
		"I can hear your frustration. Let's work together to resolve this.",
		"I apologize for any difficulties you're experiencing. I'm here to help make things right.",
	},
	EmotionConfusion: {
		"Let me clarify that for you in simpler terms.",
		"I'll be happy to explain this more clearly. Please don't hesitate to ask questions.",
	},
}

const emergencyNotice = "If you need immediate medical attention, please call our emergency number or visit our 24/7 emergency department."

// DetectEmotion scans the message for emotional cues. Order of checks is
// fixed so the result is stable for a given message.
func DetectEmotion(message string) Emotion {
	lower := strings.ToLower(message)
	for _, emotion := range []Emotion{EmotionUrgency, EmotionPain, EmotionAnxiety, EmotionFrustration, EmotionConfusion} {
		for _, keyword := range emotionKeywords[emotion] {
			if strings.Contains(lower, keyword) {
				return emotion
			}
		}
	}
	return EmotionNeutral
}

// Enhance rewraps a generated answer with a compassionate preamble matched
// to the user's emotional cues and, for urgent contexts, an emergency
// notice. Template choice is a pure function of seed, keeping replies
// reproducible for a given session.
func Enhance(baseResponse, userMessage string, intent entity.IntentKind, entities []entity.Entity, seed uint64) string {
	var parts []string

	emotion := DetectEmotion(userMessage)
	if templates, ok := empathyTemplates[emotion]; ok && len(templates) > 0 {
		parts = append(parts, templates[seed%uint64(len(templates))])
	}

	if baseResponse != "" {
		parts = append(parts, baseResponse)
	}

	urgent := intent == entity.IntentEmergency
	if e, ok := entity.FirstEntity(entities, entity.EntityUrgency); ok && e.Normalized == "emergency" {
		urgent = true
	}
	if urgent && !strings.Contains(baseResponse, "emergency department") {
		parts = append(parts, emergencyNotice)
	}

	if emotion == EmotionAnxiety || urgent {
		parts = append(parts, "Please remember that you're in good hands with Careline Hospitals.")
	}

	return strings.Join(parts, " ")
}
