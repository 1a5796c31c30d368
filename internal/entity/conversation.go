package entity

import (
	"time"
)

type IntentKind uint8

const (
	IntentUnknown IntentKind = iota
	IntentGreeting
	IntentAppointmentBooking
	IntentSymptomInquiry
	IntentDepartmentInfo
	IntentMedicalRecords
	IntentEmergency
	IntentGeneralInquiry
	IntentThanks
	IntentGoodbye
)

var intentNames = map[IntentKind]string{
	IntentUnknown:            "unknown",
	IntentGreeting:           "greeting",
	IntentAppointmentBooking: "appointment_booking",
	IntentSymptomInquiry:     "symptom_inquiry",
	IntentDepartmentInfo:     "department_info",
	IntentMedicalRecords:     "medical_records",
	IntentEmergency:          "emergency",
	IntentGeneralInquiry:     "general_inquiry",
	IntentThanks:             "thanks",
	IntentGoodbye:            "goodbye",
}

func (k IntentKind) String() string {
	if name, ok := intentNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseIntentKind maps a label to its kind. Labels the model produces that
// we have never seen collapse to IntentUnknown instead of failing.
func ParseIntentKind(label string) IntentKind {
	for kind, name := range intentNames {
		if name == label {
			return kind
		}
	}
	return IntentUnknown
}

// IntentResult is one classifier hypothesis: a label plus its confidence.
type IntentResult struct {
	Kind       IntentKind `json:"intent"`
	Confidence float64    `json:"confidence"`
}

type EntityKind uint8

const (
	EntityOther EntityKind = iota
	EntitySymptom
	EntityDepartment
	EntityDoctor
	EntityDate
	EntityTime
	EntityUrgency
	EntityPreviousVisit
	EntityPerson
)

var entityKindNames = map[EntityKind]string{
	EntityOther:         "other",
	EntitySymptom:       "symptom",
	EntityDepartment:    "department",
	EntityDoctor:        "doctor",
	EntityDate:          "date",
	EntityTime:          "time",
	EntityUrgency:       "urgency",
	EntityPreviousVisit: "previous_visit",
	EntityPerson:        "person",
}

func (k EntityKind) String() string {
	if name, ok := entityKindNames[k]; ok {
		return name
	}
	return "other"
}

// Entity is a typed span extracted from a user message. Raw keeps the text
// exactly as matched, Normalized carries the canonical value used by the
// suggestion table and the archive.
type Entity struct {
	Kind       EntityKind `json:"kind"`
	Raw        string     `json:"raw"`
	Normalized string     `json:"normalized"`
}

// Suggestion is an actionable hint attached to a Reply. Action is an opaque
// payload the widget interprets (deep link, prefill command, ...).
type Suggestion struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// Reply is the structured outcome of one pipeline run.
type Reply struct {
	Text         string            `json:"text"`
	Suggestions  []Suggestion      `json:"suggestions,omitempty"`
	NextQuestion string            `json:"next_question,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Turn records one completed exchange. Turns are immutable once appended to
// a session; a turn is only written after the full pipeline has produced a
// Reply (possibly a fallback one).
type Turn struct {
	UserMessage string            `json:"user_message"`
	BotResponse string            `json:"bot_response"`
	Intent      IntentKind        `json:"intent"`
	Confidence  float64           `json:"confidence"`
	Entities    []Entity          `json:"entities"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Session holds the state of one ongoing conversation.
type Session struct {
	ID           string    `json:"id"`
	Language     string    `json:"language"`
	Turns        []Turn    `json:"turns"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// HasEntity reports whether any extracted entity of the given kind exists.
func HasEntity(entities []Entity, kind EntityKind) bool {
	for _, e := range entities {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// FirstEntity returns the first entity of the given kind, if any.
func FirstEntity(entities []Entity, kind EntityKind) (Entity, bool) {
	for _, e := range entities {
		if e.Kind == kind {
			return e, true
		}
	}
	return Entity{}, false
}
