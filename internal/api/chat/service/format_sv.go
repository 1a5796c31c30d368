package chatService

import (
	"os"

	"CarelineGolang/internal/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// suggestionTrigger attaches follow-up actions to a reply. A trigger fires
// when the intent matches, the required entity is present and the missing
// entity is absent. Replies without a firing trigger carry no suggestions.
type suggestionTrigger struct {
	Intent         string              `json:"intent"`
	RequiresEntity string              `json:"requires_entity,omitempty"`
	MissingEntity  string              `json:"missing_entity,omitempty"`
	Suggestions    []entity.Suggestion `json:"suggestions,omitempty"`
	NextQuestion   string              `json:"next_question,omitempty"`
}

type replyFormatter struct {
	log      *logrus.Logger
	triggers []suggestionTrigger
}

func newReplyFormatter(log *logrus.Logger) *replyFormatter {
	f := &replyFormatter{
		log:      log,
		triggers: defaultTriggers(),
	}

	if path := os.Getenv("SUGGESTIONS_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.WithFields(logrus.Fields{
				"path":  path,
				"error": err.Error(),
			}).Warn("Failed to read suggestions file, using defaults")
			return f
		}

		var triggers []suggestionTrigger
		if err := json.Unmarshal(raw, &triggers); err != nil {
			log.WithFields(logrus.Fields{
				"path":  path,
				"error": err.Error(),
			}).Warn("Failed to parse suggestions file, using defaults")
			return f
		}

		f.triggers = triggers
	}

	return f
}

// Format applies the first matching trigger and decorates the text with a
// seed-picked emoji so retried requests render identically.
func (f *replyFormatter) Format(text string, intent entity.IntentKind, entities []entity.Entity, seed uint64) entity.Reply {
	reply := entity.Reply{Text: text}

	for _, tr := range f.triggers {
		if tr.Intent != intent.String() {
			continue
		}
		if tr.RequiresEntity != "" && !hasEntityNamed(entities, tr.RequiresEntity) {
			continue
		}
		if tr.MissingEntity != "" && hasEntityNamed(entities, tr.MissingEntity) {
			continue
		}

		reply.Suggestions = tr.Suggestions
		reply.NextQuestion = tr.NextQuestion
		break
	}

	if intent == entity.IntentSymptomInquiry {
		if dept, label, ok := routeSymptom(entities); ok {
			reply.Suggestions = append(reply.Suggestions, entity.Suggestion{
				Label:  "Visit " + label,
				Action: "view_department:" + dept,
			})
			if reply.Metadata == nil {
				reply.Metadata = make(map[string]string)
			}
			reply.Metadata["department"] = dept
		}
	}

	if em := emojiFor(intent, seed); em != "" {
		reply.Text = reply.Text + " " + em
	}

	return reply
}

// symptomDepartments routes a normalized symptom to the department that
// handles it. Symptoms without a row fall through with no routing.
var symptomDepartments = map[string]string{
	"chest pain":          "cardiology",
	"palpitations":        "cardiology",
	"shortness of breath": "pulmonology",
	"cough":               "pulmonology",
	"headache":            "neurology",
	"dizziness":           "neurology",
	"rash":                "dermatology",
	"itching":             "dermatology",
	"stomach ache":        "gastroenterology",
	"nausea":              "gastroenterology",
	"fever":               "general medicine",
	"fatigue":             "general medicine",
	"back pain":           "orthopedics",
	"joint pain":          "orthopedics",
}

var departmentLabels = map[string]string{
	"cardiology":       "Cardiology",
	"pulmonology":      "Pulmonology",
	"neurology":        "Neurology",
	"dermatology":      "Dermatology",
	"gastroenterology": "Gastroenterology",
	"general medicine": "General Medicine",
	"orthopedics":      "Orthopedics",
}

func routeSymptom(entities []entity.Entity) (dept, label string, ok bool) {
	for _, e := range entities {
		if e.Kind != entity.EntitySymptom {
			continue
		}
		if d, found := symptomDepartments[e.Normalized]; found {
			return d, departmentLabels[d], true
		}
	}
	return "", "", false
}

func hasEntityNamed(entities []entity.Entity, name string) bool {
	for _, e := range entities {
		if e.Kind.String() == name {
			return true
		}
	}
	return false
}

var intentEmojis = map[entity.IntentKind][]string{
	entity.IntentGreeting:           {"\U0001F44B", "\U0001F60A"},
	entity.IntentAppointmentBooking: {"\U0001F4C5", "\U0001F5D3️"},
	entity.IntentSymptomInquiry:     {"\U0001FA7A"},
	entity.IntentDepartmentInfo:     {"\U0001F3E5"},
	entity.IntentEmergency:          {"\U0001F6A8"},
	entity.IntentThanks:             {"\U0001F60A", "\U0001F64F"},
	entity.IntentGoodbye:            {"\U0001F44B"},
}

func emojiFor(intent entity.IntentKind, seed uint64) string {
	set, ok := intentEmojis[intent]
	if !ok || len(set) == 0 {
		return ""
	}
	return set[seed%uint64(len(set))]
}

func defaultTriggers() []suggestionTrigger {
	return []suggestionTrigger{
		{
			Intent:        "appointment_booking",
			MissingEntity: "date",
			NextQuestion:  "What date and time would work best for you?",
			Suggestions: []entity.Suggestion{
				{Label: "Book an appointment", Action: "book_appointment"},
				{Label: "Call reception", Action: "call_reception"},
			},
		},
		{
			Intent:         "appointment_booking",
			RequiresEntity: "date",
			Suggestions: []entity.Suggestion{
				{Label: "Confirm booking", Action: "confirm_booking"},
				{Label: "Talk to reception", Action: "call_reception"},
			},
		},
		{
			Intent:         "symptom_inquiry",
			RequiresEntity: "symptom",
			NextQuestion:   "How long have you been experiencing this?",
			Suggestions: []entity.Suggestion{
				{Label: "Book an appointment", Action: "book_appointment"},
				{Label: "Find a department", Action: "view_departments"},
			},
		},
		{
			Intent: "department_info",
			Suggestions: []entity.Suggestion{
				{Label: "View doctors", Action: "view_doctors"},
				{Label: "Book an appointment", Action: "book_appointment"},
			},
		},
		{
			Intent: "medical_records",
			Suggestions: []entity.Suggestion{
				{Label: "Request my records", Action: "request_records"},
			},
		},
		{
			Intent: "emergency",
			Suggestions: []entity.Suggestion{
				{Label: "Call the emergency line", Action: "call_emergency"},
			},
		},
	}
}
