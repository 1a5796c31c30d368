package entity

import "time"

// KnowledgeDocument is one chunk of hospital content (department page,
// doctor profile, FAQ entry, service description) indexed for retrieval.
type KnowledgeDocument struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Type     string            `json:"type"`     // department, doctor, faq, service, dialog
	Priority string            `json:"priority"` // high, medium
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IntentDefinition is the training material behind one intent label:
// example patterns plus canned responses used when generation is skipped.
type IntentDefinition struct {
	Name      string    `json:"name"`
	Patterns  []string  `json:"patterns"`
	Responses []string  `json:"responses"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
