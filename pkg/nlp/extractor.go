package nlp

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"CarelineGolang/internal/entity"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

type extractor struct {
	patterns map[entity.EntityKind][]*regexp.Regexp
}

// Kinds an intent is allowed to produce. Scoping the pattern bank by
// intent keeps e.g. doctor-name matching away from general inquiries.
var intentEntityScope = map[entity.IntentKind][]entity.EntityKind{
	entity.IntentAppointmentBooking: {
		entity.EntityDoctor, entity.EntityDepartment, entity.EntityDate,
		entity.EntityTime, entity.EntityPerson, entity.EntityPreviousVisit,
	},
	entity.IntentSymptomInquiry: {
		entity.EntitySymptom, entity.EntityUrgency, entity.EntityDepartment,
	},
	entity.IntentEmergency: {
		entity.EntitySymptom, entity.EntityUrgency,
	},
	entity.IntentDepartmentInfo: {
		entity.EntityDepartment, entity.EntityDoctor,
	},
	entity.IntentMedicalRecords: {
		entity.EntityDate, entity.EntityPerson,
	},
	entity.IntentGeneralInquiry: {
		entity.EntityDepartment, entity.EntityDate, entity.EntityTime,
	},
	entity.IntentUnknown: {
		entity.EntitySymptom, entity.EntityDepartment, entity.EntityDoctor,
		entity.EntityDate, entity.EntityTime, entity.EntityUrgency,
	},
}

func NewExtractor() IExtractor {
	raw := map[entity.EntityKind][]string{
		entity.EntitySymptom: {
			`(head|stomach|back|chest|throat)\s?(ache|pain)`,
			`(feeling|feel)\s(sick|nauseous|dizzy|tired|weak)`,
			`(have|having|has|got)\s(a\s)?(fever|cough|cold|flu|anxiety|depression|headache|migraine)`,
		},
		entity.EntityDepartment: {
			`(cardiology|neurology|pediatrics|orthopedics|gynecology|dermatology|oncology|ent|dental|maternity|radiology)`,
			`(heart|brain|child|bone|skin|cancer|ear|tooth)\s?(specialist|department|clinic|center)`,
		},
		entity.EntityDoctor: {
			`dr\.?\s[a-z]+`,
			`doctor\s[a-z]+`,
			`(specialist|physician|surgeon)\s(dr\.?\s)?[a-z]+`,
		},
		entity.EntityDate: {
			`(today|tomorrow|next|this)\s(week|month|monday|tuesday|wednesday|thursday|friday|saturday|sunday)`,
			`\b(today|tomorrow)\b`,
			`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`,
			`\d{1,2}[/-]\d{1,2}([/-]\d{2,4})?`,
		},
		entity.EntityTime: {
			`\d{1,2}:\d{2}\s?(am|pm)?`,
			`\d{1,2}\s?(am|pm)`,
			`(this|next)\s(morning|afternoon|evening)`,
		},
		entity.EntityUrgency: {
			`(emergency|urgent|immediate|asap|critical)`,
			`(life[\s-]threatening|severe|serious)`,
		},
		entity.EntityPreviousVisit: {
			`\b(i have been there before|visited before|been there before)\b`,
			`\b(never been|first time|haven'?t been)\b`,
		},
	}

	compiled := make(map[entity.EntityKind][]*regexp.Regexp, len(raw))
	for kind, patterns := range raw {
		for _, p := range patterns {
			compiled[kind] = append(compiled[kind], regexp.MustCompile(p))
		}
	}

	return &extractor{patterns: compiled}
}

func (e *extractor) Extract(ctx context.Context, text string, intent entity.IntentKind) ([]entity.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scope, ok := intentEntityScope[intent]
	if !ok {
		scope = intentEntityScope[entity.IntentUnknown]
	}

	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	var found []entity.Entity

	for _, kind := range scope {
		for _, pattern := range e.patterns[kind] {
			for _, match := range pattern.FindAllString(lower, -1) {
				raw := strings.TrimSpace(match)
				key := kind.String() + "|" + raw
				if raw == "" || seen[key] {
					continue
				}
				seen[key] = true
				found = append(found, entity.Entity{
					Kind:       kind,
					Raw:        raw,
					Normalized: normalizeEntity(kind, raw),
				})
			}
		}
	}

	return dedupeSubspans(found), nil
}

// dedupeSubspans drops matches fully contained in a longer match of the
// same kind ("ache" inside "headache").
func dedupeSubspans(entities []entity.Entity) []entity.Entity {
	sort.SliceStable(entities, func(i, j int) bool {
		return len(entities[i].Raw) > len(entities[j].Raw)
	})

	var kept []entity.Entity
	for _, cand := range entities {
		contained := false
		for _, longer := range kept {
			if longer.Kind == cand.Kind && strings.Contains(longer.Raw, cand.Raw) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, cand)
		}
	}
	return kept
}

var spacedSymptoms = map[string]string{
	"head ache":    "headache",
	"stomach ache": "stomachache",
	"back ache":    "backache",
}

func normalizeEntity(kind entity.EntityKind, raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))

	switch kind {
	case entity.EntitySymptom:
		if canonical, ok := spacedSymptoms[value]; ok {
			return canonical
		}
		value = strings.TrimPrefix(value, "having ")
		value = strings.TrimPrefix(value, "have ")
		value = strings.TrimPrefix(value, "has ")
		value = strings.TrimPrefix(value, "got ")
		value = strings.TrimPrefix(value, "a ")
		value = strings.TrimPrefix(value, "feeling ")
		value = strings.TrimPrefix(value, "feel ")
		return value
	case entity.EntityDoctor:
		value = strings.TrimPrefix(value, "doctor ")
		value = strings.TrimPrefix(value, "dr. ")
		value = strings.TrimPrefix(value, "dr ")
		return titleCaser.String(value)
	case entity.EntityUrgency:
		switch {
		case strings.Contains(value, "emergency"), strings.Contains(value, "critical"),
			strings.Contains(value, "life"):
			return "emergency"
		case strings.Contains(value, "urgent"), strings.Contains(value, "immediate"),
			strings.Contains(value, "asap"), strings.Contains(value, "severe"),
			strings.Contains(value, "serious"):
			return "urgent"
		default:
			return "routine"
		}
	case entity.EntityPreviousVisit:
		if strings.Contains(value, "never") || strings.Contains(value, "first time") ||
			strings.Contains(value, "haven") {
			return "no"
		}
		return "yes"
	default:
		return value
	}
}
