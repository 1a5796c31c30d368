package chatService

import (
	"os"
	"path/filepath"
	"testing"

	"CarelineGolang/internal/entity"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFormatter(t *testing.T) *replyFormatter {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return newReplyFormatter(logger)
}

func TestFormatAppointmentWithoutDateAsksForOne(t *testing.T) {
	f := newTestFormatter(t)

	reply := f.Format("Sure, let's set that up.", entity.IntentAppointmentBooking, nil, 0)

	assert.Equal(t, "What date and time would work best for you?", reply.NextQuestion)
	require.NotEmpty(t, reply.Suggestions)
	assert.Equal(t, "book_appointment", reply.Suggestions[0].Action)
}

func TestFormatAppointmentWithDateOffersConfirmation(t *testing.T) {
	f := newTestFormatter(t)

	entities := []entity.Entity{
		{Kind: entity.EntityDate, Raw: "tomorrow", Normalized: "tomorrow"},
	}
	reply := f.Format("Tomorrow works.", entity.IntentAppointmentBooking, entities, 0)

	assert.Empty(t, reply.NextQuestion)
	require.NotEmpty(t, reply.Suggestions)
	assert.Equal(t, "confirm_booking", reply.Suggestions[0].Action)
}

func TestFormatSymptomTriggerNeedsSymptomEntity(t *testing.T) {
	f := newTestFormatter(t)

	reply := f.Format("Tell me more.", entity.IntentSymptomInquiry, nil, 0)
	assert.Empty(t, reply.Suggestions)
	assert.Empty(t, reply.NextQuestion)

	entities := []entity.Entity{
		{Kind: entity.EntitySymptom, Raw: "fever", Normalized: "fever"},
	}
	reply = f.Format("Tell me more.", entity.IntentSymptomInquiry, entities, 0)
	assert.NotEmpty(t, reply.Suggestions)
	assert.Equal(t, "How long have you been experiencing this?", reply.NextQuestion)
}

func TestFormatRoutesSymptomToDepartment(t *testing.T) {
	f := newTestFormatter(t)

	entities := []entity.Entity{
		{Kind: entity.EntitySymptom, Raw: "chest pain", Normalized: "chest pain"},
	}
	reply := f.Format("I understand.", entity.IntentSymptomInquiry, entities, 0)

	assert.Equal(t, "cardiology", reply.Metadata["department"])

	var actions []string
	for _, sg := range reply.Suggestions {
		actions = append(actions, sg.Action)
	}
	assert.Contains(t, actions, "view_department:cardiology")
}

func TestFormatUnmappedSymptomNotRouted(t *testing.T) {
	f := newTestFormatter(t)

	entities := []entity.Entity{
		{Kind: entity.EntitySymptom, Raw: "hiccups", Normalized: "hiccups"},
	}
	reply := f.Format("I understand.", entity.IntentSymptomInquiry, entities, 0)

	assert.Empty(t, reply.Metadata["department"])
}

func TestFormatNoTriggerNoSuggestions(t *testing.T) {
	f := newTestFormatter(t)

	reply := f.Format("Here is the information.", entity.IntentGeneralInquiry, nil, 0)
	assert.Empty(t, reply.Suggestions)
	assert.Empty(t, reply.NextQuestion)
	assert.Equal(t, "Here is the information.", reply.Text)
}

func TestFormatEmojiDeterministic(t *testing.T) {
	f := newTestFormatter(t)

	first := f.Format("Hi!", entity.IntentGreeting, nil, 7)
	second := f.Format("Hi!", entity.IntentGreeting, nil, 7)
	assert.Equal(t, first.Text, second.Text)
	assert.NotEqual(t, "Hi!", first.Text)
}

func TestFormatLoadsTriggersFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suggestions.json")
	payload := `[
		{
			"intent": "general_inquiry",
			"suggestions": [{"label": "See FAQ", "action": "view_faq"}]
		}
	]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))
	t.Setenv("SUGGESTIONS_FILE", path)

	f := newTestFormatter(t)

	reply := f.Format("Answer.", entity.IntentGeneralInquiry, nil, 0)
	require.Len(t, reply.Suggestions, 1)
	assert.Equal(t, "view_faq", reply.Suggestions[0].Action)

	// The file replaces the built-in table entirely.
	reply = f.Format("Answer.", entity.IntentDepartmentInfo, nil, 0)
	assert.Empty(t, reply.Suggestions)
}

func TestFormatBadTriggersFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suggestions.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	t.Setenv("SUGGESTIONS_FILE", path)

	f := newTestFormatter(t)

	reply := f.Format("Answer.", entity.IntentDepartmentInfo, nil, 0)
	assert.NotEmpty(t, reply.Suggestions)
}
