package chatService

import (
	"errors"
	"strings"
	"testing"
	"time"

	"CarelineGolang/internal/api/chat"
	chatRepository "CarelineGolang/internal/api/chat/repository"
	"CarelineGolang/internal/entity"
	"CarelineGolang/internal/session"
	"CarelineGolang/pkg/knowledge"
	"CarelineGolang/pkg/utils"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
	"golang.org/x/text/language"
)

type fakeClassifier struct {
	results     []entity.IntentResult
	err         error
	sawDeadline bool
	onClassify  func()
}

func (f *fakeClassifier) Classify(ctx context.Context, text string, history []entity.Turn) ([]entity.IntentResult, error) {
	if _, ok := ctx.Deadline(); ok {
		f.sawDeadline = true
	}
	if f.onClassify != nil {
		f.onClassify()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeClassifier) Definitions() []entity.IntentDefinition { return nil }

func (f *fakeClassifier) AddPattern(intentName, pattern string) error { return nil }

func (f *fakeClassifier) CannedResponse(kind entity.IntentKind, seed uint64) string {
	return "canned:" + kind.String()
}

type fakeExtractor struct {
	entities    []entity.Entity
	err         error
	sawDeadline bool
}

func (f *fakeExtractor) Extract(ctx context.Context, text string, intent entity.IntentKind) ([]entity.Entity, error) {
	if _, ok := ctx.Deadline(); ok {
		f.sawDeadline = true
	}
	return f.entities, f.err
}

type fakeLangDetector struct{}

func (f *fakeLangDetector) Detect(text string) language.Tag { return language.English }

type fakeKnowledge struct {
	results []knowledge.SearchResult
	err     error
}

func (f *fakeKnowledge) Upsert(ctx context.Context, doc entity.KnowledgeDocument) error { return nil }

func (f *fakeKnowledge) Query(ctx context.Context, query string, k int, filters map[string]string) ([]knowledge.SearchResult, error) {
	return f.results, f.err
}

func (f *fakeKnowledge) Count() int { return len(f.results) }

type fakeGemini struct {
	answer      string
	err         error
	calls       int
	sawDeadline bool
}

func (f *fakeGemini) GenerateAnswer(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if _, ok := ctx.Deadline(); ok {
		f.sawDeadline = true
	}
	return f.answer, f.err
}

type fakeTurnsStore struct {
	turns map[string][]entity.Turn
}

func (f *fakeTurnsStore) InsertTurn(ctx context.Context, id, sessionID, channel string, turn entity.Turn) error {
	f.turns[sessionID] = append(f.turns[sessionID], turn)
	return nil
}

func (f *fakeTurnsStore) GetTurnsBySession(ctx context.Context, sessionID string, limit int) ([]entity.Turn, error) {
	ts := f.turns[sessionID]
	if limit > 0 && limit < len(ts) {
		ts = ts[len(ts)-limit:]
	}
	return ts, nil
}

func (f *fakeTurnsStore) CountTurnsBySession(ctx context.Context, sessionID string) (int, error) {
	return len(f.turns[sessionID]), nil
}

type fakeRepository struct {
	turns *fakeTurnsStore
}

func (f *fakeRepository) NewClient(tx bool) (chatRepository.Client, error) {
	return chatRepository.Client{
		Turns:    f.turns,
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

type fakeMailer struct {
	alerts chan string
}

func (f *fakeMailer) SendEscalationAlert(sessionID, message, urgency string) error {
	f.alerts <- urgency
	return nil
}

type serviceFixture struct {
	service    IChatService
	sessions   *session.Store
	classifier *fakeClassifier
	extractor  *fakeExtractor
	gemini     *fakeGemini
	mailer     *fakeMailer
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	sessions := session.New(time.Hour, logger)
	t.Cleanup(sessions.Close)

	fx := &serviceFixture{
		sessions:   sessions,
		classifier: &fakeClassifier{results: []entity.IntentResult{{Kind: entity.IntentGeneralInquiry, Confidence: 0.9}}},
		extractor:  &fakeExtractor{},
		gemini:     &fakeGemini{answer: "We are open from 9am to 5pm."},
		mailer:     &fakeMailer{alerts: make(chan string, 1)},
	}

	fx.service = NewChatService(
		logger, sessions, fx.classifier, fx.extractor, &fakeLangDetector{},
		&fakeKnowledge{}, fx.gemini, fx.mailer, nil, utils.New(),
	)

	return fx
}

func (fx *serviceFixture) lastTurn(t *testing.T, sessionID string) entity.Turn {
	t.Helper()
	turns, err := fx.sessions.History(sessionID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, turns)
	return turns[len(turns)-1]
}

func TestProcessMessageGeneratesAnswer(t *testing.T) {
	fx := newFixture(t)

	resp, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "what are your opening hours"}, "web")
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, resp.Response, "We are open from 9am to 5pm.")
	assert.Equal(t, "general_inquiry", resp.Intent)
	assert.Equal(t, 1, fx.gemini.calls)

	turn := fx.lastTurn(t, resp.SessionID)
	assert.Equal(t, "what are your opening hours", turn.UserMessage)
	assert.Equal(t, resp.Response, turn.BotResponse)
	assert.Equal(t, "web", turn.Metadata["channel"])
}

func TestProcessMessageEmptyMessage(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "   "}, "web")
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)
}

func TestProcessMessageTooLong(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: strings.Repeat("a", maxMessageRunes+1)}, "web")
	assert.ErrorIs(t, err, chat.ErrMessageTooLong)
}

func TestProcessMessageClassifierFailure(t *testing.T) {
	fx := newFixture(t)
	fx.classifier.err = context.DeadlineExceeded

	resp, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "anything at all"}, "web")
	require.NoError(t, err)

	assert.Contains(t, resp.Response, "canned:unknown")
	assert.Equal(t, "unknown", resp.Intent)
	assert.Equal(t, 0, fx.gemini.calls)

	turn := fx.lastTurn(t, resp.SessionID)
	assert.Equal(t, entity.IntentUnknown, turn.Intent)
	assert.Equal(t, "classification_failed", turn.Metadata["pipeline_error"])
}

func TestProcessMessageExtractionFailure(t *testing.T) {
	fx := newFixture(t)
	fx.extractor.err = errors.New("pattern bank unavailable")

	resp, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "I have a fever"}, "web")
	require.NoError(t, err)

	assert.Contains(t, resp.Response, "canned:unknown")
	assert.Equal(t, "unknown", resp.Intent)
	assert.Equal(t, 0, fx.gemini.calls)

	turn := fx.lastTurn(t, resp.SessionID)
	assert.Equal(t, entity.IntentUnknown, turn.Intent)
	assert.Empty(t, turn.Entities)
	assert.Equal(t, "extraction_failed", turn.Metadata["pipeline_error"])
}

func TestProcessMessageCancelledBeforeStart(t *testing.T) {
	fx := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.service.ProcessMessage(ctx,
		chat.ChatRequest{Message: "I have a fever", SessionID: "cancelled-early"}, "web")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = fx.sessions.History("cancelled-early", 0)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestProcessMessageCancelledMidPipelineAppendsNothing(t *testing.T) {
	fx := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	fx.classifier.onClassify = cancel

	_, err := fx.service.ProcessMessage(ctx,
		chat.ChatRequest{Message: "what are your opening hours", SessionID: "cancelled-mid"}, "web")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, fx.gemini.calls)

	turns, err := fx.sessions.History("cancelled-mid", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestProcessMessageBoundsExternalCalls(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "what are your opening hours"}, "web")
	require.NoError(t, err)

	assert.True(t, fx.classifier.sawDeadline)
	assert.True(t, fx.extractor.sawDeadline)
	assert.True(t, fx.gemini.sawDeadline)
}

func TestProcessMessageGenerationFailure(t *testing.T) {
	fx := newFixture(t)
	fx.gemini.err = context.DeadlineExceeded
	fx.gemini.answer = ""

	resp, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "what are your opening hours"}, "web")
	require.NoError(t, err)

	assert.Contains(t, resp.Response, "canned:general_inquiry")

	turn := fx.lastTurn(t, resp.SessionID)
	assert.Equal(t, "true", turn.Metadata["generation_failed"])
}

func TestProcessMessageGreetingSkipsGeneration(t *testing.T) {
	fx := newFixture(t)
	fx.classifier.results = []entity.IntentResult{{Kind: entity.IntentGreeting, Confidence: 0.8}}

	resp, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "hello"}, "web")
	require.NoError(t, err)

	assert.Contains(t, resp.Response, "canned:greeting")
	assert.Equal(t, 0, fx.gemini.calls)
}

func TestProcessMessageLowConfidenceAsksToClarify(t *testing.T) {
	fx := newFixture(t)
	fx.classifier.results = []entity.IntentResult{{Kind: entity.IntentGeneralInquiry, Confidence: 0.05}}

	resp, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "hmm blue pelican"}, "web")
	require.NoError(t, err)

	assert.Contains(t, resp.Response, "canned:unknown")
	assert.Equal(t, 0, fx.gemini.calls)

	turn := fx.lastTurn(t, resp.SessionID)
	assert.Equal(t, "true", turn.Metadata["low_confidence"])
}

func TestProcessMessageEmergencyEscalates(t *testing.T) {
	fx := newFixture(t)
	fx.classifier.results = []entity.IntentResult{{Kind: entity.IntentEmergency, Confidence: 0.95}}
	fx.extractor.entities = []entity.Entity{
		{Kind: entity.EntityUrgency, Raw: "critical", Normalized: "emergency"},
	}

	resp, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "my father collapsed"}, "web")
	require.NoError(t, err)

	assert.Contains(t, resp.Response, "canned:emergency")
	assert.Equal(t, 0, fx.gemini.calls)

	select {
	case urgency := <-fx.mailer.alerts:
		assert.Equal(t, "emergency", urgency)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an escalation alert")
	}

	turn := fx.lastTurn(t, resp.SessionID)
	assert.Equal(t, "true", turn.Metadata["escalated"])

	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "call_emergency", resp.Suggestions[0].Action)
}

func TestProcessMessageNoSuggestionsWithoutTrigger(t *testing.T) {
	fx := newFixture(t)

	resp, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "what are your opening hours"}, "web")
	require.NoError(t, err)

	assert.Empty(t, resp.Suggestions)
	assert.Empty(t, resp.NextQuestion)
}

func TestProcessMessageSymptomFollowUp(t *testing.T) {
	fx := newFixture(t)
	fx.classifier.results = []entity.IntentResult{{Kind: entity.IntentSymptomInquiry, Confidence: 0.8}}
	fx.extractor.entities = []entity.Entity{
		{Kind: entity.EntitySymptom, Raw: "fever", Normalized: "fever"},
	}

	resp, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "I have a fever"}, "web")
	require.NoError(t, err)

	assert.Equal(t, "How long have you been experiencing this?", resp.NextQuestion)

	actions := make([]string, 0, len(resp.Suggestions))
	for _, sg := range resp.Suggestions {
		actions = append(actions, sg.Action)
	}
	assert.Contains(t, actions, "book_appointment")
}

func TestProcessMessageSessionContinuity(t *testing.T) {
	fx := newFixture(t)

	first, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "what are your opening hours"}, "web")
	require.NoError(t, err)

	second, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "and on weekends", SessionID: first.SessionID}, "web")
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)

	turns, err := fx.sessions.History(first.SessionID, 0)
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

func TestProcessMessageDeterministicForSameInput(t *testing.T) {
	fx := newFixture(t)
	fx.classifier.results = []entity.IntentResult{{Kind: entity.IntentGreeting, Confidence: 0.8}}

	first, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "hello", SessionID: "fixed-session"}, "web")
	require.NoError(t, err)

	second, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "hello", SessionID: "fixed-session"}, "web")
	require.NoError(t, err)

	assert.Equal(t, first.Response, second.Response)
}

func TestHistory(t *testing.T) {
	fx := newFixture(t)

	resp, err := fx.service.ProcessMessage(context.Background(),
		chat.ChatRequest{Message: "what are your opening hours"}, "web")
	require.NoError(t, err)

	history, err := fx.service.History(context.Background(), resp.SessionID, 0)
	require.NoError(t, err)

	assert.Equal(t, resp.SessionID, history.SessionID)
	require.Len(t, history.Turns, 1)
	assert.Equal(t, "what are your opening hours", history.Turns[0].UserMessage)
	assert.Equal(t, "general_inquiry", history.Turns[0].Intent)
}

func TestHistoryUnknownSession(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.History(context.Background(), "missing", 0)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func newArchivedFixture(t *testing.T, archive *fakeTurnsStore) IChatService {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	sessions := session.New(time.Hour, logger)
	t.Cleanup(sessions.Close)

	return NewChatService(
		logger, sessions, &fakeClassifier{}, &fakeExtractor{}, &fakeLangDetector{},
		&fakeKnowledge{}, &fakeGemini{}, &fakeMailer{alerts: make(chan string, 1)},
		&fakeRepository{turns: archive}, utils.New(),
	)
}

func TestHistoryServedFromArchive(t *testing.T) {
	archive := &fakeTurnsStore{turns: map[string][]entity.Turn{
		"archived-session": {
			{UserMessage: "what are your opening hours", BotResponse: "9am to 5pm", Intent: entity.IntentGeneralInquiry, Confidence: 0.9, Timestamp: time.Now()},
			{UserMessage: "thanks", BotResponse: "You're welcome.", Intent: entity.IntentThanks, Confidence: 0.8, Timestamp: time.Now()},
		},
	}}
	service := newArchivedFixture(t, archive)

	history, err := service.History(context.Background(), "archived-session", 1)
	require.NoError(t, err)

	assert.Equal(t, "archived-session", history.SessionID)
	require.Len(t, history.Turns, 1)
	assert.Equal(t, "thanks", history.Turns[0].UserMessage)
	assert.Equal(t, "thanks", history.Turns[0].Intent)
}

func TestHistoryUnknownInArchiveToo(t *testing.T) {
	service := newArchivedFixture(t, &fakeTurnsStore{turns: map[string][]entity.Turn{}})

	_, err := service.History(context.Background(), "never-seen", 0)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}
