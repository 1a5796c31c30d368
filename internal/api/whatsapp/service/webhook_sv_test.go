package whatsappService

import (
	"errors"
	"strings"
	"testing"
	"time"

	"CarelineGolang/internal/api/chat"
	"CarelineGolang/internal/api/whatsapp"
	"CarelineGolang/pkg/utils"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type fakeChatService struct {
	resp        chat.ChatResponse
	err         error
	calls       int
	lastReq     chat.ChatRequest
	lastChannel string
}

func (f *fakeChatService) ProcessMessage(ctx context.Context, req chat.ChatRequest, channel string) (chat.ChatResponse, error) {
	f.calls++
	f.lastReq = req
	f.lastChannel = channel
	if f.err != nil {
		return chat.ChatResponse{}, f.err
	}
	resp := f.resp
	if resp.SessionID == "" {
		resp.SessionID = req.SessionID
	}
	return resp, nil
}

func (f *fakeChatService) History(ctx context.Context, sessionID string, lastN int) (chat.HistoryResponse, error) {
	return chat.HistoryResponse{}, nil
}

type sentMessage struct {
	to, text string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(ctx context.Context, phoneNumber, message string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{to: phoneNumber, text: message})
	return nil
}

func (f *fakeSender) Disconnect() error { return nil }

func (f *fakeSender) IsConnected() bool { return true }

type fakeRedis struct {
	seen map[string]bool
	err  error
}

func (f *fakeRedis) MarkSeen(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

type webhookFixture struct {
	service IWebhookService
	chat    *fakeChatService
	sender  *fakeSender
	redis   *fakeRedis
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	fx := &webhookFixture{
		chat:   &fakeChatService{resp: chat.ChatResponse{Response: "Hello from the hospital."}},
		sender: &fakeSender{},
		redis:  &fakeRedis{},
	}
	fx.service = NewWebhookService(logger, fx.chat, fx.sender, fx.redis, utils.New())
	return fx
}

func TestHandleInboundRoutesToChatPipeline(t *testing.T) {
	fx := newWebhookFixture(t)

	resp, err := fx.service.HandleInbound(context.Background(), whatsapp.WebhookRequest{
		MessageID: "msg-1",
		From:      "whatsapp:+15551234567",
		Body:      "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "15551234567", fx.chat.lastReq.SessionID)
	assert.Equal(t, "hello", fx.chat.lastReq.Message)
	assert.Equal(t, "whatsapp", fx.chat.lastChannel)

	require.Len(t, fx.sender.sent, 1)
	assert.Equal(t, "15551234567", fx.sender.sent[0].to)
	assert.Contains(t, fx.sender.sent[0].text, "Hello from the hospital.")
}

func TestHandleInboundDuplicateIsDropped(t *testing.T) {
	fx := newWebhookFixture(t)

	req := whatsapp.WebhookRequest{MessageID: "msg-1", From: "15551234567", Body: "hello"}

	_, err := fx.service.HandleInbound(context.Background(), req)
	require.NoError(t, err)

	_, err = fx.service.HandleInbound(context.Background(), req)
	assert.ErrorIs(t, err, whatsapp.ErrDuplicateMessage)
	assert.Equal(t, 1, fx.chat.calls)
}

func TestHandleInboundDedupeFailureStillProcesses(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.redis.err = errors.New("redis down")

	_, err := fx.service.HandleInbound(context.Background(), whatsapp.WebhookRequest{
		MessageID: "msg-1", From: "15551234567", Body: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, fx.chat.calls)
}

func TestHandleInboundMissingSender(t *testing.T) {
	fx := newWebhookFixture(t)

	_, err := fx.service.HandleInbound(context.Background(), whatsapp.WebhookRequest{
		Body: "hello",
	})
	assert.ErrorIs(t, err, whatsapp.ErrMissingSender)
}

func TestHandleInboundEmptyBody(t *testing.T) {
	fx := newWebhookFixture(t)

	_, err := fx.service.HandleInbound(context.Background(), whatsapp.WebhookRequest{
		From: "15551234567", Body: "   ",
	})
	assert.ErrorIs(t, err, whatsapp.ErrUnsupportedPayload)
}

func TestHandleInboundSendFailure(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.sender.err = errors.New("socket closed")

	_, err := fx.service.HandleInbound(context.Background(), whatsapp.WebhookRequest{
		From: "15551234567", Body: "hello",
	})
	assert.ErrorIs(t, err, whatsapp.ErrSendFailed)
}

func TestHandleInboundFormatsSuggestionsAsBullets(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.chat.resp = chat.ChatResponse{
		Response: "I can help with that.",
		Suggestions: []chat.SuggestionResponse{
			{Label: "Book an appointment", Action: "book_appointment"},
			{Label: "Call reception", Action: "call_reception"},
		},
		NextQuestion: "What date works for you?",
	}

	_, err := fx.service.HandleInbound(context.Background(), whatsapp.WebhookRequest{
		From: "15551234567", Body: "book me in",
	})
	require.NoError(t, err)

	require.Len(t, fx.sender.sent, 1)
	text := fx.sender.sent[0].text
	assert.Contains(t, text, "• Book an appointment")
	assert.Contains(t, text, "• Call reception")
	assert.Contains(t, text, "What date works for you?")
}

func TestHandleInboundTruncatesOversizedReply(t *testing.T) {
	fx := newWebhookFixture(t)
	fx.chat.resp = chat.ChatResponse{Response: strings.Repeat("a", 5000)}

	_, err := fx.service.HandleInbound(context.Background(), whatsapp.WebhookRequest{
		From: "15551234567", Body: "tell me everything",
	})
	require.NoError(t, err)

	require.Len(t, fx.sender.sent, 1)
	text := []rune(fx.sender.sent[0].text)
	assert.LessOrEqual(t, len(text), 4097)
	assert.Equal(t, '…', text[len(text)-1])
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"whatsapp:+15551234567", "15551234567"},
		{"+15551234567", "15551234567"},
		{"  15551234567 ", "15551234567"},
		{"", ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, normalizePhone(tc.in), tc.in)
	}
}
