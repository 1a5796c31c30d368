package whatsappHandler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"CarelineGolang/internal/api/whatsapp"
	"CarelineGolang/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type fakeWebhookService struct {
	lastReq whatsapp.WebhookRequest
	err     error
}

func (f *fakeWebhookService) HandleInbound(ctx context.Context, req whatsapp.WebhookRequest) (whatsapp.WebhookResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return whatsapp.WebhookResponse{}, f.err
	}
	return whatsapp.WebhookResponse{Status: "ok", SessionID: req.From}, nil
}

func newWebhookApp(t *testing.T) (*fiber.App, *fakeWebhookService) {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	service := &fakeWebhookService{}
	handler := New(logger, validator.New(), middleware.New(logger), service)

	app := fiber.New()
	handler.Start(app)
	return app, service
}

func postJSON(t *testing.T, app *fiber.App, payload string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHandleWebhookJSONPayload(t *testing.T) {
	app, service := newWebhookApp(t)

	resp := postJSON(t, app, `{"message_id": "m-1", "from": "whatsapp:+15551234567", "body": "hello"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "m-1", service.lastReq.MessageID)
	assert.Equal(t, "whatsapp:+15551234567", service.lastReq.From)
	assert.Equal(t, "hello", service.lastReq.Body)
}

func TestHandleWebhookFieldVariants(t *testing.T) {
	app, service := newWebhookApp(t)

	// Twilio-style field names.
	resp := postJSON(t, app, `{"MessageSid": "SM123", "From": "whatsapp:+15551234567", "Body": "hi"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SM123", service.lastReq.MessageID)
	assert.Equal(t, "hi", service.lastReq.Body)
}

func TestHandleWebhookFormPayload(t *testing.T) {
	app, service := newWebhookApp(t)

	form := url.Values{}
	form.Set("MessageUUID", "u-9")
	form.Set("sender", "15551234567")
	form.Set("text", "book an appointment")

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u-9", service.lastReq.MessageID)
	assert.Equal(t, "15551234567", service.lastReq.From)
	assert.Equal(t, "book an appointment", service.lastReq.Body)
}

func TestHandleWebhookDuplicateAcknowledged(t *testing.T) {
	app, service := newWebhookApp(t)
	service.err = whatsapp.ErrDuplicateMessage

	resp := postJSON(t, app, `{"message_id": "m-1", "from": "15551234567", "body": "hello"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body whatsapp.WebhookResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "duplicate", body.Status)
}

func TestHandleWebhookUnparseablePayload(t *testing.T) {
	app, _ := newWebhookApp(t)

	resp := postJSON(t, app, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
