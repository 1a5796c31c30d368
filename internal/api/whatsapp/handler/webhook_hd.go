package whatsappHandler

import (
	"errors"
	"strings"
	"time"

	"CarelineGolang/internal/api/whatsapp"
	contextPkg "CarelineGolang/pkg/context"
	"CarelineGolang/pkg/handlerUtil"
	"CarelineGolang/pkg/log"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/context"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (h *WhatsappHandler) HandleWebhook(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 20*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing WhatsApp webhook")

	req, err := parseWebhookPayload(ctx)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_webhook")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	resp, err := h.webhookService.HandleInbound(c, req)
	if err != nil {
		// Redeliveries are acknowledged so the provider stops retrying.
		if errors.Is(err, whatsapp.ErrDuplicateMessage) {
			return errHandler.HandleSuccess(ctx, fiber.StatusOK, whatsapp.WebhookResponse{
				Status: "duplicate",
			})
		}
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "handle_webhook")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
	}
}

// parseWebhookPayload accepts both JSON and form-encoded deliveries and
// tolerates the field name variants providers use.
func parseWebhookPayload(ctx *fiber.Ctx) (whatsapp.WebhookRequest, error) {
	var req whatsapp.WebhookRequest

	contentType := string(ctx.Request().Header.ContentType())

	if strings.Contains(contentType, "application/json") {
		var raw map[string]interface{}
		if err := json.Unmarshal(ctx.Body(), &raw); err != nil {
			return req, whatsapp.ErrUnsupportedPayload
		}

		req.MessageID = firstString(raw, "MessageUUID", "message_uuid", "message_id", "MessageSid")
		req.From = firstString(raw, "From", "from", "sender")
		req.Body = firstString(raw, "Body", "body", "message", "text")
	} else {
		req.MessageID = firstFormValue(ctx, "MessageUUID", "message_uuid", "message_id", "MessageSid")
		req.From = firstFormValue(ctx, "From", "from", "sender")
		req.Body = firstFormValue(ctx, "Body", "body", "message", "text")
	}

	if req.From == "" && req.Body == "" {
		return req, whatsapp.ErrUnsupportedPayload
	}

	return req, nil
}

func firstString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func firstFormValue(ctx *fiber.Ctx, keys ...string) string {
	for _, key := range keys {
		if v := ctx.FormValue(key); v != "" {
			return v
		}
	}
	return ""
}
