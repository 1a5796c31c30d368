package whatsappService

import (
	"fmt"
	"strings"
	"time"

	"CarelineGolang/internal/api/chat"
	"CarelineGolang/internal/api/whatsapp"
	contextPkg "CarelineGolang/pkg/context"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	dedupeTTL        = 24 * time.Hour
	maxOutboundRunes = 4096
)

// HandleInbound runs one WhatsApp message through the dialogue pipeline.
// The sender's phone number doubles as the session id so a phone keeps its
// conversation across webhooks.
func (s *webhookService) HandleInbound(ctx context.Context, req whatsapp.WebhookRequest) (whatsapp.WebhookResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	from := normalizePhone(req.From)
	if from == "" {
		return whatsapp.WebhookResponse{}, whatsapp.ErrMissingSender
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		return whatsapp.WebhookResponse{}, whatsapp.ErrUnsupportedPayload
	}

	if req.MessageID != "" && s.redis != nil {
		first, err := s.redis.MarkSeen(ctx, "wa:msg:"+req.MessageID, dedupeTTL)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"message_id": req.MessageID,
				"error":      err.Error(),
			}).Warn("Webhook dedupe check failed, processing anyway")
		} else if !first {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"message_id": req.MessageID,
			}).Info("Dropping redelivered webhook")
			return whatsapp.WebhookResponse{}, whatsapp.ErrDuplicateMessage
		}
	}

	resp, err := s.chatService.ProcessMessage(ctx, chat.ChatRequest{
		Message:   body,
		SessionID: from,
	}, "whatsapp")
	if err != nil {
		return whatsapp.WebhookResponse{}, err
	}

	outbound := s.formatOutbound(resp)

	if s.sender != nil {
		if err := s.sender.SendMessage(ctx, from, outbound); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": resp.SessionID,
				"error":      err.Error(),
			}).Error("Failed to deliver WhatsApp reply")
			return whatsapp.WebhookResponse{}, fmt.Errorf("%w: %v", whatsapp.ErrSendFailed, err)
		}
	}

	return whatsapp.WebhookResponse{
		Status:    "ok",
		SessionID: resp.SessionID,
	}, nil
}

// normalizePhone strips the provider channel prefix and whitespace, keeping
// the bare number the send API expects.
func normalizePhone(from string) string {
	from = strings.TrimSpace(from)
	from = strings.TrimPrefix(from, "whatsapp:")
	from = strings.TrimPrefix(from, "+")
	return strings.TrimSpace(from)
}

// formatOutbound renders a structured reply as a single WhatsApp text:
// suggestions become a bullet list, the follow-up question goes last. The
// result is capped so the send API never rejects an oversized message.
func (s *webhookService) formatOutbound(resp chat.ChatResponse) string {
	var b strings.Builder
	b.WriteString(resp.Response)

	if len(resp.Suggestions) > 0 {
		b.WriteString("\n\nYou can:")
		for _, sg := range resp.Suggestions {
			b.WriteString("\n• ")
			b.WriteString(sg.Label)
		}
	}

	if resp.NextQuestion != "" {
		b.WriteString("\n\n")
		b.WriteString(resp.NextQuestion)
	}

	return s.utils.TruncateRunes(b.String(), maxOutboundRunes)
}
