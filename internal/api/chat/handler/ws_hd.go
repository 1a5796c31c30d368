package chatHandler

import (
	"time"

	"CarelineGolang/internal/api/chat"
	"CarelineGolang/pkg/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

func (h *ChatHandler) UpgradeWebsocket(ctx *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(ctx) {
		ctx.Locals("allowed", true)
		return ctx.Next()
	}
	return fiber.ErrUpgradeRequired
}

// HandleWebsocket serves the embedded web widget. Each frame is one chat
// request; the session id from the first reply is echoed back by the
// client, but the server also pins it so dropped fields do not fork the
// conversation.
func (h *ChatHandler) HandleWebsocket(conn *websocket.Conn) {
	defer conn.Close()

	var sessionID string

	for {
		var req chat.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			h.log.WithFields(log.Fields{
				"error": err.Error(),
			}).Debug("Websocket read ended")
			return
		}

		if req.SessionID == "" {
			req.SessionID = sessionID
		}

		if err := h.validator.Struct(req); err != nil {
			if writeErr := conn.WriteJSON(fiber.Map{
				"error": "Validation failed: " + err.Error(),
				"code":  "VALIDATION_ERROR",
			}); writeErr != nil {
				return
			}
			continue
		}

		c, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		resp, err := h.chatService.ProcessMessage(c, req, "web")
		cancel()

		if err != nil {
			h.log.WithFields(log.Fields{
				"session_id": req.SessionID,
				"error":      err.Error(),
			}).Warn("Websocket message processing failed")

			if writeErr := conn.WriteJSON(fiber.Map{
				"error": "Failed to process message",
				"code":  "PROCESSING_FAILED",
			}); writeErr != nil {
				return
			}
			continue
		}

		sessionID = resp.SessionID

		if err := conn.WriteJSON(resp); err != nil {
			h.log.WithFields(log.Fields{
				"session_id": sessionID,
				"error":      err.Error(),
			}).Debug("Websocket write failed")
			return
		}
	}
}
