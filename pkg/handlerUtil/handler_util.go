package handlerUtil

import (
	"CarelineGolang/internal/api/chat"
	"CarelineGolang/internal/api/kb"
	"CarelineGolang/internal/api/whatsapp"
	"CarelineGolang/pkg/log"
	"CarelineGolang/pkg/response"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	// Chat domain errors
	if errors.Is(err, chat.ErrSessionNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Session not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Session not found",
			"code":    "SESSION_NOT_FOUND",
		})
	}

	if errors.Is(err, chat.ErrEmptyMessage) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Empty message")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Message cannot be empty",
			"code":    "EMPTY_MESSAGE",
		})
	}

	if errors.Is(err, chat.ErrMessageTooLong) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Message too long")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Message exceeds the maximum allowed length",
			"code":    "MESSAGE_TOO_LONG",
		})
	}

	if errors.Is(err, chat.ErrPipelineTimeout) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Pipeline deadline exceeded")
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
			"message": "The assistant took too long to respond",
			"code":    "PIPELINE_TIMEOUT",
		})
	}

	// WhatsApp domain errors
	if errors.Is(err, whatsapp.ErrUnsupportedPayload) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Unsupported webhook payload")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Unsupported webhook payload",
			"code":    "UNSUPPORTED_PAYLOAD",
		})
	}

	if errors.Is(err, whatsapp.ErrMissingSender) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Webhook payload missing sender")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Webhook payload missing sender",
			"code":    "MISSING_SENDER",
		})
	}

	if errors.Is(err, whatsapp.ErrSendFailed) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Error("Failed to send WhatsApp message")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "Failed to deliver WhatsApp message",
			"code":    "SEND_FAILED",
		})
	}

	// Knowledge base domain errors
	if errors.Is(err, kb.ErrIntentNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Intent not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Intent not found",
			"code":    "INTENT_NOT_FOUND",
		})
	}

	if errors.Is(err, kb.ErrEmptyPattern) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Empty pattern")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Pattern cannot be empty",
			"code":    "EMPTY_PATTERN",
		})
	}

	if errors.Is(err, kb.ErrCorpusUnavailable) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Error("Knowledge corpus unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Knowledge corpus unavailable",
			"code":    "CORPUS_UNAVAILABLE",
		})
	}

	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}).Error("Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "An unexpected error occurred",
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleUnauthorized(c *fiber.Ctx, requestID string, message string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"path":       c.Path(),
		"message":    message,
	}).Warn("Unauthorized access")

	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
		"code":  "UNAUTHORIZED",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
