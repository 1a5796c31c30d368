package whatsappHandler

import (
	whatsappService "CarelineGolang/internal/api/whatsapp/service"
	"CarelineGolang/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type WhatsappHandler struct {
	log            *logrus.Logger
	validator      *validator.Validate
	middleware     middleware.Middleware
	webhookService whatsappService.IWebhookService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	ws whatsappService.IWebhookService,
) *WhatsappHandler {
	return &WhatsappHandler{
		log:            log,
		validator:      validate,
		middleware:     middleware,
		webhookService: ws,
	}
}

func (h *WhatsappHandler) Start(srv fiber.Router) {
	wa := srv.Group("/whatsapp")

	wa.Post("/webhook", h.HandleWebhook)
}
