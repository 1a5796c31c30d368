package chatHandler

import (
	chatService "CarelineGolang/internal/api/chat/service"
	"CarelineGolang/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type ChatHandler struct {
	log         *logrus.Logger
	validator   *validator.Validate
	middleware  middleware.Middleware
	chatService chatService.IChatService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	cs chatService.IChatService,
) *ChatHandler {
	return &ChatHandler{
		log:         log,
		validator:   validate,
		middleware:  middleware,
		chatService: cs,
	}
}

func (h *ChatHandler) Start(srv fiber.Router) {
	chat := srv.Group("/chat")

	chat.Post("/", h.middleware.NewRateLimiter, h.ProcessMessage)
	chat.Get("/sessions/:session_id/history", h.GetHistory)

	chat.Use("/ws", h.UpgradeWebsocket)
	chat.Get("/ws", websocket.New(h.HandleWebsocket))
}
