package kbHandler

import (
	kbService "CarelineGolang/internal/api/kb/service"
	"CarelineGolang/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type KbHandler struct {
	log        *logrus.Logger
	validator  *validator.Validate
	middleware middleware.Middleware
	kbService  kbService.IKbService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	ks kbService.IKbService,
) *KbHandler {
	return &KbHandler{
		log:        log,
		validator:  validate,
		middleware: middleware,
		kbService:  ks,
	}
}

func (h *KbHandler) Start(srv fiber.Router) {
	srv.Get("/intents", h.ListIntents)
	srv.Post("/intents/:name/patterns", h.middleware.NewAdminTokenMiddleware, h.AddPattern)

	kbGroup := srv.Group("/kb")
	kbGroup.Post("/reindex", h.middleware.NewAdminTokenMiddleware, h.Reindex)
}
