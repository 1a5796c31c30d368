package kbHandler

import (
	"errors"
	"time"

	"CarelineGolang/internal/api/kb"
	contextPkg "CarelineGolang/pkg/context"
	"CarelineGolang/pkg/handlerUtil"
	"CarelineGolang/pkg/log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *KbHandler) ListIntents(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	resp, err := h.kbService.ListIntents(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_intents")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
	}
}

func (h *KbHandler) AddPattern(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing add pattern request")

	intentName := ctx.Params("name")
	if intentName == "" {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("intent name is required"), ctx.Path())
	}

	var req kb.AddPatternRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("invalid request body"), ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.kbService.AddPattern(c, intentName, req.Pattern); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "add_pattern")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, fiber.Map{
			"message": "Pattern added successfully",
		})
	}
}

func (h *KbHandler) Reindex(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 120*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing reindex request")

	var req kb.ReindexRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID,
				errors.New("invalid request body"), ctx.Path())
		}
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	resp, err := h.kbService.Reindex(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "reindex")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
	}
}
