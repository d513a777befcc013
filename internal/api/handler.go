package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-relay/internal/models"
	"github.com/fathima-sithara/chat-relay/internal/repository"
	"github.com/fathima-sithara/chat-relay/internal/service"
)

type Handlers struct {
	svc     *service.ChatService
	timeout time.Duration
	log     *zap.SugaredLogger
}

func NewHandlers(svc *service.ChatService, timeout time.Duration, log *zap.SugaredLogger) *Handlers {
	return &Handlers{svc: svc, timeout: timeout, log: log}
}

type sendRequest struct {
	RoomID   int64  `json:"roomId"`
	SenderID string `json:"senderId"`
	Message  string `json:"message"`
	WriteDay string `json:"writeDay"`
}

func (h *Handlers) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrBadRequest):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing or invalid identifier"})
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no messages for room"})
	default:
		h.log.Errorw("request failed", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

func parseRoomID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("roomId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, service.ErrBadRequest
	}
	return id, nil
}

func (h *Handlers) listMessages(topo models.Topology) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roomID, err := parseRoomID(c)
		if err != nil {
			return h.fail(c, err)
		}
		ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
		defer cancel()
		msgs, err := h.svc.ListMessages(ctx, topo, roomID)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(msgs)
	}
}

func (h *Handlers) listRooms(topo models.Topology) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
		defer cancel()
		rooms, err := h.svc.ListRooms(ctx, topo)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(rooms)
	}
}

func (h *Handlers) sendMessage(topo models.Topology) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req sendRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
		}
		ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
		defer cancel()
		msg, err := h.svc.Send(ctx, topo, req.RoomID, req.SenderID, req.Message, req.WriteDay)
		if err != nil {
			return h.fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "ok", "data": msg})
	}
}

func (h *Handlers) markRoomRead(topo models.Topology) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roomID, err := parseRoomID(c)
		if err != nil {
			return h.fail(c, err)
		}
		ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
		defer cancel()
		updated, err := h.svc.MarkRoomRead(ctx, topo, roomID)
		if err != nil {
			return h.fail(c, err)
		}
		return c.JSON(fiber.Map{"status": "ok", "updated": updated})
	}
}

func (h *Handlers) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()
	if err := h.svc.Healthy(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
