package api

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-relay/internal/config"
	"github.com/fathima-sithara/chat-relay/internal/metrics"
	"github.com/fathima-sithara/chat-relay/internal/models"
	"github.com/fathima-sithara/chat-relay/internal/service"
	"github.com/fathima-sithara/chat-relay/internal/ws"
)

func NewServer(cfg *config.Config, svc *service.ChatService, wsrv *ws.Server, log *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "chat-relay",
		DisableStartupMessage: cfg.App.Env == "production",
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.New())

	h := NewHandlers(svc, cfg.RequestTimeout, log)

	app.Get("/healthz", h.health)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")

	api.Get("/messages/:roomId", h.listMessages(models.Pairwise))
	api.Get("/chatRooms", h.listRooms(models.Pairwise))
	api.Post("/messages", h.sendMessage(models.Pairwise))
	api.Put("/messages/:roomId/read", h.markRoomRead(models.Pairwise))

	api.Get("/togetherMessages/:roomId", h.listMessages(models.Group))
	api.Get("/togetherChatRooms", h.listRooms(models.Group))
	api.Post("/togetherMessages", h.sendMessage(models.Group))
	api.Put("/togetherMessages/:roomId/read", h.markRoomRead(models.Group))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsrv.HandleWS))

	return app
}
