package handler

import (
	"kb-console/internal/pkg/logger"
	"kb-console/internal/pkg/serverutils"
	internalWS "kb-console/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type TranscriptHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewTranscriptHandler(hub *internalWS.Hub, log logger.ILogger) *TranscriptHandler {
	return &TranscriptHandler{
		hub:    hub,
		logger: log,
	}
}

func (h *TranscriptHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws", h.ServeWs)
}

// ServeWs streams the transcript events of the caller's console.
func (h *TranscriptHandler) ServeWs(c *fiber.Ctx) error {
	consoleId := serverutils.ConsoleId(c)
	if consoleId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing console id")
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("TranscriptHandler", "Starting WebSocket session", map[string]interface{}{"console_id": consoleId})
			internalWS.ServeWs(h.hub, conn, consoleId)
			h.logger.Info("TranscriptHandler", "WebSocket session ended", map[string]interface{}{"console_id": consoleId})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
