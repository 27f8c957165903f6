package handler

import (
	"context"
	"encoding/json"
	"errors"

	"restaurant-booking-be/internal/dto"
	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/internal/pkg/serverutils"
	"restaurant-booking-be/internal/repository/implementation"
	"restaurant-booking-be/internal/service"
	internalWS "restaurant-booking-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// NotificationHandler serves the notification inbox and the user's socket.
// The socket carries booking notifications out and chat messages both ways.
type NotificationHandler struct {
	service     *service.NotificationService
	chatService service.IChatService
	hub         *internalWS.Hub
	jwtSecret   string
	logger      logger.ILogger
}

func NewNotificationHandler(service *service.NotificationService, chatService service.IChatService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		service:     service,
		chatService: chatService,
		hub:         hub,
		jwtSecret:   jwtSecret,
		logger:      log,
	}
}

// ServeWs authenticates the handshake and upgrades the connection.
func (h *NotificationHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on a websocket, so ?token= is accepted too.
	tokenStr := serverutils.BearerToken(c)
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')"))
	}

	userID, err := serverutils.ParseToken(h.jwtSecret, tokenStr)
	if err != nil {
		h.logger.Warn("NotificationHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
			internalWS.ServeWs(h.hub, conn, userID, h.onChatFrame)
			h.logger.Info("NotificationHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// onChatFrame runs one turn per inbound frame. The reply goes back through
// the hub so every device of the user sees it.
func (h *NotificationHandler) onChatFrame(userID uuid.UUID, data []byte) {
	var frame dto.SocketChatMessage
	if err := json.Unmarshal(data, &frame); err != nil || frame.Chat == "" || frame.ChatSessionId == uuid.Nil {
		h.hub.Send(userID, internalWS.Message{Type: "error", Data: "expected {\"chat_session_id\", \"chat\"}"})
		return
	}

	res, err := h.chatService.SendChat(context.Background(), userID, &dto.SendChatRequest{
		ChatSessionId: frame.ChatSessionId,
		Chat:          frame.Chat,
	})
	if err != nil {
		h.logger.Warn("NotificationHandler", "Socket turn failed", map[string]interface{}{
			"user_id":    userID,
			"session_id": frame.ChatSessionId,
			"error":      err.Error(),
		})
		msg := "could not process the message"
		if errors.Is(err, service.ErrChatSessionNotFound) {
			msg = err.Error()
		}
		h.hub.Send(userID, internalWS.Message{Type: "error", Data: msg})
		return
	}
	h.hub.Send(userID, internalWS.Message{Type: "chat.reply", Data: res})
}

// GetNotifications returns the user's notifications.
func (h *NotificationHandler) GetNotifications(c *fiber.Ctx) error {
	userID, err := serverutils.UserID(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	notifications, total, err := h.service.GetNotifications(c.UserContext(), userID, limit, offset)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(serverutils.SuccessResponse("Notifications", fiber.Map{
		"items": notifications,
		"total": total,
		"page":  offset/limit + 1,
		"limit": limit,
	}))
}

// GetUnreadCount returns the number of unread notifications.
func (h *NotificationHandler) GetUnreadCount(c *fiber.Ctx) error {
	userID, err := serverutils.UserID(c)
	if err != nil {
		return err
	}

	count, err := h.service.GetUnreadCount(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(serverutils.SuccessResponse("Unread count", fiber.Map{"count": count}))
}

// MarkAsRead marks a specific notification as read.
func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, err := serverutils.UserID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid ID")
	}

	if err := h.service.MarkAsRead(c.UserContext(), userID, id); err != nil {
		if errors.Is(err, implementation.ErrNotificationNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(serverutils.SuccessResponse("Marked as read", nil))
}

// MarkAllAsRead marks all user's notifications as read.
func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, err := serverutils.UserID(c)
	if err != nil {
		return err
	}

	if err := h.service.MarkAllAsRead(c.UserContext(), userID); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(serverutils.SuccessResponse("All marked as read", nil))
}

// RegisterRoutes registers the notification routes and the socket.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notif := router.Group("/notification/v1")
	notif.Use(serverutils.NewJwtMiddleware(h.jwtSecret))
	notif.Get("/", h.GetNotifications)
	notif.Get("/unread-count", h.GetUnreadCount)
	notif.Patch("/read-all", h.MarkAllAsRead)
	notif.Patch("/:id/read", h.MarkAsRead)

	router.Get("/chat/v1/ws", h.ServeWs)
}
