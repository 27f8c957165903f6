package controller

import (
	"restaurant-booking-be/internal/dto"
	"restaurant-booking-be/internal/pkg/serverutils"
	"restaurant-booking-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetAllSessions(ctx *fiber.Ctx) error
	GetChatHistory(ctx *fiber.Ctx) error
	SendChat(ctx *fiber.Ctx) error
	GetState(ctx *fiber.Ctx) error
	ResetEpisode(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
	auth    fiber.Handler
}

func NewChatController(service service.IChatService, auth fiber.Handler) IChatController {
	return &chatController{service: service, auth: auth}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1", c.auth)
	h.Post("/sessions", c.CreateSession)
	h.Get("/sessions", c.GetAllSessions)
	h.Get("/sessions/:id/history", c.GetChatHistory)
	h.Get("/sessions/:id/state", c.GetState)
	h.Delete("/sessions/:id/episode", c.ResetEpisode)
	h.Delete("/sessions/:id", c.DeleteSession)
	h.Post("/send", c.SendChat)
}

func (c *chatController) CreateSession(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateSession(ctx.UserContext(), userId, &req)
	if err != nil {
		return toFiberError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *chatController) GetAllSessions(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetAllSessions(ctx.UserContext(), userId, ctx.Query("intent"))
	if err != nil {
		return toFiberError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Sessions", res))
}

func (c *chatController) GetChatHistory(ctx *fiber.Ctx) error {
	userId, sessionId, err := c.ids(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetChatHistory(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return toFiberError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat history", res))
}

func (c *chatController) SendChat(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendChat(ctx.UserContext(), userId, &req)
	if err != nil {
		return toFiberError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Reply", res))
}

func (c *chatController) GetState(ctx *fiber.Ctx) error {
	userId, sessionId, err := c.ids(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetState(ctx.UserContext(), userId, sessionId)
	if err != nil {
		return toFiberError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Session state", res))
}

func (c *chatController) ResetEpisode(ctx *fiber.Ctx) error {
	userId, sessionId, err := c.ids(ctx)
	if err != nil {
		return err
	}

	if err := c.service.ResetEpisode(ctx.UserContext(), userId, sessionId); err != nil {
		return toFiberError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversation restarted", nil))
}

func (c *chatController) DeleteSession(ctx *fiber.Ctx) error {
	userId, sessionId, err := c.ids(ctx)
	if err != nil {
		return err
	}

	if err := c.service.DeleteSession(ctx.UserContext(), userId, sessionId); err != nil {
		return toFiberError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Session deleted", nil))
}

func (c *chatController) ids(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	sessionId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}
	return userId, sessionId, nil
}
