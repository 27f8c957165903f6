package controller

import (
	"errors"

	"restaurant-booking-be/internal/service"
	"restaurant-booking-be/pkg/booking/session"

	"github.com/gofiber/fiber/v2"
)

// toFiberError maps service and orchestration errors to HTTP statuses. The
// ErrorHandlerMiddleware renders the result.
func toFiberError(err error) error {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe
	case errors.Is(err, service.ErrEmailTaken):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrUserBlocked):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrChatSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotOwner):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, session.ErrLockTimeout):
		return fiber.NewError(fiber.StatusConflict, "another message for this session is still being processed")
	case errors.Is(err, session.ErrLeaseLost):
		return fiber.NewError(fiber.StatusServiceUnavailable, "the turn took too long and was discarded, please resend")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
