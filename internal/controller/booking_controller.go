package controller

import (
	"restaurant-booking-be/internal/dto"
	"restaurant-booking-be/internal/pkg/serverutils"
	"restaurant-booking-be/internal/service"
	"restaurant-booking-be/pkg/booking/schema"

	"github.com/gofiber/fiber/v2"
)

type IBookingController interface {
	RegisterRoutes(r fiber.Router)
	ListMine(ctx *fiber.Ctx) error
	CancellationReasons(ctx *fiber.Ctx) error
}

type bookingController struct {
	service service.IBookingService
	auth    fiber.Handler
}

func NewBookingController(service service.IBookingService, auth fiber.Handler) IBookingController {
	return &bookingController{service: service, auth: auth}
}

func (c *bookingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/booking/v1")
	h.Get("/cancellation-reasons", c.CancellationReasons)
	h.Get("/mine", c.auth, c.ListMine)
}

func (c *bookingController) ListMine(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var query dto.ListBookingsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.service.ListMine(ctx.UserContext(), userId, &query)
	if err != nil {
		return toFiberError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Bookings", res))
}

func (c *bookingController) CancellationReasons(ctx *fiber.Ctx) error {
	type reason struct {
		Id   int    `json:"id"`
		Name string `json:"name"`
	}
	res := make([]reason, 0, len(schema.CancellationReasons))
	for id := 1; id <= len(schema.CancellationReasons); id++ {
		res = append(res, reason{Id: id, Name: schema.CancellationReasons[id]})
	}
	return ctx.JSON(serverutils.SuccessResponse("Cancellation reasons", res))
}
