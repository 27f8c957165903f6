package service

import (
	"context"
	"time"

	"restaurant-booking-be/internal/dto"
	"restaurant-booking-be/internal/entity"
	"restaurant-booking-be/internal/repository/specification"
	"restaurant-booking-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IBookingService interface {
	// ListMine returns the user's mirrored bookings, soonest visit first.
	ListMine(ctx context.Context, userId uuid.UUID, query *dto.ListBookingsQuery) ([]*dto.BookingResponse, error)
	// OwnsBooking reports whether the reference is in the user's booking mirror.
	OwnsBooking(ctx context.Context, userID, reference string) (bool, error)
}

type bookingService struct {
	uowFactory unitofwork.RepositoryFactory
	now        func() time.Time
}

func NewBookingService(uowFactory unitofwork.RepositoryFactory) IBookingService {
	return &bookingService{uowFactory: uowFactory, now: time.Now}
}

func (s *bookingService) ListMine(ctx context.Context, userId uuid.UUID, query *dto.ListBookingsQuery) ([]*dto.BookingResponse, error) {
	specs := []specification.Specification{specification.UserOwnedBy{UserID: userId}}
	if query.Status != "" {
		specs = append(specs, specification.ByBookingStatus{Status: query.Status})
	}
	if query.Upcoming {
		specs = append(specs, specification.UpcomingFrom{Date: s.now().Format("2006-01-02")})
	}
	specs = append(specs,
		specification.OrderBy{Field: "visit_date"},
		specification.OrderBy{Field: "visit_time"},
	)

	uow := s.uowFactory.NewUnitOfWork(ctx)
	bookings, err := uow.BookingRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		res = append(res, toBookingResponse(b))
	}
	return res, nil
}

func (s *bookingService) OwnsBooking(ctx context.Context, userID, reference string) (bool, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	booking, err := uow.BookingRepository().FindOne(ctx,
		specification.UserOwnedBy{UserID: uid},
		specification.ByBookingReference{Reference: reference},
	)
	if err != nil {
		return false, err
	}
	return booking != nil, nil
}

func toBookingResponse(b *entity.Booking) *dto.BookingResponse {
	return &dto.BookingResponse{
		Id:                 b.Id,
		BookingReference:   b.BookingReference,
		Restaurant:         b.Restaurant,
		VisitDate:          b.VisitDate,
		VisitTime:          b.VisitTime,
		PartySize:          b.PartySize,
		SpecialRequests:    b.SpecialRequests,
		Status:             string(b.Status),
		CancellationReason: b.CancellationReason,
		ChatSessionId:      b.ChatSessionId,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}
