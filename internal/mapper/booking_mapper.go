package mapper

import (
	"restaurant-booking-be/internal/entity"
	"restaurant-booking-be/internal/model"
)

type BookingMapper struct{}

func NewBookingMapper() *BookingMapper {
	return &BookingMapper{}
}

func (m *BookingMapper) ToEntity(b *model.Booking) *entity.Booking {
	if b == nil {
		return nil
	}
	return &entity.Booking{
		Id:                 b.Id,
		UserId:             b.UserId,
		ChatSessionId:      b.ChatSessionId,
		BookingReference:   b.BookingReference,
		Restaurant:         b.Restaurant,
		VisitDate:          b.VisitDate,
		VisitTime:          b.VisitTime,
		PartySize:          b.PartySize,
		SpecialRequests:    b.SpecialRequests,
		Status:             entity.BookingStatus(b.Status),
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func (m *BookingMapper) ToModel(b *entity.Booking) *model.Booking {
	if b == nil {
		return nil
	}
	return &model.Booking{
		Id:                 b.Id,
		UserId:             b.UserId,
		ChatSessionId:      b.ChatSessionId,
		BookingReference:   b.BookingReference,
		Restaurant:         b.Restaurant,
		VisitDate:          b.VisitDate,
		VisitTime:          b.VisitTime,
		PartySize:          b.PartySize,
		SpecialRequests:    b.SpecialRequests,
		Status:             string(b.Status),
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func (m *BookingMapper) ToEntities(bookings []*model.Booking) []*entity.Booking {
	out := make([]*entity.Booking, len(bookings))
	for i, b := range bookings {
		out[i] = m.ToEntity(b)
	}
	return out
}
