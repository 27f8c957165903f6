package contract

import (
	"context"

	"restaurant-booking-be/internal/entity"
	"restaurant-booking-be/internal/repository/specification"
)

type BookingRepository interface {
	// Upsert inserts or refreshes the mirror row keyed by booking reference.
	Upsert(ctx context.Context, booking *entity.Booking) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Booking, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Booking, error)
	MarkCancelled(ctx context.Context, reference, reason string) error
}
