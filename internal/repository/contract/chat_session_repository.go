package contract

import (
	"context"
	"time"

	"restaurant-booking-be/internal/entity"
	"restaurant-booking-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	Update(ctx context.Context, session *entity.ChatSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// RecordTurn stamps the session with the latest turn. An empty
	// bookingReference keeps the previous one.
	RecordTurn(ctx context.Context, id uuid.UUID, intent, bookingReference string, at time.Time) error
}
