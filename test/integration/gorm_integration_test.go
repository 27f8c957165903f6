package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"restaurant-booking-be/internal/entity"
	"restaurant-booking-be/internal/repository/specification"
	"restaurant-booking-be/internal/repository/unitofwork"
	"restaurant-booking-be/internal/service"
	"restaurant-booking-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err, "connect to DB")
	return db
}

func TestGormConnection(t *testing.T) {
	db := openDB(t)

	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(context.Background())
	assert.NotNil(t, uow.UserRepository())
	assert.NotNil(t, uow.BookingRepository())

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())

	t.Run("Check User Repository", func(t *testing.T) {
		_, err := uow.UserRepository().Count(context.Background())
		assert.NoError(t, err)
	})

	t.Run("Check Chat Session Repository", func(t *testing.T) {
		_, err := uow.ChatSessionRepository().Count(context.Background())
		assert.NoError(t, err)
	})
}

func TestBookingMirror(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)

	owner := &entity.User{
		Email:        fmt.Sprintf("mirror-%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "x",
		FullName:     "Mirror Test",
		Role:         entity.UserRoleUser,
		Status:       entity.UserStatusActive,
	}
	require.NoError(t, uow.UserRepository().Create(ctx, owner))
	defer uow.UserRepository().Delete(ctx, owner.Id)

	ref := uuid.NewString()[:7]
	booking := &entity.Booking{
		UserId:           owner.Id,
		BookingReference: ref,
		Restaurant:       "TheHungryUnicorn",
		VisitDate:        time.Now().AddDate(0, 0, 3).Format("2006-01-02"),
		VisitTime:        "19:00:00",
		PartySize:        2,
		Status:           entity.BookingStatusConfirmed,
	}
	require.NoError(t, uow.BookingRepository().Upsert(ctx, booking))

	// A second upsert with the same reference updates in place.
	booking.PartySize = 6
	require.NoError(t, uow.BookingRepository().Upsert(ctx, booking))

	got, err := uow.BookingRepository().FindOne(ctx, specification.ByBookingReference{Reference: ref})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 6, got.PartySize)

	bookings := service.NewBookingService(unitofwork.NewRepositoryFactory(db))
	owned, err := bookings.OwnsBooking(ctx, owner.Id.String(), ref)
	require.NoError(t, err)
	assert.True(t, owned)
	owned, err = bookings.OwnsBooking(ctx, uuid.NewString(), ref)
	require.NoError(t, err)
	assert.False(t, owned)

	require.NoError(t, uow.BookingRepository().MarkCancelled(ctx, ref, "Weather"))
	got, err = uow.BookingRepository().FindOne(ctx, specification.ByBookingReference{Reference: ref})
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, got.Status)
	assert.Equal(t, "Weather", got.CancellationReason)

	db.Exec("DELETE FROM bookings WHERE booking_reference = ?", ref)
}
