package implementation

import (
	"context"
	"errors"

	"restaurant-booking-be/internal/entity"
	"restaurant-booking-be/internal/mapper"
	"restaurant-booking-be/internal/model"
	"restaurant-booking-be/internal/repository/contract"
	"restaurant-booking-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.BookingMapper
}

func NewBookingRepository(db *gorm.DB) contract.BookingRepository {
	return &BookingRepositoryImpl{
		db:     db,
		mapper: mapper.NewBookingMapper(),
	}
}

func (r *BookingRepositoryImpl) Upsert(ctx context.Context, booking *entity.Booking) error {
	m := r.mapper.ToModel(booking)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "booking_reference"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"visit_date", "visit_time", "party_size", "special_requests", "status", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*booking = *r.mapper.ToEntity(m)
	return nil
}

func (r *BookingRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Booking, error) {
	var m model.Booking
	query := specification.Apply(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *BookingRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Booking, error) {
	var models []*model.Booking
	query := specification.Apply(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *BookingRepositoryImpl) MarkCancelled(ctx context.Context, reference, reason string) error {
	return r.db.WithContext(ctx).Model(&model.Booking{}).
		Where("booking_reference = ?", reference).
		Updates(map[string]interface{}{
			"status":              string(entity.BookingStatusCancelled),
			"cancellation_reason": reason,
		}).Error
}
