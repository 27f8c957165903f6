package service

import (
	"context"
	"errors"

	"restaurant-booking-be/internal/dto"
	"restaurant-booking-be/internal/entity"
	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/internal/repository/specification"
	"restaurant-booking-be/internal/repository/unitofwork"
	"restaurant-booking-be/pkg/booking/schema"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrUserNotFound = errors.New("user not found")

type IUserService interface {
	GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error)
	UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserProfileResponse, error)
	ChangePassword(ctx context.Context, userId uuid.UUID, req *dto.ChangePasswordRequest) error
	// ProfileDefaults returns the slot values the assistant may prefill.
	ProfileDefaults(ctx context.Context, userId uuid.UUID) (map[string]string, error)
}

type userService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewUserService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IUserService {
	return &userService{
		uowFactory: uowFactory,
		logger:     log,
	}
}

func (s *userService) find(ctx context.Context, userId uuid.UUID) (*entity.User, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, userId uuid.UUID) (*dto.UserProfileResponse, error) {
	user, err := s.find(ctx, userId)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, userId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserProfileResponse, error) {
	user, err := s.find(ctx, userId)
	if err != nil {
		return nil, err
	}

	// Empty fields keep their stored value.
	p := user.Profile
	b := req.Booking
	if b.Title != "" {
		p.Title = b.Title
	}
	if b.FirstName != "" {
		p.FirstName = b.FirstName
	}
	if b.Surname != "" {
		p.Surname = b.Surname
	}
	if b.Mobile != "" {
		p.Mobile = b.Mobile
	}
	if b.ReceiveEmailMarketing != nil {
		p.ReceiveEmailMarketing = b.ReceiveEmailMarketing
	}
	if b.ReceiveSmsMarketing != nil {
		p.ReceiveSmsMarketing = b.ReceiveSmsMarketing
	}
	if b.ReceiveRestaurantEmails != nil {
		p.ReceiveRestaurantEmails = b.ReceiveRestaurantEmails
	}
	if b.ReceiveRestaurantSms != nil {
		p.ReceiveRestaurantSms = b.ReceiveRestaurantSms
	}

	err = unitofwork.InTransaction(ctx, s.uowFactory, func(uow unitofwork.UnitOfWork) error {
		if req.FullName != "" && req.FullName != user.FullName {
			user.FullName = req.FullName
			if err := uow.UserRepository().Update(ctx, user); err != nil {
				return err
			}
		}
		return uow.UserRepository().UpdateProfile(ctx, userId, p)
	})
	if err != nil {
		return nil, err
	}

	user.Profile = p
	s.logger.Info("USER", "Profile updated", map[string]interface{}{"user_id": userId})
	return toProfileResponse(user), nil
}

func (s *userService) ChangePassword(ctx context.Context, userId uuid.UUID, req *dto.ChangePasswordRequest) error {
	user, err := s.find(ctx, userId)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.UserRepository().UpdatePassword(ctx, userId, string(hash))
}

func (s *userService) ProfileDefaults(ctx context.Context, userId uuid.UUID) (map[string]string, error) {
	user, err := s.find(ctx, userId)
	if err != nil {
		return nil, err
	}
	return ProfileToDefaults(user), nil
}

// ProfileToDefaults keys the stored profile by slot field name. Blank values are left out.
func ProfileToDefaults(user *entity.User) map[string]string {
	out := map[string]string{}
	set := func(field, v string) {
		if v != "" {
			out[field] = v
		}
	}
	set(schema.FieldEmail, user.Email)
	set(schema.FieldTitle, user.Profile.Title)
	set(schema.FieldFirstName, user.Profile.FirstName)
	set(schema.FieldSurname, user.Profile.Surname)
	set(schema.FieldMobile, user.Profile.Mobile)
	return out
}

func toProfileResponse(user *entity.User) *dto.UserProfileResponse {
	p := user.Profile
	return &dto.UserProfileResponse{
		Id:       user.Id,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     string(user.Role),
		Booking: dto.BookingProfile{
			Title:                   p.Title,
			FirstName:               p.FirstName,
			Surname:                 p.Surname,
			Mobile:                  p.Mobile,
			ReceiveEmailMarketing:   p.ReceiveEmailMarketing,
			ReceiveSmsMarketing:     p.ReceiveSmsMarketing,
			ReceiveRestaurantEmails: p.ReceiveRestaurantEmails,
			ReceiveRestaurantSms:    p.ReceiveRestaurantSms,
		},
		CreatedAt: user.CreatedAt,
	}
}
