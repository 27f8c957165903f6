package dto

import (
	"time"

	"github.com/google/uuid"
)

type UserProfileResponse struct {
	Id        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	FullName  string         `json:"full_name"`
	Role      string         `json:"role"`
	Booking   BookingProfile `json:"booking_profile"`
	CreatedAt time.Time      `json:"created_at"`
}

// BookingProfile is what the assistant fills into booking forms by default.
type BookingProfile struct {
	Title                   string `json:"title,omitempty" validate:"omitempty,oneof=Mr Mrs Ms Dr Prof Sir Lady"`
	FirstName               string `json:"first_name,omitempty" validate:"omitempty,max=50"`
	Surname                 string `json:"surname,omitempty" validate:"omitempty,max=50"`
	Mobile                  string `json:"mobile,omitempty" validate:"omitempty,min=8,max=20"`
	ReceiveEmailMarketing   *bool  `json:"receive_email_marketing,omitempty"`
	ReceiveSmsMarketing     *bool  `json:"receive_sms_marketing,omitempty"`
	ReceiveRestaurantEmails *bool  `json:"receive_restaurant_emails,omitempty"`
	ReceiveRestaurantSms    *bool  `json:"receive_restaurant_sms,omitempty"`
}

type UpdateProfileRequest struct {
	FullName string         `json:"full_name" validate:"omitempty,min=3"`
	Booking  BookingProfile `json:"booking_profile"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}
