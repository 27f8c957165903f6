package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string
type UserStatus string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"

	UserStatusActive  UserStatus = "active"
	UserStatusBlocked UserStatus = "blocked"
)

type User struct {
	Id           uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         UserRole
	Status       UserStatus
	Profile      UserProfile
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserProfile holds the defaults the assistant fills into booking forms.
type UserProfile struct {
	Title                   string `json:"title,omitempty"`
	FirstName               string `json:"first_name,omitempty"`
	Surname                 string `json:"surname,omitempty"`
	Mobile                  string `json:"mobile,omitempty"`
	ReceiveEmailMarketing   *bool  `json:"receive_email_marketing,omitempty"`
	ReceiveSmsMarketing     *bool  `json:"receive_sms_marketing,omitempty"`
	ReceiveRestaurantEmails *bool  `json:"receive_restaurant_emails,omitempty"`
	ReceiveRestaurantSms    *bool  `json:"receive_restaurant_sms,omitempty"`
}
