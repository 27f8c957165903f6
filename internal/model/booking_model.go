package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Booking mirrors a reservation made through the assistant. The restaurant
// API stays the source of truth; this table backs "my bookings".
type Booking struct {
	Id                 uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId             uuid.UUID      `gorm:"type:uuid;not null;index"`
	ChatSessionId      *uuid.UUID     `gorm:"type:uuid;index"`
	BookingReference   string         `gorm:"type:varchar(20);not null;uniqueIndex"`
	Restaurant         string         `gorm:"type:varchar(255)"`
	VisitDate          string         `gorm:"type:varchar(10)"`
	VisitTime          string         `gorm:"type:varchar(8)"`
	PartySize          int            `gorm:"default:0"`
	SpecialRequests    string         `gorm:"type:text"`
	Status             string         `gorm:"type:varchar(50);not null;default:'confirmed'"`
	CancellationReason string         `gorm:"type:varchar(100)"`
	CreatedAt          time.Time      `gorm:"autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime"`
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

func (Booking) TableName() string {
	return "bookings"
}
