package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatSession is the durable side of a conversation. Working memory lives in
// the session store; this row carries ownership, a title and a summary of the
// latest turn for listing.
type ChatSession struct {
	Id                   uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId               uuid.UUID      `gorm:"type:uuid;not null;index"`
	Title                string         `gorm:"type:varchar(120);not null"`
	LastIntent           string         `gorm:"type:varchar(50);index"`
	LastBookingReference string         `gorm:"type:varchar(20)"`
	CreatedAt            time.Time      `gorm:"autoCreateTime"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime"`
	DeletedAt            gorm.DeletedAt `gorm:"index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}
