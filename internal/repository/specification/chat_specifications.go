package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

// ByLastIntent keeps sessions whose latest turn was about intent.
type ByLastIntent struct {
	Intent string
}

func (s ByLastIntent) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("last_intent = ?", s.Intent)
}
