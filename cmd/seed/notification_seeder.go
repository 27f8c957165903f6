package main

import (
	"log"

	"restaurant-booking-be/internal/model"

	"gorm.io/gorm"
)

const welcomeType = "welcome"

// SeedWelcomeNotifications leaves one unread inbox entry per user, once.
func SeedWelcomeNotifications(db *gorm.DB, users []model.User) {
	for _, u := range users {
		n := model.Notification{
			UserID:   u.Id,
			TypeCode: welcomeType,
			Title:    "Welcome",
			Message:  "Ask the assistant to book, check, change or cancel a table at any time.",
		}
		err := db.Where("user_id = ? AND type_code = ?", u.Id, welcomeType).FirstOrCreate(&n).Error
		if err != nil {
			log.Printf("Error seeding notification for %s: %v", u.Email, err)
		}
	}
	log.Printf("Welcome notifications seeded for %d users.", len(users))
}
