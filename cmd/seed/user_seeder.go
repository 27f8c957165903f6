package main

import (
	"encoding/json"
	"log"

	"restaurant-booking-be/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type demoUser struct {
	Email    string
	FullName string
	Profile  map[string]string
}

var demoUsers = []demoUser{
	{
		Email:    "ada@example.com",
		FullName: "Ada Lovelace",
		Profile:  map[string]string{"title": "Ms", "first_name": "Ada", "surname": "Lovelace", "mobile": "07700900001"},
	},
	{
		Email:    "alan@example.com",
		FullName: "Alan Turing",
		Profile:  map[string]string{"title": "Mr", "first_name": "Alan", "surname": "Turing"},
	},
}

// SeedDemoUsers makes sure every demo account exists and returns them.
func SeedDemoUsers(db *gorm.DB, password string) []model.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Error: hash password:", err)
	}

	seeded := make([]model.User, 0, len(demoUsers))
	for _, d := range demoUsers {
		profile, _ := json.Marshal(d.Profile)
		u := model.User{
			Email:        d.Email,
			PasswordHash: string(hash),
			FullName:     d.FullName,
			Profile:      datatypes.JSON(profile),
		}

		if err := db.Where("email = ?", d.Email).FirstOrCreate(&u).Error; err != nil {
			log.Printf("Error seeding user %s: %v", d.Email, err)
			continue
		}
		log.Printf("User ready: %s (%s)", u.Email, u.Id)
		seeded = append(seeded, u)
	}
	return seeded
}
