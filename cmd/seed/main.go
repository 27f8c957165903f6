package main

import (
	"log"
	"os"

	"restaurant-booking-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "unicorn-demo"
	}

	log.Println("Seeding demo users...")
	users := SeedDemoUsers(db, password)

	log.Println("Seeding welcome notifications...")
	SeedWelcomeNotifications(db, users)

	log.Println("Seeding completed!")
}
