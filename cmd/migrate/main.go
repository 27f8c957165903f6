package main

import (
	"log"

	"restaurant-booking-be/internal/config"
	"restaurant-booking-be/internal/model"
	"restaurant-booking-be/pkg/database"
)

func main() {
	cfg := config.Load()

	db, err := database.NewGormDB(cfg.Database.Connection, database.PoolConfig{Verbose: true})
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up extensions...")

	// gen_random_uuid() defaults
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.User{},
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.Booking{},
		&model.Notification{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Step 3: Creating views...")

	postMigrationSQL := []string{
		`CREATE OR REPLACE VIEW upcoming_bookings AS
		 SELECT b.booking_reference, b.visit_date, b.visit_time, b.party_size, b.status, u.email, u.full_name
		 FROM bookings b JOIN users u ON b.user_id = u.id
		 WHERE b.deleted_at IS NULL AND b.status = 'confirmed' AND b.visit_date >= to_char(now(), 'YYYY-MM-DD')
		 ORDER BY b.visit_date, b.visit_time;`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	log.Println("Database migration completed.")
}
