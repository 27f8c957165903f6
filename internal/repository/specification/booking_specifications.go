package specification

import "gorm.io/gorm"

type ByBookingReference struct {
	Reference string
}

func (s ByBookingReference) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("booking_reference = ?", s.Reference)
}

type ByBookingStatus struct {
	Status string
}

func (s ByBookingStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// UpcomingFrom keeps visits on or after the given YYYY-MM-DD date.
type UpcomingFrom struct {
	Date string
}

func (s UpcomingFrom) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("visit_date >= ?", s.Date)
}
