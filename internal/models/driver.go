package models

import (
	"regexp"
	"strings"
	"time"
)

// DriverStatus is the administrative status of a driver.
type DriverStatus string

const (
	DriverActive      DriverStatus = "active"
	DriverInactive    DriverStatus = "inactive"
	DriverOnLeave     DriverStatus = "on_leave"
	DriverOnSickLeave DriverStatus = "on_sick_leave"
)

// Valid reports whether the status is one of the known driver statuses.
func (s DriverStatus) Valid() bool {
	switch s {
	case DriverActive, DriverInactive, DriverOnLeave, DriverOnSickLeave:
		return true
	default:
		return false
	}
}

var phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)

// Driver represents a fleet driver. Drivers are never deleted; an
// administrator changes the status instead.
type Driver struct {
	ID            string       `bson:"_id,omitempty" json:"id"`
	BadgeNumber   string       `bson:"badge_number" json:"badge_number"`
	FirstName     string       `bson:"first_name" json:"first_name"`
	LastName      string       `bson:"last_name" json:"last_name"`
	Phone         string       `bson:"phone" json:"phone"`
	Address       string       `bson:"address" json:"address"`
	HireDate      time.Time    `bson:"hire_date" json:"hire_date"`
	LicenseNumber string       `bson:"license_number" json:"license_number"`
	Status        DriverStatus `bson:"status" json:"status"`
	CreatedAt     time.Time    `bson:"created_at,omitempty" json:"created_at"`
	UpdatedAt     time.Time    `bson:"updated_at" json:"updated_at"`
}

// FullName returns the driver's display name.
func (d *Driver) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// Validate checks the driver's fields before it is stored.
func (d *Driver) Validate() error {
	if d.BadgeNumber == "" {
		return invalidf("badge number is required")
	}
	if d.FirstName == "" && d.LastName == "" {
		return invalidf("driver name is required")
	}
	if !phonePattern.MatchString(d.Phone) {
		return invalidf("invalid phone number %q", d.Phone)
	}
	if d.LicenseNumber == "" {
		return invalidf("license number is required")
	}
	if d.HireDate.IsZero() {
		return invalidf("hire date is required")
	}
	if !d.Status.Valid() {
		return invalidf("invalid driver status %q", d.Status)
	}
	return nil
}
