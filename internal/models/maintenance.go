package models

import (
	"time"
)

// MaintenanceStatus is the lifecycle state of a maintenance event.
type MaintenanceStatus string

const (
	MaintenancePlanned    MaintenanceStatus = "planned"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

// Valid reports whether the status is one of the known maintenance statuses.
func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenancePlanned, MaintenanceInProgress,
		MaintenanceCompleted, MaintenanceCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is permitted.
func (s MaintenanceStatus) Terminal() bool {
	return s == MaintenanceCompleted || s == MaintenanceCancelled
}

// MaintenanceType classifies a maintenance event.
type MaintenanceType string

const (
	MaintenancePreventive MaintenanceType = "preventive"
	MaintenanceCorrective MaintenanceType = "corrective"
	MaintenanceOverhaul   MaintenanceType = "overhaul"
	MaintenanceRepair     MaintenanceType = "repair"
)

// Valid reports whether the type is one of the known maintenance types.
func (t MaintenanceType) Valid() bool {
	switch t {
	case MaintenancePreventive, MaintenanceCorrective,
		MaintenanceOverhaul, MaintenanceRepair:
		return true
	default:
		return false
	}
}

// Maintenance represents a vehicle maintenance event.
type Maintenance struct {
	ID            string            `bson:"_id,omitempty" json:"id"`
	VehicleID     string            `bson:"vehicle_id" json:"vehicle_id"`
	Type          MaintenanceType   `bson:"type" json:"type"`
	Description   string            `bson:"description" json:"description"`
	ScheduledDate time.Time         `bson:"scheduled_date" json:"scheduled_date"`
	OdometerAt    int               `bson:"odometer_at" json:"odometer_at"` // in kilometers
	Cost          float64           `bson:"cost" json:"cost"`               // in USD
	Garage        string            `bson:"garage" json:"garage"`
	Technician    string            `bson:"technician" json:"technician"`
	Status        MaintenanceStatus `bson:"status" json:"status"`
	CreatedAt     time.Time         `bson:"created_at,omitempty" json:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at" json:"updated_at"`
}

// Validate checks the maintenance event's fields before it is stored.
func (m *Maintenance) Validate() error {
	if m.VehicleID == "" {
		return invalidf("vehicle id is required")
	}
	if !m.Type.Valid() {
		return invalidf("invalid maintenance type %q", m.Type)
	}
	if m.Description == "" {
		return invalidf("description is required")
	}
	if m.ScheduledDate.IsZero() {
		return invalidf("scheduled date is required")
	}
	if m.OdometerAt < 0 {
		return invalidf("odometer must not be negative")
	}
	if m.Cost < 0 {
		return invalidf("cost must not be negative")
	}
	if !m.Status.Valid() {
		return invalidf("invalid maintenance status %q", m.Status)
	}
	return nil
}
