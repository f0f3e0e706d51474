package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidMetric reports a derived value that is physically
// impossible, such as a negative distance. It signals a data-entry
// error upstream and is never silently clamped.
var ErrInvalidMetric = errors.New("invalid metric")

// MissionStatus is the lifecycle state of a mission.
type MissionStatus string

const (
	MissionPlanned    MissionStatus = "planned"
	MissionInProgress MissionStatus = "in_progress"
	MissionCompleted  MissionStatus = "completed"
	MissionCancelled  MissionStatus = "cancelled"
	MissionOverdue    MissionStatus = "overdue"
)

// Valid reports whether the status is one of the known mission statuses.
func (s MissionStatus) Valid() bool {
	switch s {
	case MissionPlanned, MissionInProgress, MissionCompleted,
		MissionCancelled, MissionOverdue:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is permitted.
func (s MissionStatus) Terminal() bool {
	return s == MissionCompleted || s == MissionCancelled
}

// Active reports whether the mission currently holds its vehicle's
// claim. An overdue mission is still out with the vehicle.
func (s MissionStatus) Active() bool {
	return s == MissionInProgress || s == MissionOverdue
}

// Mission represents a trip assigned to a vehicle and a driver.
type Mission struct {
	ID                 string        `bson:"_id,omitempty" json:"id"`
	VehicleID          string        `bson:"vehicle_id" json:"vehicle_id"`
	DriverID           string        `bson:"driver_id" json:"driver_id"`
	Requester          string        `bson:"requester" json:"requester"`
	Subject            string        `bson:"subject" json:"subject"`
	Destination        string        `bson:"destination" json:"destination"`
	DepartureLocation  string        `bson:"departure_location" json:"departure_location"`
	StartTime          time.Time     `bson:"start_time" json:"start_time"`
	EndTime            time.Time     `bson:"end_time" json:"end_time"`
	ExpectedReturnTime *time.Time    `bson:"expected_return_time,omitempty" json:"expected_return_time,omitempty"`
	ActualReturnTime   *time.Time    `bson:"actual_return_time,omitempty" json:"actual_return_time,omitempty"`
	OdometerOut        int           `bson:"odometer_out" json:"odometer_out"`
	OdometerReturn     *int          `bson:"odometer_return,omitempty" json:"odometer_return,omitempty"`
	Status             MissionStatus `bson:"status" json:"status"`
	Notes              string        `bson:"notes" json:"notes"`
	FuelCost           *float64      `bson:"fuel_cost,omitempty" json:"fuel_cost,omitempty"`
	OtherCosts         *float64      `bson:"other_costs,omitempty" json:"other_costs,omitempty"`
	CreatedAt          time.Time     `bson:"created_at,omitempty" json:"created_at"`
	UpdatedAt          time.Time     `bson:"updated_at" json:"updated_at"`
}

// Duration returns the planned mission duration. It is undefined until
// both start and end times are set.
func (m *Mission) Duration() (time.Duration, bool) {
	if m.StartTime.IsZero() || m.EndTime.IsZero() {
		return 0, false
	}
	return m.EndTime.Sub(m.StartTime), true
}

// Distance returns the distance travelled in kilometers. It is
// undefined until the return odometer reading is recorded, and fails
// with ErrInvalidMetric when the return reading is below the departure
// reading.
func (m *Mission) Distance() (km int, defined bool, err error) {
	if m.OdometerReturn == nil {
		return 0, false, nil
	}
	d := *m.OdometerReturn - m.OdometerOut
	if d < 0 {
		return 0, true, fmt.Errorf("%w: odometer return %d below departure %d",
			ErrInvalidMetric, *m.OdometerReturn, m.OdometerOut)
	}
	return d, true, nil
}

// TotalCost returns the mission's total cost, treating absent cost
// components as zero.
func (m *Mission) TotalCost() float64 {
	var total float64
	if m.FuelCost != nil {
		total += *m.FuelCost
	}
	if m.OtherCosts != nil {
		total += *m.OtherCosts
	}
	return total
}

// Validate checks the mission's fields before it is stored.
func (m *Mission) Validate() error {
	if m.VehicleID == "" {
		return invalidf("vehicle id is required")
	}
	if m.DriverID == "" {
		return invalidf("driver id is required")
	}
	if m.Subject == "" {
		return invalidf("mission subject is required")
	}
	if m.Destination == "" {
		return invalidf("destination is required")
	}
	if m.StartTime.IsZero() {
		return invalidf("start time is required")
	}
	if !m.EndTime.IsZero() && m.EndTime.Before(m.StartTime) {
		return invalidf("end time precedes start time")
	}
	if m.OdometerOut < 0 {
		return invalidf("departure odometer must not be negative")
	}
	if m.FuelCost != nil && *m.FuelCost < 0 {
		return invalidf("fuel cost must not be negative")
	}
	if m.OtherCosts != nil && *m.OtherCosts < 0 {
		return invalidf("other costs must not be negative")
	}
	if !m.Status.Valid() {
		return invalidf("invalid mission status %q", m.Status)
	}
	return nil
}
