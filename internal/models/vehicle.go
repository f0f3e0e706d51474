package models

import (
	"fmt"
	"time"
)

// VehicleStatus is the operational status of a vehicle. While a mission
// or maintenance record holds the vehicle's claim, the status field is
// written only by the lifecycle transitions, never edited directly.
type VehicleStatus string

const (
	VehicleAvailable      VehicleStatus = "available"
	VehicleOnMission      VehicleStatus = "on_mission"
	VehicleInMaintenance  VehicleStatus = "in_maintenance"
	VehicleBrokenDown     VehicleStatus = "broken_down"
	VehicleDecommissioned VehicleStatus = "decommissioned"
)

// Valid reports whether the status is one of the known vehicle statuses.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleAvailable, VehicleOnMission, VehicleInMaintenance,
		VehicleBrokenDown, VehicleDecommissioned:
		return true
	default:
		return false
	}
}

// VehicleType classifies a vehicle.
type VehicleType string

const (
	TypeCar        VehicleType = "car"
	TypeTruck      VehicleType = "truck"
	TypeBus        VehicleType = "bus"
	TypeMotorcycle VehicleType = "motorcycle"
	TypeUtility    VehicleType = "utility"
)

// Valid reports whether the type is one of the known vehicle types.
func (t VehicleType) Valid() bool {
	switch t {
	case TypeCar, TypeTruck, TypeBus, TypeMotorcycle, TypeUtility:
		return true
	default:
		return false
	}
}

// FuelType is the vehicle's fuel kind.
type FuelType string

const (
	FuelGasoline FuelType = "gasoline"
	FuelDiesel   FuelType = "diesel"
	FuelElectric FuelType = "electric"
	FuelHybrid   FuelType = "hybrid"
)

// Valid reports whether the fuel type is known.
func (f FuelType) Valid() bool {
	switch f {
	case FuelGasoline, FuelDiesel, FuelElectric, FuelHybrid:
		return true
	default:
		return false
	}
}

// ClaimKind tags which kind of record holds a vehicle's claim.
type ClaimKind string

const (
	ClaimNone        ClaimKind = ""
	ClaimMission     ClaimKind = "mission"
	ClaimMaintenance ClaimKind = "maintenance"
)

// Claim is the exclusive hold a non-terminal mission or maintenance
// record has on a vehicle. At most one record holds the claim at a
// time; the holder owns the vehicle's status until it reaches a
// terminal state.
type Claim struct {
	Kind  ClaimKind `bson:"kind" json:"kind"`
	RefID string    `bson:"ref_id,omitempty" json:"ref_id,omitempty"`
}

// None reports whether no record currently claims the vehicle.
func (c Claim) None() bool { return c.Kind == ClaimNone }

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID            string        `bson:"_id,omitempty" json:"id"`
	PlateNumber   string        `bson:"plate_number" json:"plate_number"`
	ChassisNumber string        `bson:"chassis_number" json:"chassis_number"`
	Make          string        `bson:"make" json:"make"`
	Model         string        `bson:"model" json:"model"`
	Color         string        `bson:"color" json:"color"`
	Year          int           `bson:"year" json:"year"`
	VehicleType   VehicleType   `bson:"vehicle_type" json:"vehicle_type"`
	FuelType      FuelType      `bson:"fuel_type" json:"fuel_type"`
	TankCapacity  float64       `bson:"tank_capacity" json:"tank_capacity"` // in liters
	Odometer      int           `bson:"odometer" json:"odometer"`           // in kilometers
	Status        VehicleStatus `bson:"status" json:"status"`
	ClaimedBy     Claim         `bson:"claimed_by" json:"claimed_by"`
	PurchaseDate  time.Time     `bson:"purchase_date" json:"purchase_date"`
	PurchasePrice float64       `bson:"purchase_price" json:"purchase_price"` // in USD
	CreatedAt     time.Time     `bson:"created_at,omitempty" json:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updated_at"`
}

// DisplayName returns the vehicle's display name.
func (v *Vehicle) DisplayName() string {
	return fmt.Sprintf("%s %s - %s", v.Make, v.Model, v.PlateNumber)
}

// Validate checks the vehicle's fields before it is stored.
func (v *Vehicle) Validate() error {
	if v.PlateNumber == "" {
		return invalidf("plate number is required")
	}
	if v.ChassisNumber == "" {
		return invalidf("chassis number is required")
	}
	if v.Make == "" || v.Model == "" {
		return invalidf("make and model are required")
	}
	if !v.VehicleType.Valid() {
		return invalidf("invalid vehicle type %q", v.VehicleType)
	}
	if !v.FuelType.Valid() {
		return invalidf("invalid fuel type %q", v.FuelType)
	}
	if v.TankCapacity < 0 {
		return invalidf("tank capacity must not be negative")
	}
	if v.Odometer < 0 {
		return invalidf("odometer must not be negative")
	}
	if !v.Status.Valid() {
		return invalidf("invalid vehicle status %q", v.Status)
	}
	if v.PurchasePrice < 0 {
		return invalidf("purchase price must not be negative")
	}
	return nil
}
