package db

import (
	"context"
	"errors"
	"time"

	"github.com/fleetdesk/fleetops/internal/models"
)

var (
	// ErrNotFound reports a reference to a nonexistent entity id.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey reports a unique-field collision at creation
	// (plate number, chassis number, badge number).
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrClaimChanged reports that a vehicle's claim token no longer
	// matches the one a transition was prepared against.
	ErrClaimChanged = errors.New("vehicle claim changed")
)

// DriverFilter selects drivers for listing.
type DriverFilter struct {
	Status models.DriverStatus
}

// VehicleFilter selects vehicles for listing.
type VehicleFilter struct {
	Status models.VehicleStatus
}

// MissionFilter selects missions for listing. From/To bound the
// mission start time; zero values leave the bound open.
type MissionFilter struct {
	Status    models.MissionStatus
	VehicleID string
	From      time.Time
	To        time.Time
}

// MaintenanceFilter selects maintenance events for listing. From/To
// bound the scheduled date; zero values leave the bound open.
type MaintenanceFilter struct {
	Status    models.MaintenanceStatus
	VehicleID string
	From      time.Time
	To        time.Time
}

// Transition is a cross-entity write: one mission or maintenance
// record plus its vehicle, applied as a single atomic unit. Exactly
// one of Mission and Maintenance is set. ExpectedClaim is the claim
// token the vehicle must still carry at commit time; a mismatch fails
// the whole transition with ErrClaimChanged and leaves both entities
// unchanged.
type Transition struct {
	Mission       *models.Mission
	Maintenance   *models.Maintenance
	Vehicle       *models.Vehicle
	ExpectedClaim models.Claim
}

// Store is the persistence interface used by the fleet service.
type Store interface {
	CreateDriver(ctx context.Context, d *models.Driver) (string, error)
	GetDriver(ctx context.Context, id string) (*models.Driver, error)
	UpdateDriver(ctx context.Context, id string, d *models.Driver) error
	ListDrivers(ctx context.Context, f DriverFilter) ([]models.Driver, error)

	CreateVehicle(ctx context.Context, v *models.Vehicle) (string, error)
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, v *models.Vehicle) error
	ListVehicles(ctx context.Context, f VehicleFilter) ([]models.Vehicle, error)

	CreateMission(ctx context.Context, m *models.Mission) (string, error)
	GetMission(ctx context.Context, id string) (*models.Mission, error)
	UpdateMission(ctx context.Context, id string, m *models.Mission) error
	ListMissions(ctx context.Context, f MissionFilter) ([]models.Mission, error)

	CreateMaintenance(ctx context.Context, m *models.Maintenance) (string, error)
	GetMaintenance(ctx context.Context, id string) (*models.Maintenance, error)
	UpdateMaintenance(ctx context.Context, id string, m *models.Maintenance) error
	ListMaintenance(ctx context.Context, f MaintenanceFilter) ([]models.Maintenance, error)

	ApplyTransition(ctx context.Context, t Transition) error
}
