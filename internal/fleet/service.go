// Package fleet holds the lifecycle logic that keeps a vehicle's
// operational status consistent with the missions and maintenance
// events referencing it. All cross-entity writes go through the store
// as one atomic transition, serialized per vehicle.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleetops/internal/db"
	"github.com/fleetdesk/fleetops/internal/events"
	"github.com/fleetdesk/fleetops/internal/metrics"
	"github.com/fleetdesk/fleetops/internal/models"
)

// DefaultDepartureLocation is used when a mission does not name one.
const DefaultDepartureLocation = "head office"

// Service coordinates the entity store, the lifecycle state machines,
// and the status event stream.
type Service struct {
	store  db.Store
	events events.Publisher
	locks  *vehicleLocks
}

// NewService creates a fleet service over the given store. A nil
// publisher disables event emission.
func NewService(store db.Store, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		store:  store,
		events: publisher,
		locks:  newVehicleLocks(),
	}
}

// --- drivers ---

// CreateDriver registers a new driver. Status defaults to active.
func (s *Service) CreateDriver(ctx context.Context, d *models.Driver) (string, error) {
	if d.Status == "" {
		d.Status = models.DriverActive
	}
	if err := d.Validate(); err != nil {
		return "", err
	}
	return s.store.CreateDriver(ctx, d)
}

// GetDriver fetches a driver by id.
func (s *Service) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	return s.store.GetDriver(ctx, id)
}

// UpdateDriver applies an administrative edit. Drivers are never
// deleted; deactivation is a status change.
func (s *Service) UpdateDriver(ctx context.Context, id string, d *models.Driver) error {
	if err := d.Validate(); err != nil {
		return err
	}
	return s.store.UpdateDriver(ctx, id, d)
}

// ListDrivers lists drivers matching the filter.
func (s *Service) ListDrivers(ctx context.Context, f db.DriverFilter) ([]models.Driver, error) {
	return s.store.ListDrivers(ctx, f)
}

// --- vehicles ---

// CreateVehicle registers a new vehicle. Status defaults to available
// and the claim token starts empty.
func (s *Service) CreateVehicle(ctx context.Context, v *models.Vehicle) (string, error) {
	if v.Status == "" {
		v.Status = models.VehicleAvailable
	}
	v.ClaimedBy = models.Claim{}
	if err := v.Validate(); err != nil {
		return "", err
	}
	return s.store.CreateVehicle(ctx, v)
}

// GetVehicle fetches a vehicle by id.
func (s *Service) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	return s.store.GetVehicle(ctx, id)
}

// UpdateVehicle applies an administrative edit to a vehicle's
// attributes. The status and claim fields are owned by the lifecycle
// machines and are carried over unchanged; use SetVehicleStatus for
// administrative status changes.
func (s *Service) UpdateVehicle(ctx context.Context, id string, v *models.Vehicle) error {
	unlock := s.locks.acquire(id)
	defer unlock.Unlock()

	cur, err := s.store.GetVehicle(ctx, id)
	if err != nil {
		return err
	}
	v.Status = cur.Status
	v.ClaimedBy = cur.ClaimedBy
	if err := v.Validate(); err != nil {
		return err
	}
	return s.store.UpdateVehicle(ctx, id, v)
}

// SetVehicleStatus is the administrative path for marking a vehicle
// broken down, decommissioned, or back in service. It refuses while a
// mission or maintenance claim is active: the claim holder is the
// sole writer of the status until it reaches a terminal state.
func (s *Service) SetVehicleStatus(ctx context.Context, id string, status models.VehicleStatus) error {
	unlock := s.locks.acquire(id)
	defer unlock.Unlock()

	switch status {
	case models.VehicleAvailable, models.VehicleBrokenDown, models.VehicleDecommissioned:
	default:
		return fmt.Errorf("%w: status %q is set by the lifecycle machines", ErrInvalidTransition, status)
	}

	veh, err := s.store.GetVehicle(ctx, id)
	if err != nil {
		return err
	}
	if !veh.ClaimedBy.None() {
		metrics.TransitionErrors.WithLabelValues("vehicle", "conflict").Inc()
		return fmt.Errorf("%w: vehicle %s is claimed by %s %s",
			ErrResourceConflict, id, veh.ClaimedBy.Kind, veh.ClaimedBy.RefID)
	}
	veh.Status = status
	if err := s.store.UpdateVehicle(ctx, id, veh); err != nil {
		return err
	}
	s.publish("vehicle", veh.ID, veh.ID, string(status))
	metrics.Transitions.WithLabelValues("vehicle", "set_status").Inc()
	return nil
}

// ListVehicles lists vehicles matching the filter.
func (s *Service) ListVehicles(ctx context.Context, f db.VehicleFilter) ([]models.Vehicle, error) {
	return s.store.ListVehicles(ctx, f)
}

// --- queries ---

// ListMissions lists missions matching the filter.
func (s *Service) ListMissions(ctx context.Context, f db.MissionFilter) ([]models.Mission, error) {
	return s.store.ListMissions(ctx, f)
}

// ListMaintenance lists maintenance events matching the filter.
func (s *Service) ListMaintenance(ctx context.Context, f db.MaintenanceFilter) ([]models.Maintenance, error) {
	return s.store.ListMaintenance(ctx, f)
}

// --- shared helpers ---

func (s *Service) publish(entity, id, vehicleID, status string) {
	ev := events.StatusEvent{
		Entity:    entity,
		ID:        id,
		VehicleID: vehicleID,
		Status:    status,
		Timestamp: time.Now(),
	}
	if err := s.events.PublishStatus(ev); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"entity": entity,
			"id":     id,
			"status": status,
		}).Warn("failed to publish status event")
	}
}

// claimConflict translates a store-level claim mismatch into the
// caller-facing conflict error; anything else passes through.
func claimConflict(err error, vehicleID string) error {
	if errors.Is(err, db.ErrClaimChanged) {
		return fmt.Errorf("%w: vehicle %s was claimed concurrently", ErrResourceConflict, vehicleID)
	}
	return err
}
