package fleet

import (
	"context"
	"fmt"

	"github.com/fleetdesk/fleetops/internal/db"
	"github.com/fleetdesk/fleetops/internal/metrics"
	"github.com/fleetdesk/fleetops/internal/models"
)

// CreateMaintenance records a new maintenance event in the planned
// state. The vehicle is not claimed until the work starts.
func (s *Service) CreateMaintenance(ctx context.Context, m *models.Maintenance) (string, error) {
	m.Status = models.MaintenancePlanned
	if err := m.Validate(); err != nil {
		return "", err
	}
	if _, err := s.store.GetVehicle(ctx, m.VehicleID); err != nil {
		return "", fmt.Errorf("vehicle %s: %w", m.VehicleID, err)
	}
	return s.store.CreateMaintenance(ctx, m)
}

// GetMaintenance fetches a maintenance event by id.
func (s *Service) GetMaintenance(ctx context.Context, id string) (*models.Maintenance, error) {
	return s.store.GetMaintenance(ctx, id)
}

// UpdateMaintenance applies an administrative edit to a non-terminal
// maintenance event.
func (s *Service) UpdateMaintenance(ctx context.Context, id string, m *models.Maintenance) error {
	cur, err := s.store.GetMaintenance(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.acquire(cur.VehicleID)
	defer unlock.Unlock()

	if cur, err = s.store.GetMaintenance(ctx, id); err != nil {
		return err
	}
	if cur.Status.Terminal() {
		return fmt.Errorf("%w: maintenance %s is %s", ErrInvalidTransition, id, cur.Status)
	}
	m.Status = cur.Status
	m.VehicleID = cur.VehicleID
	if err := m.Validate(); err != nil {
		return err
	}
	return s.store.UpdateMaintenance(ctx, id, m)
}

// StartMaintenance moves a planned maintenance event to in_progress
// and claims the vehicle, mirroring StartMission on the
// available↔in_maintenance edge.
func (s *Service) StartMaintenance(ctx context.Context, id string) error {
	m, err := s.store.GetMaintenance(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.acquire(m.VehicleID)
	defer unlock.Unlock()

	if m, err = s.store.GetMaintenance(ctx, id); err != nil {
		return err
	}
	if m.Status != models.MaintenancePlanned {
		metrics.TransitionErrors.WithLabelValues("maintenance", "invalid_transition").Inc()
		return fmt.Errorf("%w: cannot start maintenance in state %s", ErrInvalidTransition, m.Status)
	}
	veh, err := s.store.GetVehicle(ctx, m.VehicleID)
	if err != nil {
		return err
	}
	if !veh.ClaimedBy.None() {
		metrics.TransitionErrors.WithLabelValues("maintenance", "conflict").Inc()
		return fmt.Errorf("%w: vehicle %s is claimed by %s %s",
			ErrResourceConflict, veh.ID, veh.ClaimedBy.Kind, veh.ClaimedBy.RefID)
	}
	if veh.Status != models.VehicleAvailable && veh.Status != models.VehicleBrokenDown {
		metrics.TransitionErrors.WithLabelValues("maintenance", "conflict").Inc()
		return fmt.Errorf("%w: vehicle %s is %s", ErrResourceConflict, veh.ID, veh.Status)
	}

	expected := veh.ClaimedBy
	m.Status = models.MaintenanceInProgress
	veh.Status = models.VehicleInMaintenance
	veh.ClaimedBy = models.Claim{Kind: models.ClaimMaintenance, RefID: m.ID}

	if err := s.store.ApplyTransition(ctx, db.Transition{
		Maintenance:   m,
		Vehicle:       veh,
		ExpectedClaim: expected,
	}); err != nil {
		return claimConflict(err, veh.ID)
	}
	metrics.Transitions.WithLabelValues("maintenance", "start").Inc()
	s.publish("maintenance", m.ID, veh.ID, string(m.Status))
	s.publish("vehicle", veh.ID, veh.ID, string(veh.Status))
	return nil
}

// CompleteMaintenance finishes an in-progress maintenance event and
// releases the vehicle back to available.
func (s *Service) CompleteMaintenance(ctx context.Context, id string) error {
	m, err := s.store.GetMaintenance(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.acquire(m.VehicleID)
	defer unlock.Unlock()

	if m, err = s.store.GetMaintenance(ctx, id); err != nil {
		return err
	}
	if m.Status != models.MaintenanceInProgress {
		metrics.TransitionErrors.WithLabelValues("maintenance", "invalid_transition").Inc()
		return fmt.Errorf("%w: cannot complete maintenance in state %s", ErrInvalidTransition, m.Status)
	}
	veh, err := s.store.GetVehicle(ctx, m.VehicleID)
	if err != nil {
		return err
	}

	expected := veh.ClaimedBy
	m.Status = models.MaintenanceCompleted
	veh.Status = models.VehicleAvailable
	veh.ClaimedBy = models.Claim{}

	if err := s.store.ApplyTransition(ctx, db.Transition{
		Maintenance:   m,
		Vehicle:       veh,
		ExpectedClaim: expected,
	}); err != nil {
		return claimConflict(err, veh.ID)
	}
	metrics.Transitions.WithLabelValues("maintenance", "complete").Inc()
	s.publish("maintenance", m.ID, veh.ID, string(m.Status))
	s.publish("vehicle", veh.ID, veh.ID, string(veh.Status))
	return nil
}

// CancelMaintenance cancels a non-terminal maintenance event,
// releasing the vehicle if the work had started.
func (s *Service) CancelMaintenance(ctx context.Context, id string) error {
	m, err := s.store.GetMaintenance(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.acquire(m.VehicleID)
	defer unlock.Unlock()

	if m, err = s.store.GetMaintenance(ctx, id); err != nil {
		return err
	}
	if m.Status.Terminal() {
		metrics.TransitionErrors.WithLabelValues("maintenance", "invalid_transition").Inc()
		return fmt.Errorf("%w: maintenance %s is already %s", ErrInvalidTransition, id, m.Status)
	}

	wasLive := m.Status == models.MaintenanceInProgress
	m.Status = models.MaintenanceCancelled

	if !wasLive {
		if err := s.store.UpdateMaintenance(ctx, id, m); err != nil {
			return err
		}
	} else {
		veh, err := s.store.GetVehicle(ctx, m.VehicleID)
		if err != nil {
			return err
		}
		expected := veh.ClaimedBy
		veh.Status = models.VehicleAvailable
		veh.ClaimedBy = models.Claim{}
		if err := s.store.ApplyTransition(ctx, db.Transition{
			Maintenance:   m,
			Vehicle:       veh,
			ExpectedClaim: expected,
		}); err != nil {
			return claimConflict(err, veh.ID)
		}
		s.publish("vehicle", veh.ID, veh.ID, string(veh.Status))
	}
	metrics.Transitions.WithLabelValues("maintenance", "cancel").Inc()
	s.publish("maintenance", m.ID, m.VehicleID, string(m.Status))
	return nil
}
