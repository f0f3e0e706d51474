package fleet

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleetops/internal/db"
	"github.com/fleetdesk/fleetops/internal/metrics"
	"github.com/fleetdesk/fleetops/internal/models"
)

// CreateMission records a new mission in the planned state. The
// referenced vehicle and driver must exist; the vehicle is not
// claimed until the mission starts.
func (s *Service) CreateMission(ctx context.Context, m *models.Mission) (string, error) {
	m.Status = models.MissionPlanned
	if m.DepartureLocation == "" {
		m.DepartureLocation = DefaultDepartureLocation
	}
	if err := m.Validate(); err != nil {
		return "", err
	}
	if _, err := s.store.GetVehicle(ctx, m.VehicleID); err != nil {
		return "", fmt.Errorf("vehicle %s: %w", m.VehicleID, err)
	}
	if _, err := s.store.GetDriver(ctx, m.DriverID); err != nil {
		return "", fmt.Errorf("driver %s: %w", m.DriverID, err)
	}
	return s.store.CreateMission(ctx, m)
}

// GetMission fetches a mission by id.
func (s *Service) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	return s.store.GetMission(ctx, id)
}

// UpdateMission applies an administrative edit to a non-terminal
// mission. Completed and cancelled missions are immutable through
// this path; use CorrectMission for after-the-fact corrections.
func (s *Service) UpdateMission(ctx context.Context, id string, m *models.Mission) error {
	cur, err := s.store.GetMission(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.acquire(cur.VehicleID)
	defer unlock.Unlock()

	if cur, err = s.store.GetMission(ctx, id); err != nil {
		return err
	}
	if cur.Status.Terminal() {
		return fmt.Errorf("%w: mission %s is %s", ErrInvalidTransition, id, cur.Status)
	}
	// Status and vehicle binding are owned by the lifecycle machine.
	m.Status = cur.Status
	m.VehicleID = cur.VehicleID
	if err := m.Validate(); err != nil {
		return err
	}
	return s.store.UpdateMission(ctx, id, m)
}

// CorrectMission is the administrative correction path for terminal
// missions: recorded fields may be fixed but the lifecycle state and
// the vehicle stay untouched.
func (s *Service) CorrectMission(ctx context.Context, id string, m *models.Mission) error {
	cur, err := s.store.GetMission(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.acquire(cur.VehicleID)
	defer unlock.Unlock()

	if cur, err = s.store.GetMission(ctx, id); err != nil {
		return err
	}
	m.Status = cur.Status
	m.VehicleID = cur.VehicleID
	if err := m.Validate(); err != nil {
		return err
	}
	if _, _, err := m.Distance(); err != nil {
		return err
	}
	log.WithFields(log.Fields{"mission": id}).Info("administrative mission correction")
	return s.store.UpdateMission(ctx, id, m)
}

// StartMission moves a planned mission to in_progress and claims the
// vehicle. Fails with ErrInvalidTransition if the mission is not
// planned and with ErrResourceConflict if any other non-terminal
// record already claims the vehicle.
func (s *Service) StartMission(ctx context.Context, id string) error {
	m, err := s.store.GetMission(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.acquire(m.VehicleID)
	defer unlock.Unlock()

	// Re-read under the vehicle lock: a concurrent transition may have
	// moved the mission since the first fetch.
	if m, err = s.store.GetMission(ctx, id); err != nil {
		return err
	}
	if m.Status != models.MissionPlanned {
		metrics.TransitionErrors.WithLabelValues("mission", "invalid_transition").Inc()
		return fmt.Errorf("%w: cannot start mission in state %s", ErrInvalidTransition, m.Status)
	}
	veh, err := s.store.GetVehicle(ctx, m.VehicleID)
	if err != nil {
		return err
	}
	if !veh.ClaimedBy.None() {
		metrics.TransitionErrors.WithLabelValues("mission", "conflict").Inc()
		return fmt.Errorf("%w: vehicle %s is claimed by %s %s",
			ErrResourceConflict, veh.ID, veh.ClaimedBy.Kind, veh.ClaimedBy.RefID)
	}
	if veh.Status != models.VehicleAvailable {
		metrics.TransitionErrors.WithLabelValues("mission", "conflict").Inc()
		return fmt.Errorf("%w: vehicle %s is %s", ErrResourceConflict, veh.ID, veh.Status)
	}

	expected := veh.ClaimedBy
	m.Status = models.MissionInProgress
	veh.Status = models.VehicleOnMission
	veh.ClaimedBy = models.Claim{Kind: models.ClaimMission, RefID: m.ID}

	if err := s.store.ApplyTransition(ctx, db.Transition{
		Mission:       m,
		Vehicle:       veh,
		ExpectedClaim: expected,
	}); err != nil {
		return claimConflict(err, veh.ID)
	}
	metrics.Transitions.WithLabelValues("mission", "start").Inc()
	s.publish("mission", m.ID, veh.ID, string(m.Status))
	s.publish("vehicle", veh.ID, veh.ID, string(veh.Status))
	return nil
}

// CompleteMission ends a live mission: records the return odometer
// reading and time, releases the vehicle, and advances the vehicle's
// odometer to the return reading. The return reading must not be
// below the departure reading.
func (s *Service) CompleteMission(ctx context.Context, id string, odometerReturn int, notes string) error {
	m, err := s.store.GetMission(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.acquire(m.VehicleID)
	defer unlock.Unlock()

	if m, err = s.store.GetMission(ctx, id); err != nil {
		return err
	}
	if !m.Status.Active() {
		metrics.TransitionErrors.WithLabelValues("mission", "invalid_transition").Inc()
		return fmt.Errorf("%w: cannot complete mission in state %s", ErrInvalidTransition, m.Status)
	}
	if odometerReturn < m.OdometerOut {
		metrics.TransitionErrors.WithLabelValues("mission", "invalid_metric").Inc()
		return fmt.Errorf("%w: odometer return %d below departure %d",
			models.ErrInvalidMetric, odometerReturn, m.OdometerOut)
	}
	veh, err := s.store.GetVehicle(ctx, m.VehicleID)
	if err != nil {
		return err
	}

	expected := veh.ClaimedBy
	now := time.Now()
	m.OdometerReturn = &odometerReturn
	m.ActualReturnTime = &now
	m.Status = models.MissionCompleted
	if notes != "" {
		m.Notes = notes
	}
	veh.Odometer = odometerReturn
	veh.Status = models.VehicleAvailable
	veh.ClaimedBy = models.Claim{}

	if err := s.store.ApplyTransition(ctx, db.Transition{
		Mission:       m,
		Vehicle:       veh,
		ExpectedClaim: expected,
	}); err != nil {
		return claimConflict(err, veh.ID)
	}
	metrics.Transitions.WithLabelValues("mission", "complete").Inc()
	s.publish("mission", m.ID, veh.ID, string(m.Status))
	s.publish("vehicle", veh.ID, veh.ID, string(veh.Status))
	return nil
}

// CancelMission cancels a non-terminal mission. A live mission
// releases its vehicle without touching the odometer; a planned one
// only changes its own status.
func (s *Service) CancelMission(ctx context.Context, id string) error {
	m, err := s.store.GetMission(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.acquire(m.VehicleID)
	defer unlock.Unlock()

	if m, err = s.store.GetMission(ctx, id); err != nil {
		return err
	}
	if m.Status.Terminal() {
		metrics.TransitionErrors.WithLabelValues("mission", "invalid_transition").Inc()
		return fmt.Errorf("%w: mission %s is already %s", ErrInvalidTransition, id, m.Status)
	}

	wasLive := m.Status.Active()
	m.Status = models.MissionCancelled

	if !wasLive {
		if err := s.store.UpdateMission(ctx, id, m); err != nil {
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
			Mission:       m,
			Vehicle:       veh,
			ExpectedClaim: expected,
		}); err != nil {
			return claimConflict(err, veh.ID)
		}
		s.publish("vehicle", veh.ID, veh.ID, string(veh.Status))
	}
	metrics.Transitions.WithLabelValues("mission", "cancel").Inc()
	s.publish("mission", m.ID, m.VehicleID, string(m.Status))
	return nil
}

// MarkMissionOverdue flags an in-progress mission whose expected
// return time has passed. The mission keeps its vehicle claim and can
// still complete or cancel.
func (s *Service) MarkMissionOverdue(ctx context.Context, id string, now time.Time) error {
	m, err := s.store.GetMission(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.acquire(m.VehicleID)
	defer unlock.Unlock()

	if m, err = s.store.GetMission(ctx, id); err != nil {
		return err
	}
	if m.Status != models.MissionInProgress {
		metrics.TransitionErrors.WithLabelValues("mission", "invalid_transition").Inc()
		return fmt.Errorf("%w: cannot mark mission %s overdue in state %s", ErrInvalidTransition, id, m.Status)
	}
	if m.ExpectedReturnTime == nil || now.Before(*m.ExpectedReturnTime) {
		return fmt.Errorf("%w: mission %s is not past its expected return", ErrInvalidTransition, id)
	}
	m.Status = models.MissionOverdue
	if err := s.store.UpdateMission(ctx, id, m); err != nil {
		return err
	}
	metrics.Transitions.WithLabelValues("mission", "overdue").Inc()
	s.publish("mission", m.ID, m.VehicleID, string(m.Status))
	return nil
}
