package db

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetdesk/fleetops/internal/models"
)

// Memory is a map-backed store used in tests and when no MONGO_URI is
// configured. A single mutex guards all maps, so every write is
// atomic, including the cross-entity transition. Entities are copied
// on the way in and out so callers never observe an aliased record.
type Memory struct {
	mu sync.Mutex

	drivers     map[string]models.Driver
	vehicles    map[string]models.Vehicle
	missions    map[string]models.Mission
	maintenance map[string]models.Maintenance

	// uniqueness indexes: value -> entity id
	badges  map[string]string
	plates  map[string]string
	chassis map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		drivers:     map[string]models.Driver{},
		vehicles:    map[string]models.Vehicle{},
		missions:    map[string]models.Mission{},
		maintenance: map[string]models.Maintenance{},
		badges:      map[string]string{},
		plates:      map[string]string{},
		chassis:     map[string]string{},
	}
}

func (s *Memory) CreateDriver(ctx context.Context, d *models.Driver) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.badges[d.BadgeNumber]; taken {
		return "", ErrDuplicateKey
	}
	rec := *d
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	s.drivers[rec.ID] = rec
	s.badges[rec.BadgeNumber] = rec.ID
	return rec.ID, nil
}

func (s *Memory) GetDriver(ctx context.Context, id string) (*models.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *Memory) UpdateDriver(ctx context.Context, id string, d *models.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.drivers[id]
	if !ok {
		return ErrNotFound
	}
	if d.BadgeNumber != prev.BadgeNumber {
		if owner, taken := s.badges[d.BadgeNumber]; taken && owner != id {
			return ErrDuplicateKey
		}
		delete(s.badges, prev.BadgeNumber)
		s.badges[d.BadgeNumber] = id
	}
	rec := *d
	rec.ID = id
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = time.Now()
	s.drivers[id] = rec
	return nil
}

func (s *Memory) ListDrivers(ctx context.Context, f DriverFilter) ([]models.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Driver{}
	for _, rec := range s.drivers {
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Memory) CreateVehicle(ctx context.Context, v *models.Vehicle) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.plates[v.PlateNumber]; taken {
		return "", ErrDuplicateKey
	}
	if _, taken := s.chassis[v.ChassisNumber]; taken {
		return "", ErrDuplicateKey
	}
	rec := *v
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	s.vehicles[rec.ID] = rec
	s.plates[rec.PlateNumber] = rec.ID
	s.chassis[rec.ChassisNumber] = rec.ID
	return rec.ID, nil
}

func (s *Memory) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *Memory) UpdateVehicle(ctx context.Context, id string, v *models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.vehicles[id]
	if !ok {
		return ErrNotFound
	}
	if v.PlateNumber != prev.PlateNumber {
		if owner, taken := s.plates[v.PlateNumber]; taken && owner != id {
			return ErrDuplicateKey
		}
		delete(s.plates, prev.PlateNumber)
		s.plates[v.PlateNumber] = id
	}
	if v.ChassisNumber != prev.ChassisNumber {
		if owner, taken := s.chassis[v.ChassisNumber]; taken && owner != id {
			return ErrDuplicateKey
		}
		delete(s.chassis, prev.ChassisNumber)
		s.chassis[v.ChassisNumber] = id
	}
	rec := *v
	rec.ID = id
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = time.Now()
	s.vehicles[id] = rec
	return nil
}

func (s *Memory) ListVehicles(ctx context.Context, f VehicleFilter) ([]models.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Vehicle{}
	for _, rec := range s.vehicles {
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Memory) CreateMission(ctx context.Context, m *models.Mission) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := *m
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	s.missions[rec.ID] = rec
	return rec.ID, nil
}

func (s *Memory) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.missions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *Memory) UpdateMission(ctx context.Context, id string, m *models.Mission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.missions[id]
	if !ok {
		return ErrNotFound
	}
	rec := *m
	rec.ID = id
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = time.Now()
	s.missions[id] = rec
	return nil
}

func (s *Memory) ListMissions(ctx context.Context, f MissionFilter) ([]models.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Mission{}
	for _, rec := range s.missions {
		if !matchMission(rec, f) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func matchMission(m models.Mission, f MissionFilter) bool {
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.VehicleID != "" && m.VehicleID != f.VehicleID {
		return false
	}
	if !f.From.IsZero() && m.StartTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && m.StartTime.After(f.To) {
		return false
	}
	return true
}

func (s *Memory) CreateMaintenance(ctx context.Context, m *models.Maintenance) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := *m
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	s.maintenance[rec.ID] = rec
	return rec.ID, nil
}

func (s *Memory) GetMaintenance(ctx context.Context, id string) (*models.Maintenance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.maintenance[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *Memory) UpdateMaintenance(ctx context.Context, id string, m *models.Maintenance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.maintenance[id]
	if !ok {
		return ErrNotFound
	}
	rec := *m
	rec.ID = id
	rec.CreatedAt = prev.CreatedAt
	rec.UpdatedAt = time.Now()
	s.maintenance[id] = rec
	return nil
}

func (s *Memory) ListMaintenance(ctx context.Context, f MaintenanceFilter) ([]models.Maintenance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Maintenance{}
	for _, rec := range s.maintenance {
		if !matchMaintenance(rec, f) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func matchMaintenance(m models.Maintenance, f MaintenanceFilter) bool {
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	if f.VehicleID != "" && m.VehicleID != f.VehicleID {
		return false
	}
	if !f.From.IsZero() && m.ScheduledDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && m.ScheduledDate.After(f.To) {
		return false
	}
	return true
}

// ApplyTransition writes one mission or maintenance record plus its
// vehicle under the store mutex. The vehicle's claim token must still
// match ExpectedClaim; otherwise nothing is written.
func (s *Memory) ApplyTransition(ctx context.Context, t Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.vehicles[t.Vehicle.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.ClaimedBy != t.ExpectedClaim {
		return ErrClaimChanged
	}

	now := time.Now()
	switch {
	case t.Mission != nil:
		prev, ok := s.missions[t.Mission.ID]
		if !ok {
			return ErrNotFound
		}
		rec := *t.Mission
		rec.CreatedAt = prev.CreatedAt
		rec.UpdatedAt = now
		s.missions[rec.ID] = rec
	case t.Maintenance != nil:
		prev, ok := s.maintenance[t.Maintenance.ID]
		if !ok {
			return ErrNotFound
		}
		rec := *t.Maintenance
		rec.CreatedAt = prev.CreatedAt
		rec.UpdatedAt = now
		s.maintenance[rec.ID] = rec
	}

	veh := *t.Vehicle
	veh.CreatedAt = cur.CreatedAt
	veh.UpdatedAt = now
	s.vehicles[veh.ID] = veh
	return nil
}
