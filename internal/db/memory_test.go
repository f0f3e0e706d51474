package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleetops/internal/models"
)

func newTestVehicle(plate, chassis string) *models.Vehicle {
	return &models.Vehicle{
		PlateNumber:   plate,
		ChassisNumber: chassis,
		Make:          "Toyota",
		Model:         "Hilux",
		VehicleType:   models.TypeTruck,
		FuelType:      models.FuelDiesel,
		Odometer:      10000,
		Status:        models.VehicleAvailable,
	}
}

func TestMemory_CreateVehicle_DuplicatePlate(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.CreateVehicle(ctx, newTestVehicle("AA-111", "CH-1"))
	require.NoError(t, err)

	_, err = s.CreateVehicle(ctx, newTestVehicle("AA-111", "CH-2"))
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = s.CreateVehicle(ctx, newTestVehicle("AA-222", "CH-1"))
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMemory_CreateDriver_DuplicateBadge(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, err := s.CreateDriver(ctx, &models.Driver{BadgeNumber: "B-1"})
	require.NoError(t, err)
	_, err = s.CreateDriver(ctx, &models.Driver{BadgeNumber: "B-1"})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMemory_GetVehicle_NotFound(t *testing.T) {
	s := NewMemory()
	_, err := s.GetVehicle(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_UpdateVehicle_ReindexesPlate(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	id, err := s.CreateVehicle(ctx, newTestVehicle("AA-111", "CH-1"))
	require.NoError(t, err)

	v, err := s.GetVehicle(ctx, id)
	require.NoError(t, err)
	v.PlateNumber = "AA-333"
	require.NoError(t, s.UpdateVehicle(ctx, id, v))

	// old plate is free again, new one is taken
	_, err = s.CreateVehicle(ctx, newTestVehicle("AA-111", "CH-9"))
	assert.NoError(t, err)
	_, err = s.CreateVehicle(ctx, newTestVehicle("AA-333", "CH-8"))
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMemory_GetVehicle_ReturnsCopy(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	id, err := s.CreateVehicle(ctx, newTestVehicle("AA-111", "CH-1"))
	require.NoError(t, err)

	v1, err := s.GetVehicle(ctx, id)
	require.NoError(t, err)
	v1.Odometer = 99999

	v2, err := s.GetVehicle(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10000, v2.Odometer)
}

func TestMemory_ListMissions_Filters(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	mk := func(vehicleID string, status models.MissionStatus, start time.Time) string {
		id, err := s.CreateMission(ctx, &models.Mission{
			VehicleID: vehicleID,
			DriverID:  "d1",
			StartTime: start,
			Status:    status,
		})
		require.NoError(t, err)
		return id
	}

	mar := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	apr := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	may := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	mk("v1", models.MissionPlanned, mar)
	mk("v1", models.MissionCompleted, apr)
	mk("v2", models.MissionPlanned, may)

	byStatus, err := s.ListMissions(ctx, MissionFilter{Status: models.MissionPlanned})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	byVehicle, err := s.ListMissions(ctx, MissionFilter{VehicleID: "v1"})
	require.NoError(t, err)
	assert.Len(t, byVehicle, 2)

	byRange, err := s.ListMissions(ctx, MissionFilter{From: apr, To: may})
	require.NoError(t, err)
	assert.Len(t, byRange, 2)

	both, err := s.ListMissions(ctx, MissionFilter{VehicleID: "v1", Status: models.MissionCompleted})
	require.NoError(t, err)
	assert.Len(t, both, 1)
}

func TestMemory_ListMaintenance_Filters(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	feb := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.CreateMaintenance(ctx, &models.Maintenance{
		VehicleID: "v1", Status: models.MaintenancePlanned, ScheduledDate: feb,
	})
	require.NoError(t, err)
	_, err = s.CreateMaintenance(ctx, &models.Maintenance{
		VehicleID: "v2", Status: models.MaintenanceCompleted, ScheduledDate: jun,
	})
	require.NoError(t, err)

	out, err := s.ListMaintenance(ctx, MaintenanceFilter{From: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "v2", out[0].VehicleID)
}

func TestMemory_ApplyTransition(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	vid, err := s.CreateVehicle(ctx, newTestVehicle("AA-111", "CH-1"))
	require.NoError(t, err)
	mid, err := s.CreateMission(ctx, &models.Mission{VehicleID: vid, DriverID: "d1", Status: models.MissionPlanned})
	require.NoError(t, err)

	m, err := s.GetMission(ctx, mid)
	require.NoError(t, err)
	v, err := s.GetVehicle(ctx, vid)
	require.NoError(t, err)

	expected := v.ClaimedBy
	m.Status = models.MissionInProgress
	v.Status = models.VehicleOnMission
	v.ClaimedBy = models.Claim{Kind: models.ClaimMission, RefID: mid}

	require.NoError(t, s.ApplyTransition(ctx, Transition{
		Mission: m, Vehicle: v, ExpectedClaim: expected,
	}))

	got, err := s.GetVehicle(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, models.VehicleOnMission, got.Status)
	gotM, err := s.GetMission(ctx, mid)
	require.NoError(t, err)
	assert.Equal(t, models.MissionInProgress, gotM.Status)
}

func TestMemory_ApplyTransition_ClaimChanged(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	vid, err := s.CreateVehicle(ctx, newTestVehicle("AA-111", "CH-1"))
	require.NoError(t, err)
	mid, err := s.CreateMission(ctx, &models.Mission{VehicleID: vid, DriverID: "d1", Status: models.MissionPlanned})
	require.NoError(t, err)

	m, _ := s.GetMission(ctx, mid)
	v, _ := s.GetVehicle(ctx, vid)
	m.Status = models.MissionInProgress
	v.Status = models.VehicleOnMission
	v.ClaimedBy = models.Claim{Kind: models.ClaimMission, RefID: mid}

	// Expect a stale claim token: the write must not happen.
	err = s.ApplyTransition(ctx, Transition{
		Mission: m, Vehicle: v,
		ExpectedClaim: models.Claim{Kind: models.ClaimMaintenance, RefID: "other"},
	})
	assert.ErrorIs(t, err, ErrClaimChanged)

	got, err := s.GetVehicle(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, models.VehicleAvailable, got.Status)
	gotM, err := s.GetMission(ctx, mid)
	require.NoError(t, err)
	assert.Equal(t, models.MissionPlanned, gotM.Status)
}
