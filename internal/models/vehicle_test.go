package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validVehicle() Vehicle {
	return Vehicle{
		PlateNumber:   "AB-123-CD",
		ChassisNumber: "VF1JL000123456789",
		Make:          "Renault",
		Model:         "Trafic",
		Color:         "white",
		Year:          2021,
		VehicleType:   TypeUtility,
		FuelType:      FuelDiesel,
		TankCapacity:  80,
		Odometer:      10000,
		Status:        VehicleAvailable,
		PurchaseDate:  time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		PurchasePrice: 28000,
	}
}

func TestVehicle_Validate(t *testing.T) {
	v := validVehicle()
	assert.NoError(t, v.Validate())

	tests := []struct {
		name   string
		mutate func(*Vehicle)
	}{
		{"missing plate", func(v *Vehicle) { v.PlateNumber = "" }},
		{"missing chassis", func(v *Vehicle) { v.ChassisNumber = "" }},
		{"missing make", func(v *Vehicle) { v.Make = "" }},
		{"unknown type", func(v *Vehicle) { v.VehicleType = "boat" }},
		{"unknown fuel", func(v *Vehicle) { v.FuelType = "coal" }},
		{"negative tank", func(v *Vehicle) { v.TankCapacity = -1 }},
		{"negative odometer", func(v *Vehicle) { v.Odometer = -10 }},
		{"unknown status", func(v *Vehicle) { v.Status = "lost" }},
		{"negative price", func(v *Vehicle) { v.PurchasePrice = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validVehicle()
			tt.mutate(&v)
			assert.ErrorIs(t, v.Validate(), ErrValidation)
		})
	}
}

func TestClaim_None(t *testing.T) {
	assert.True(t, Claim{}.None())
	assert.False(t, Claim{Kind: ClaimMission, RefID: "m1"}.None())
	assert.False(t, Claim{Kind: ClaimMaintenance, RefID: "x1"}.None())
}

func TestDriver_Validate(t *testing.T) {
	d := Driver{
		BadgeNumber:   "D-042",
		FirstName:     "Awa",
		LastName:      "Diallo",
		Phone:         "+22377123456",
		Address:       "12 rue des Acacias",
		HireDate:      time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
		LicenseNumber: "ML-773311",
		Status:        DriverActive,
	}
	assert.NoError(t, d.Validate())

	bad := d
	bad.Phone = "not-a-phone"
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = d
	bad.BadgeNumber = ""
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = d
	bad.Status = "retired"
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}

func TestMaintenance_Validate(t *testing.T) {
	m := Maintenance{
		VehicleID:     "veh-1",
		Type:          MaintenancePreventive,
		Description:   "oil and filter change",
		ScheduledDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		OdometerAt:    10500,
		Cost:          180,
		Garage:        "Central Garage",
		Technician:    "K. Traore",
		Status:        MaintenancePlanned,
	}
	assert.NoError(t, m.Validate())

	bad := m
	bad.Type = "cosmetic"
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = m
	bad.Cost = -1
	assert.ErrorIs(t, bad.Validate(), ErrValidation)

	bad = m
	bad.Description = ""
	assert.ErrorIs(t, bad.Validate(), ErrValidation)
}
