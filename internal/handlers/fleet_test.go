package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/fleetops/internal/db"
	"github.com/fleetdesk/fleetops/internal/fleet"
	"github.com/fleetdesk/fleetops/internal/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := fleet.NewService(db.NewMemory(), nil)
	mux := http.NewServeMux()
	NewFleetHandler(svc).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeID(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.ID)
	return out.ID
}

func vehiclePayload(plate, chassis string) map[string]any {
	return map[string]any{
		"plate_number":   plate,
		"chassis_number": chassis,
		"make":           "Toyota",
		"model":          "Hilux",
		"vehicle_type":   "truck",
		"fuel_type":      "diesel",
		"odometer":       10000,
	}
}

func driverPayload(badge string) map[string]any {
	return map[string]any{
		"badge_number":   badge,
		"first_name":     "Awa",
		"last_name":      "Diallo",
		"phone":          "+22377123456",
		"hire_date":      time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC),
		"license_number": "ML-773311",
	}
}

func TestCreateVehicle(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/vehicles", vehiclePayload("AA-111", "CH-1"))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decodeID(t, resp)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/vehicles/"+id, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var v models.Vehicle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, "AA-111", v.PlateNumber)
	assert.Equal(t, models.VehicleAvailable, v.Status)
}

func TestCreateVehicle_DuplicatePlate(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/vehicles", vehiclePayload("AA-111", "CH-1"))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/vehicles", vehiclePayload("AA-111", "CH-2"))
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateVehicle_Invalid(t *testing.T) {
	srv := newTestServer(t)

	payload := vehiclePayload("AA-111", "CH-1")
	payload["vehicle_type"] = "boat"
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/vehicles", payload)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetVehicle_NotFound(t *testing.T) {
	srv := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/vehicles/missing", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMissionLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/vehicles", vehiclePayload("AA-111", "CH-1"))
	vid := decodeID(t, resp)
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/drivers", driverPayload("D-1"))
	did := decodeID(t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/missions", map[string]any{
		"vehicle_id":   vid,
		"driver_id":    did,
		"requester":    "ops desk",
		"subject":      "site inspection",
		"destination":  "north depot",
		"start_time":   time.Now(),
		"end_time":     time.Now().Add(8 * time.Hour),
		"odometer_out": 10000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	mid := decodeID(t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/missions/"+mid+"/start", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// a second start is rejected
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/missions/"+mid+"/start", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// odometer below departure is a data-entry error
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/missions/"+mid+"/complete", map[string]any{
		"odometer_return": 9990,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/missions/"+mid+"/complete", map[string]any{
		"odometer_return": 10150,
		"notes":           "uneventful",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// the mission view exposes the derived metrics
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/missions/"+mid, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view struct {
		Status     string  `json:"status"`
		DistanceKm *int    `json:"distance_km"`
		TotalCost  float64 `json:"total_cost"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "completed", view.Status)
	require.NotNil(t, view.DistanceKm)
	assert.Equal(t, 150, *view.DistanceKm)

	// vehicle followed the mission
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/vehicles/"+vid, nil)
	defer resp.Body.Close()
	var v models.Vehicle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, models.VehicleAvailable, v.Status)
	assert.Equal(t, 10150, v.Odometer)
}

func TestListMissionsByStatus(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/vehicles", vehiclePayload("AA-111", "CH-1"))
	vid := decodeID(t, resp)
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/drivers", driverPayload("D-1"))
	did := decodeID(t, resp)

	for i := 0; i < 3; i++ {
		resp = doJSON(t, http.MethodPost, srv.URL+"/api/missions", map[string]any{
			"vehicle_id":   vid,
			"driver_id":    did,
			"subject":      fmt.Sprintf("run %d", i),
			"destination":  "depot",
			"start_time":   time.Now(),
			"odometer_out": 10000,
		})
		resp.Body.Close()
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/missions?status=planned&vehicle_id="+vid, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out []json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Len(t, out, 3)
}

func TestListMissions_BadTimeParam(t *testing.T) {
	srv := newTestServer(t)
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/missions?from=yesterday", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetVehicleStatusOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/vehicles", vehiclePayload("AA-111", "CH-1"))
	vid := decodeID(t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/vehicles/"+vid+"/status", map[string]any{
		"status": "broken_down",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// lifecycle-owned status is refused
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/vehicles/"+vid+"/status", map[string]any{
		"status": "on_mission",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMaintenanceLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/vehicles", vehiclePayload("AA-111", "CH-1"))
	vid := decodeID(t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/maintenance", map[string]any{
		"vehicle_id":     vid,
		"type":           "preventive",
		"description":    "oil change",
		"scheduled_date": time.Now(),
		"odometer_at":    10000,
		"cost":           180,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	xid := decodeID(t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/maintenance/"+xid+"/start", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/vehicles/"+vid, nil)
	var v models.Vehicle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	resp.Body.Close()
	assert.Equal(t, models.VehicleInMaintenance, v.Status)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/maintenance/"+xid+"/complete", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvalidJSON(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/vehicles", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
