// Package handlers exposes the fleet service to the administrative
// collaborator over HTTP/JSON.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetdesk/fleetops/internal/db"
	"github.com/fleetdesk/fleetops/internal/fleet"
	"github.com/fleetdesk/fleetops/internal/models"
)

// FleetHandler handles entity CRUD and lifecycle action requests.
type FleetHandler struct {
	svc *fleet.Service
}

// NewFleetHandler creates a new fleet handler.
func NewFleetHandler(svc *fleet.Service) *FleetHandler {
	return &FleetHandler{svc: svc}
}

// Register wires the handler's routes onto the mux.
func (h *FleetHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/drivers", h.CreateDriver)
	mux.HandleFunc("GET /api/drivers", h.ListDrivers)
	mux.HandleFunc("GET /api/drivers/{id}", h.GetDriver)
	mux.HandleFunc("PUT /api/drivers/{id}", h.UpdateDriver)

	mux.HandleFunc("POST /api/vehicles", h.CreateVehicle)
	mux.HandleFunc("GET /api/vehicles", h.ListVehicles)
	mux.HandleFunc("GET /api/vehicles/{id}", h.GetVehicle)
	mux.HandleFunc("PUT /api/vehicles/{id}", h.UpdateVehicle)
	mux.HandleFunc("POST /api/vehicles/{id}/status", h.SetVehicleStatus)

	mux.HandleFunc("POST /api/missions", h.CreateMission)
	mux.HandleFunc("GET /api/missions", h.ListMissions)
	mux.HandleFunc("GET /api/missions/{id}", h.GetMission)
	mux.HandleFunc("PUT /api/missions/{id}", h.UpdateMission)
	mux.HandleFunc("POST /api/missions/{id}/start", h.StartMission)
	mux.HandleFunc("POST /api/missions/{id}/complete", h.CompleteMission)
	mux.HandleFunc("POST /api/missions/{id}/cancel", h.CancelMission)
	mux.HandleFunc("POST /api/missions/{id}/overdue", h.MarkMissionOverdue)
	mux.HandleFunc("POST /api/missions/{id}/corrections", h.CorrectMission)

	mux.HandleFunc("POST /api/maintenance", h.CreateMaintenance)
	mux.HandleFunc("GET /api/maintenance", h.ListMaintenance)
	mux.HandleFunc("GET /api/maintenance/{id}", h.GetMaintenance)
	mux.HandleFunc("PUT /api/maintenance/{id}", h.UpdateMaintenance)
	mux.HandleFunc("POST /api/maintenance/{id}/start", h.StartMaintenance)
	mux.HandleFunc("POST /api/maintenance/{id}/complete", h.CompleteMaintenance)
	mux.HandleFunc("POST /api/maintenance/{id}/cancel", h.CancelMaintenance)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the service's error kinds to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, db.ErrDuplicateKey),
		errors.Is(err, fleet.ErrResourceConflict),
		errors.Is(err, fleet.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalidMetric):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
		return false
	}
	return true
}

type createdResponse struct {
	ID string `json:"id"`
}

// --- drivers ---

func (h *FleetHandler) CreateDriver(w http.ResponseWriter, r *http.Request) {
	var d models.Driver
	if !decode(w, r, &d) {
		return
	}
	id, err := h.svc.CreateDriver(r.Context(), &d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *FleetHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetDriver(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *FleetHandler) UpdateDriver(w http.ResponseWriter, r *http.Request) {
	var d models.Driver
	if !decode(w, r, &d) {
		return
	}
	if err := h.svc.UpdateDriver(r.Context(), r.PathValue("id"), &d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *FleetHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	f := db.DriverFilter{Status: models.DriverStatus(r.URL.Query().Get("status"))}
	out, err := h.svc.ListDrivers(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// --- vehicles ---

func (h *FleetHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var v models.Vehicle
	if !decode(w, r, &v) {
		return
	}
	id, err := h.svc.CreateVehicle(r.Context(), &v)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *FleetHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetVehicle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *FleetHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	var v models.Vehicle
	if !decode(w, r, &v) {
		return
	}
	if err := h.svc.UpdateVehicle(r.Context(), r.PathValue("id"), &v); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *FleetHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	f := db.VehicleFilter{Status: models.VehicleStatus(r.URL.Query().Get("status"))}
	out, err := h.svc.ListVehicles(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type setStatusRequest struct {
	Status models.VehicleStatus `json:"status"`
}

func (h *FleetHandler) SetVehicleStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.SetVehicleStatus(r.Context(), r.PathValue("id"), req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// --- missions ---

// missionView adds the derived metrics to a mission for list and get
// responses. The metrics are computed on read, never stored.
type missionView struct {
	models.Mission
	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
	DistanceKm      *int     `json:"distance_km,omitempty"`
	TotalCost       float64  `json:"total_cost"`
}

func newMissionView(m models.Mission) missionView {
	v := missionView{Mission: m, TotalCost: m.TotalCost()}
	if d, ok := m.Duration(); ok {
		minutes := d.Minutes()
		v.DurationMinutes = &minutes
	}
	if km, defined, err := m.Distance(); defined && err == nil {
		v.DistanceKm = &km
	}
	return v
}

func (h *FleetHandler) CreateMission(w http.ResponseWriter, r *http.Request) {
	var m models.Mission
	if !decode(w, r, &m) {
		return
	}
	id, err := h.svc.CreateMission(r.Context(), &m)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *FleetHandler) GetMission(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMission(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMissionView(*m))
}

func (h *FleetHandler) UpdateMission(w http.ResponseWriter, r *http.Request) {
	var m models.Mission
	if !decode(w, r, &m) {
		return
	}
	if err := h.svc.UpdateMission(r.Context(), r.PathValue("id"), &m); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *FleetHandler) CorrectMission(w http.ResponseWriter, r *http.Request) {
	var m models.Mission
	if !decode(w, r, &m) {
		return
	}
	if err := h.svc.CorrectMission(r.Context(), r.PathValue("id"), &m); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *FleetHandler) ListMissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := db.MissionFilter{
		Status:    models.MissionStatus(q.Get("status")),
		VehicleID: q.Get("vehicle_id"),
	}
	var ok bool
	if f.From, ok = parseTimeParam(w, q.Get("from")); !ok {
		return
	}
	if f.To, ok = parseTimeParam(w, q.Get("to")); !ok {
		return
	}
	missions, err := h.svc.ListMissions(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]missionView, 0, len(missions))
	for _, m := range missions {
		out = append(out, newMissionView(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func parseTimeParam(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid time, want RFC 3339"})
		return time.Time{}, false
	}
	return t, true
}

func (h *FleetHandler) StartMission(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.StartMission(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

type completeMissionRequest struct {
	OdometerReturn int    `json:"odometer_return"`
	Notes          string `json:"notes"`
}

func (h *FleetHandler) CompleteMission(w http.ResponseWriter, r *http.Request) {
	var req completeMissionRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.CompleteMission(r.Context(), r.PathValue("id"), req.OdometerReturn, req.Notes); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *FleetHandler) CancelMission(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelMission(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *FleetHandler) MarkMissionOverdue(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkMissionOverdue(r.Context(), r.PathValue("id"), time.Now()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// --- maintenance ---

func (h *FleetHandler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var m models.Maintenance
	if !decode(w, r, &m) {
		return
	}
	id, err := h.svc.CreateMaintenance(r.Context(), &m)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *FleetHandler) GetMaintenance(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.GetMaintenance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *FleetHandler) UpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	var m models.Maintenance
	if !decode(w, r, &m) {
		return
	}
	if err := h.svc.UpdateMaintenance(r.Context(), r.PathValue("id"), &m); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *FleetHandler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := db.MaintenanceFilter{
		Status:    models.MaintenanceStatus(q.Get("status")),
		VehicleID: q.Get("vehicle_id"),
	}
	var ok bool
	if f.From, ok = parseTimeParam(w, q.Get("from")); !ok {
		return
	}
	if f.To, ok = parseTimeParam(w, q.Get("to")); !ok {
		return
	}
	out, err := h.svc.ListMaintenance(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *FleetHandler) StartMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.StartMaintenance(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *FleetHandler) CompleteMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CompleteMaintenance(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *FleetHandler) CancelMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelMaintenance(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
