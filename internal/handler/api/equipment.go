package api

import (
	"net/http"
	"strings"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/handler"
)

// EquipmentHandler serves /api/equipment.
type EquipmentHandler struct {
	equipment domain.EquipmentService
}

// NewEquipmentHandler creates a new equipment handler
func NewEquipmentHandler(equipment domain.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{equipment: equipment}
}

// List handles GET /api/equipment?status=, or a single item with ?id= or
// /api/equipment/{id}. A single item includes its maintenance history.
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok, err := handler.OptionalID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if ok {
		detail, err := h.equipment.GetEquipment(r.Context(), id)
		if err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		handler.Success(w, detail)
		return
	}

	items, err := h.equipment.ListEquipment(r.Context(), queryString(r, "status"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, items)
}

// Create handles POST /api/equipment.
func (h *EquipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req EquipmentRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest("equipment.create", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	item, err := h.equipment.CreateEquipment(r.Context(), req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Created(w, item)
}

// Update handles PUT /api/equipment?id= and PUT /api/equipment/{id}.
func (h *EquipmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.RequireID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req EquipmentRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest("equipment.update", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	item, err := h.equipment.UpdateEquipment(r.Context(), id, req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, item)
}

// Delete handles DELETE /api/equipment?id= and DELETE /api/equipment/{id}.
func (h *EquipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.RequireID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.equipment.DeleteEquipment(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, map[string]string{"id": id.String()})
}

// AddMaintenance handles POST /api/equipment/{id}/maintenance.
func (h *EquipmentHandler) AddMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := handler.RequireID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req MaintenanceRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest("equipment.add_maintenance", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	record, err := h.equipment.AddMaintenance(r.Context(), domain.MaintenanceParams{
		EquipmentID: id,
		PerformedOn: req.PerformedOn.Time,
		Description: strings.TrimSpace(req.Description),
		Cost:        req.Cost,
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Created(w, record)
}
