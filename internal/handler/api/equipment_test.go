package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/repository"
)

func TestEquipmentHandler_Lifecycle(t *testing.T) {
	f := newAPIFixture(t)

	rec := serve(f.equipment.Create, newRequest(t, http.MethodPost, "/api/equipment", map[string]any{
		"name":          "Extension ladder",
		"type":          "Ladder",
		"status":        domain.EquipmentStatusAvailable,
		"condition":     "Good",
		"purchase_date": "2023-06-01",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decodeData[repository.Equipment](t, rec)
	require.NotNil(t, item.PurchaseDate)
	assert.Equal(t, "2023-06-01", item.PurchaseDate.Format("2006-01-02"))

	rec = serve(f.equipment.AddMaintenance, withID(newRequest(t, http.MethodPost, "/api/equipment/"+item.ID.String()+"/maintenance", map[string]any{
		"performed_on": "2024-02-10",
		"description":  "Replaced feet",
		"cost":         "35.20",
	}), item.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	record := decodeData[repository.EquipmentMaintenance](t, rec)
	assert.Equal(t, item.ID, record.EquipmentID)
	assert.True(t, decimal.RequireFromString("35.20").Equal(record.Cost))

	rec = serve(f.equipment.List, withID(newRequest(t, http.MethodGet, "/api/equipment/"+item.ID.String(), nil), item.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeData[domain.EquipmentDetail](t, rec)
	assert.Equal(t, "Extension ladder", detail.Name)
	require.Len(t, detail.Maintenance, 1)
	assert.Equal(t, "Replaced feet", detail.Maintenance[0].Description)

	rec = serve(f.equipment.Update, newRequest(t, http.MethodPut, query("/api/equipment", "id", item.ID.String()), map[string]any{
		"name":   "Extension ladder",
		"status": domain.EquipmentStatusRetired,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.EquipmentStatusRetired, decodeData[repository.Equipment](t, rec).Status)

	rec = serve(f.equipment.List, newRequest(t, http.MethodGet, query("/api/equipment", "status", domain.EquipmentStatusAvailable), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[[]repository.Equipment](t, rec))

	rec = serve(f.equipment.Delete, newRequest(t, http.MethodDelete, query("/api/equipment", "id", item.ID.String()), nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestEquipmentHandler_Validation(t *testing.T) {
	f := newAPIFixture(t)

	rec := serve(f.equipment.Create, newRequest(t, http.MethodPost, "/api/equipment", map[string]any{
		"status": "Borrowed",
	}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, env.Fields, "name")
	assert.Contains(t, env.Fields, "status")

	rec = serve(f.equipment.AddMaintenance, withID(newRequest(t, http.MethodPost, "/api/equipment/x/maintenance", map[string]any{
		"description": "Oil change",
	}), uuid.New()))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Fields, "performed_on")
}

func TestEquipmentHandler_MaintenanceForUnknownEquipment(t *testing.T) {
	f := newAPIFixture(t)
	id := uuid.New()

	rec := serve(f.equipment.AddMaintenance, withID(newRequest(t, http.MethodPost, "/api/equipment/"+id.String()+"/maintenance", map[string]any{
		"performed_on": "2024-02-10",
		"description":  "Oil change",
	}), id))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
