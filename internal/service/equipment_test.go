package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/repository/memstore"
)

func TestEquipmentLifecycle(t *testing.T) {
	svc := NewEquipmentService(memstore.New(), testLogger())
	ctx := context.Background()

	e, err := svc.CreateEquipment(ctx, domain.EquipmentParams{Name: "Pressure washer", Type: "Cleaning"})
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentStatusAvailable, e.Status)
	assert.Equal(t, domain.ConditionGood, e.Condition)

	updated, err := svc.UpdateEquipment(ctx, e.ID, domain.EquipmentParams{
		Name:      "Pressure washer",
		Status:    domain.EquipmentStatusMaintenance,
		Condition: domain.ConditionFair,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentStatusMaintenance, updated.Status)

	inMaintenance := domain.EquipmentStatusMaintenance
	list, err := svc.ListEquipment(ctx, &inMaintenance)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteEquipment(ctx, e.ID))
	_, err = svc.GetEquipment(ctx, e.ID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(svc.DeleteEquipment(ctx, e.ID)))
}

func TestCreateEquipment_Validation(t *testing.T) {
	svc := NewEquipmentService(memstore.New(), testLogger())

	_, err := svc.CreateEquipment(context.Background(), domain.EquipmentParams{Status: "Lost", Condition: "Broken"})
	fields := domain.GetValidationFields(err)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "status")
	assert.Contains(t, fields, "condition")

	bogus := "Lost"
	_, err = svc.ListEquipment(context.Background(), &bogus)
	assert.NotEmpty(t, domain.GetValidationFields(err))
}

func TestAddMaintenance(t *testing.T) {
	svc := NewEquipmentService(memstore.New(), testLogger())
	ctx := context.Background()

	e, err := svc.CreateEquipment(ctx, domain.EquipmentParams{Name: "Van"})
	require.NoError(t, err)

	older := time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC)
	for _, on := range []time.Time{older, newer} {
		_, err := svc.AddMaintenance(ctx, domain.MaintenanceParams{
			EquipmentID: e.ID,
			PerformedOn: on,
			Description: "Oil change",
			Cost:        dec("89.99"),
		})
		require.NoError(t, err)
	}

	detail, err := svc.GetEquipment(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, detail.Maintenance, 2)
	assert.True(t, detail.Maintenance[0].PerformedOn.Equal(newer), "history is newest first")

	_, err = svc.AddMaintenance(ctx, domain.MaintenanceParams{
		EquipmentID: uuid.New(),
		PerformedOn: newer,
		Description: "Ghost",
	})
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	_, err = svc.AddMaintenance(ctx, domain.MaintenanceParams{EquipmentID: e.ID, Cost: dec("-1")})
	fields := domain.GetValidationFields(err)
	assert.Contains(t, fields, "date")
	assert.Contains(t, fields, "description")
	assert.Contains(t, fields, "cost")
}

func TestGetEquipment_EmptyHistory(t *testing.T) {
	svc := NewEquipmentService(memstore.New(), testLogger())
	e, err := svc.CreateEquipment(context.Background(), domain.EquipmentParams{Name: "Ladder"})
	require.NoError(t, err)

	detail, err := svc.GetEquipment(context.Background(), e.ID)
	require.NoError(t, err)
	assert.NotNil(t, detail.Maintenance)
	assert.Empty(t, detail.Maintenance)
}
