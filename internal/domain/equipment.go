package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bizznex/internal/repository"
)

// Equipment statuses.
const (
	EquipmentStatusAvailable   = "Available"
	EquipmentStatusInUse       = "InUse"
	EquipmentStatusMaintenance = "Maintenance"
	EquipmentStatusRetired     = "Retired"
)

// Equipment conditions.
const (
	ConditionExcellent = "Excellent"
	ConditionGood      = "Good"
	ConditionFair      = "Fair"
	ConditionPoor      = "Poor"
)

func IsValidEquipmentStatus(s string) bool {
	switch s {
	case EquipmentStatusAvailable, EquipmentStatusInUse, EquipmentStatusMaintenance, EquipmentStatusRetired:
		return true
	}
	return false
}

func IsValidCondition(s string) bool {
	switch s {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// EquipmentService tracks equipment and its maintenance history.
type EquipmentService interface {
	CreateEquipment(ctx context.Context, params EquipmentParams) (*repository.Equipment, error)

	// GetEquipment returns the equipment with its maintenance history.
	GetEquipment(ctx context.Context, id uuid.UUID) (*EquipmentDetail, error)

	ListEquipment(ctx context.Context, status *string) ([]repository.Equipment, error)
	UpdateEquipment(ctx context.Context, id uuid.UUID, params EquipmentParams) (*repository.Equipment, error)
	DeleteEquipment(ctx context.Context, id uuid.UUID) error
	AddMaintenance(ctx context.Context, params MaintenanceParams) (*repository.EquipmentMaintenance, error)
}

type EquipmentParams struct {
	Name         string
	Type         string
	Status       string // Defaults to Available
	Condition    string // Defaults to Good
	PurchaseDate *time.Time
	Notes        string
}

type MaintenanceParams struct {
	EquipmentID uuid.UUID
	PerformedOn time.Time
	Description string
	Cost        decimal.Decimal
}

// EquipmentDetail is equipment plus its maintenance records, newest first.
type EquipmentDetail struct {
	repository.Equipment
	Maintenance []repository.EquipmentMaintenance `json:"maintenance"`
}
