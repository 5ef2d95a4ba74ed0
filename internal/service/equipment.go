package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/repository"
)

// EquipmentService is re-exported from domain for handler convenience.
type EquipmentService = domain.EquipmentService

type equipmentService struct {
	store  repository.Store
	logger *slog.Logger
}

// NewEquipmentService creates a new EquipmentService instance.
func NewEquipmentService(store repository.Store, logger *slog.Logger) EquipmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &equipmentService{store: store, logger: logger}
}

func validateEquipment(op string, p *domain.EquipmentParams) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.TrimSpace(p.Type)
	if p.Status == "" {
		p.Status = domain.EquipmentStatusAvailable
	}
	if p.Condition == "" {
		p.Condition = domain.ConditionGood
	}

	var verr error
	if p.Name == "" {
		verr = fieldError(verr, op, "name", "name is required")
	}
	if !domain.IsValidEquipmentStatus(p.Status) {
		verr = fieldError(verr, op, "status", "unknown equipment status")
	}
	if !domain.IsValidCondition(p.Condition) {
		verr = fieldError(verr, op, "condition", "condition must be Excellent, Good, Fair or Poor")
	}
	return verr
}

func (s *equipmentService) CreateEquipment(ctx context.Context, params domain.EquipmentParams) (*repository.Equipment, error) {
	const op = "equipment.create"
	if err := validateEquipment(op, &params); err != nil {
		return nil, err
	}

	e, err := s.store.CreateEquipment(ctx, repository.CreateEquipmentParams{
		Name:         params.Name,
		Type:         params.Type,
		Status:       params.Status,
		Condition:    params.Condition,
		PurchaseDate: params.PurchaseDate,
		Notes:        params.Notes,
	})
	if err != nil {
		return nil, domain.Persistence(err, op, "failed to save equipment")
	}
	return &e, nil
}

func (s *equipmentService) GetEquipment(ctx context.Context, id uuid.UUID) (*domain.EquipmentDetail, error) {
	const op = "equipment.get"
	e, err := s.store.GetEquipment(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, op, "equipment", id)
	}
	history, err := s.store.ListMaintenanceRecords(ctx, id)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load maintenance history")
	}
	if history == nil {
		history = []repository.EquipmentMaintenance{}
	}
	return &domain.EquipmentDetail{Equipment: e, Maintenance: history}, nil
}

func (s *equipmentService) ListEquipment(ctx context.Context, status *string) ([]repository.Equipment, error) {
	if status != nil && !domain.IsValidEquipmentStatus(*status) {
		return nil, domain.NewValidationError("equipment.list", "status", "unknown equipment status")
	}
	items, err := s.store.ListEquipment(ctx, status)
	if err != nil {
		return nil, domain.Internal(err, "equipment.list", "failed to list equipment")
	}
	return items, nil
}

func (s *equipmentService) UpdateEquipment(ctx context.Context, id uuid.UUID, params domain.EquipmentParams) (*repository.Equipment, error) {
	const op = "equipment.update"
	if err := validateEquipment(op, &params); err != nil {
		return nil, err
	}

	e, err := s.store.UpdateEquipment(ctx, repository.UpdateEquipmentParams{
		ID:           id,
		Name:         params.Name,
		Type:         params.Type,
		Status:       params.Status,
		Condition:    params.Condition,
		PurchaseDate: params.PurchaseDate,
		Notes:        params.Notes,
	})
	if err != nil {
		return nil, notFoundOr(err, op, "equipment", id)
	}
	return &e, nil
}

func (s *equipmentService) DeleteEquipment(ctx context.Context, id uuid.UUID) error {
	const op = "equipment.delete"
	n, err := s.store.DeleteEquipment(ctx, id)
	if err != nil {
		return domain.Persistence(err, op, "failed to delete equipment")
	}
	if n == 0 {
		return domain.NotFound(op, "equipment", id.String())
	}
	return nil
}

// AddMaintenance appends a maintenance record to the equipment's history.
func (s *equipmentService) AddMaintenance(ctx context.Context, params domain.MaintenanceParams) (*repository.EquipmentMaintenance, error) {
	const op = "equipment.add_maintenance"

	params.Description = strings.TrimSpace(params.Description)
	var verr error
	if params.PerformedOn.IsZero() {
		verr = fieldError(verr, op, "date", "date is required")
	}
	if params.Description == "" {
		verr = fieldError(verr, op, "description", "description is required")
	}
	if params.Cost.IsNegative() {
		verr = fieldError(verr, op, "cost", "cost must not be negative")
	}
	if verr != nil {
		return nil, verr
	}

	var record repository.EquipmentMaintenance
	err := s.store.InTx(ctx, func(q repository.Querier) error {
		if _, err := q.GetEquipment(ctx, params.EquipmentID); err != nil {
			return notFoundOr(err, op, "equipment", params.EquipmentID)
		}
		var err error
		record, err = q.CreateMaintenanceRecord(ctx, repository.CreateMaintenanceRecordParams{
			EquipmentID: params.EquipmentID,
			PerformedOn: params.PerformedOn,
			Description: params.Description,
			Cost:        params.Cost,
		})
		if err != nil {
			return domain.Persistence(err, op, "failed to save maintenance record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "maintenance recorded",
		"equipment_id", params.EquipmentID,
		"cost", params.Cost.StringFixed(2),
	)
	return &record, nil
}
