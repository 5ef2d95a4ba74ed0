package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const equipmentColumns = `id, name, type, status, condition, purchase_date, notes, created_at, updated_at`

func scanEquipment(row interface{ Scan(...any) error }) (Equipment, error) {
	var e Equipment
	err := row.Scan(&e.ID, &e.Name, &e.Type, &e.Status, &e.Condition, &e.PurchaseDate, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

const createEquipment = `
INSERT INTO equipment (name, type, status, condition, purchase_date, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + equipmentColumns

type CreateEquipmentParams struct {
	Name         string
	Type         string
	Status       string
	Condition    string
	PurchaseDate *time.Time
	Notes        string
}

func (q *Queries) CreateEquipment(ctx context.Context, arg CreateEquipmentParams) (Equipment, error) {
	row := q.db.QueryRow(ctx, createEquipment, arg.Name, arg.Type, arg.Status, arg.Condition, arg.PurchaseDate, arg.Notes)
	return scanEquipment(row)
}

const getEquipment = `SELECT ` + equipmentColumns + ` FROM equipment WHERE id = $1`

func (q *Queries) GetEquipment(ctx context.Context, id uuid.UUID) (Equipment, error) {
	return scanEquipment(q.db.QueryRow(ctx, getEquipment, id))
}

const listEquipment = `
SELECT ` + equipmentColumns + `
FROM equipment
WHERE ($1::text IS NULL OR status = $1)
ORDER BY name`

func (q *Queries) ListEquipment(ctx context.Context, status *string) ([]Equipment, error) {
	rows, err := q.db.Query(ctx, listEquipment, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateEquipment = `
UPDATE equipment
SET name = $2, type = $3, status = $4, condition = $5, purchase_date = $6, notes = $7, updated_at = now()
WHERE id = $1
RETURNING ` + equipmentColumns

type UpdateEquipmentParams struct {
	ID           uuid.UUID
	Name         string
	Type         string
	Status       string
	Condition    string
	PurchaseDate *time.Time
	Notes        string
}

func (q *Queries) UpdateEquipment(ctx context.Context, arg UpdateEquipmentParams) (Equipment, error) {
	row := q.db.QueryRow(ctx, updateEquipment, arg.ID, arg.Name, arg.Type, arg.Status, arg.Condition, arg.PurchaseDate, arg.Notes)
	return scanEquipment(row)
}

const deleteEquipment = `DELETE FROM equipment WHERE id = $1`

func (q *Queries) DeleteEquipment(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteEquipment, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createMaintenanceRecord = `
INSERT INTO equipment_maintenance (equipment_id, performed_on, description, cost)
VALUES ($1, $2, $3, $4)
RETURNING id, equipment_id, performed_on, description, cost, created_at`

type CreateMaintenanceRecordParams struct {
	EquipmentID uuid.UUID
	PerformedOn time.Time
	Description string
	Cost        decimal.Decimal
}

func (q *Queries) CreateMaintenanceRecord(ctx context.Context, arg CreateMaintenanceRecordParams) (EquipmentMaintenance, error) {
	row := q.db.QueryRow(ctx, createMaintenanceRecord, arg.EquipmentID, arg.PerformedOn, arg.Description, arg.Cost)
	var m EquipmentMaintenance
	err := row.Scan(&m.ID, &m.EquipmentID, &m.PerformedOn, &m.Description, &m.Cost, &m.CreatedAt)
	return m, err
}

const listMaintenanceRecords = `
SELECT id, equipment_id, performed_on, description, cost, created_at
FROM equipment_maintenance
WHERE equipment_id = $1
ORDER BY performed_on DESC`

func (q *Queries) ListMaintenanceRecords(ctx context.Context, equipmentID uuid.UUID) ([]EquipmentMaintenance, error) {
	rows, err := q.db.Query(ctx, listMaintenanceRecords, equipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []EquipmentMaintenance
	for rows.Next() {
		var m EquipmentMaintenance
		if err := rows.Scan(&m.ID, &m.EquipmentID, &m.PerformedOn, &m.Description, &m.Cost, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
