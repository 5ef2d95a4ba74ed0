package repository

import (
	"context"

	"github.com/google/uuid"
)

const clientColumns = `c.id, c.name, c.email, c.phone, c.address, c.type, c.notes, c.created_at, c.updated_at`

// Aggregates are computed per row. Active jobs are those not yet finished,
// total spent is the sum of payments applied to the client's invoices.
const clientStatsColumns = `
    (SELECT count(*) FROM jobs j WHERE j.client_id = c.id AND j.status IN ('Scheduled', 'InProgress')) AS active_jobs,
    (SELECT COALESCE(sum(i.amount_paid), 0) FROM invoices i WHERE i.client_id = c.id) AS total_spent,
    (SELECT max(j.date) FROM jobs j WHERE j.client_id = c.id AND j.status = 'Completed') AS last_service`

func scanClient(row interface{ Scan(...any) error }, withStats bool) (Client, error) {
	var c Client
	dest := []any{&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Type, &c.Notes, &c.CreatedAt, &c.UpdatedAt}
	if withStats {
		dest = append(dest, &c.ActiveJobs, &c.TotalSpent, &c.LastService)
	}
	err := row.Scan(dest...)
	return c, err
}

const createClient = `
INSERT INTO clients AS c (name, email, phone, address, type, notes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + clientColumns

type CreateClientParams struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Type    string
	Notes   string
}

func (q *Queries) CreateClient(ctx context.Context, arg CreateClientParams) (Client, error) {
	row := q.db.QueryRow(ctx, createClient, arg.Name, arg.Email, arg.Phone, arg.Address, arg.Type, arg.Notes)
	return scanClient(row, false)
}

const getClient = `
SELECT ` + clientColumns + `, ` + clientStatsColumns + `
FROM clients c
WHERE c.id = $1`

func (q *Queries) GetClient(ctx context.Context, id uuid.UUID) (Client, error) {
	row := q.db.QueryRow(ctx, getClient, id)
	return scanClient(row, true)
}

const listClients = `
SELECT ` + clientColumns + `, ` + clientStatsColumns + `
FROM clients c
WHERE ($1::text IS NULL OR c.type = $1)
  AND ($2::text IS NULL OR c.name ILIKE '%' || $2 || '%' OR c.email ILIKE '%' || $2 || '%')
ORDER BY c.name, c.created_at`

type ListClientsParams struct {
	Type   *string
	Search *string
}

func (q *Queries) ListClients(ctx context.Context, arg ListClientsParams) ([]Client, error) {
	rows, err := q.db.Query(ctx, listClients, arg.Type, arg.Search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Client
	for rows.Next() {
		c, err := scanClient(rows, true)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateClient = `
UPDATE clients AS c
SET name = $2, email = $3, phone = $4, address = $5, type = $6, notes = $7, updated_at = now()
WHERE c.id = $1
RETURNING ` + clientColumns

type UpdateClientParams struct {
	ID      uuid.UUID
	Name    string
	Email   string
	Phone   string
	Address string
	Type    string
	Notes   string
}

func (q *Queries) UpdateClient(ctx context.Context, arg UpdateClientParams) (Client, error) {
	row := q.db.QueryRow(ctx, updateClient, arg.ID, arg.Name, arg.Email, arg.Phone, arg.Address, arg.Type, arg.Notes)
	return scanClient(row, false)
}

const deleteClient = `DELETE FROM clients WHERE id = $1`

func (q *Queries) DeleteClient(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteClient, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
