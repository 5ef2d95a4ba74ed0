package repository

import (
	"context"

	"github.com/google/uuid"
)

const emailHistoryColumns = `id, to_address, subject, body, is_html, status, error, provider_message_id, invoice_id, created_at`

func scanEmailHistory(row interface{ Scan(...any) error }) (EmailHistory, error) {
	var e EmailHistory
	err := row.Scan(
		&e.ID,
		&e.ToAddress,
		&e.Subject,
		&e.Body,
		&e.IsHTML,
		&e.Status,
		&e.Error,
		&e.ProviderMessageID,
		&e.InvoiceID,
		&e.CreatedAt,
	)
	return e, err
}

const createEmailHistory = `
INSERT INTO email_history (to_address, subject, body, is_html, status, error, provider_message_id, invoice_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + emailHistoryColumns

type CreateEmailHistoryParams struct {
	ToAddress         string
	Subject           string
	Body              string
	IsHTML            bool
	Status            string
	Error             *string
	ProviderMessageID *string
	InvoiceID         *uuid.UUID
}

func (q *Queries) CreateEmailHistory(ctx context.Context, arg CreateEmailHistoryParams) (EmailHistory, error) {
	row := q.db.QueryRow(ctx, createEmailHistory,
		arg.ToAddress,
		arg.Subject,
		arg.Body,
		arg.IsHTML,
		arg.Status,
		arg.Error,
		arg.ProviderMessageID,
		arg.InvoiceID,
	)
	return scanEmailHistory(row)
}

const listEmailHistory = `
SELECT ` + emailHistoryColumns + `
FROM email_history
ORDER BY created_at DESC
LIMIT $1`

func (q *Queries) ListEmailHistory(ctx context.Context, limit int32) ([]EmailHistory, error) {
	rows, err := q.db.Query(ctx, listEmailHistory, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []EmailHistory
	for rows.Next() {
		e, err := scanEmailHistory(rows)
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

const deleteEmailHistory = `DELETE FROM email_history WHERE id = $1`

func (q *Queries) DeleteEmailHistory(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, deleteEmailHistory, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
