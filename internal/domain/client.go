package domain

import (
	"context"

	"github.com/google/uuid"

	"github.com/dukerupert/bizznex/internal/repository"
)

// Client types.
const (
	ClientTypeResidential = "Residential"
	ClientTypeCommercial  = "Commercial"
	ClientTypeMunicipal   = "Municipal"
)

// IsValidClientType reports whether t is a known client type.
func IsValidClientType(t string) bool {
	switch t {
	case ClientTypeResidential, ClientTypeCommercial, ClientTypeMunicipal:
		return true
	}
	return false
}

// ClientService manages client records.
type ClientService interface {
	CreateClient(ctx context.Context, params ClientParams) (*repository.Client, error)

	// GetClient returns a client with its derived aggregates.
	GetClient(ctx context.Context, id uuid.UUID) (*repository.Client, error)

	ListClients(ctx context.Context, params ListClientsParams) ([]repository.Client, error)
	UpdateClient(ctx context.Context, id uuid.UUID, params ClientParams) (*repository.Client, error)

	// DeleteClient removes a client along with its jobs and invoices.
	DeleteClient(ctx context.Context, id uuid.UUID) error
}

// ClientParams holds the writable client fields.
type ClientParams struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Type    string // Defaults to Residential
	Notes   string
}

// ListClientsParams filters client listings.
type ListClientsParams struct {
	Type   *string
	Search *string
}
