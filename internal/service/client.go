package service

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/repository"
)

// ClientService is re-exported from domain for handler convenience.
type ClientService = domain.ClientService

type clientService struct {
	repo   repository.Querier
	logger *slog.Logger
}

// NewClientService creates a new ClientService instance.
func NewClientService(repo repository.Querier, logger *slog.Logger) ClientService {
	if logger == nil {
		logger = slog.Default()
	}
	return &clientService{repo: repo, logger: logger}
}

func validateClient(op string, p *domain.ClientParams) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	if p.Type == "" {
		p.Type = domain.ClientTypeResidential
	}

	var verr error
	if p.Name == "" {
		verr = fieldError(verr, op, "name", "name is required")
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			verr = fieldError(verr, op, "email", "email is not valid")
		}
	}
	if !domain.IsValidClientType(p.Type) {
		verr = fieldError(verr, op, "type", "type must be Residential, Commercial or Municipal")
	}
	return verr
}

func (s *clientService) CreateClient(ctx context.Context, params domain.ClientParams) (*repository.Client, error) {
	const op = "client.create"
	if err := validateClient(op, &params); err != nil {
		return nil, err
	}

	c, err := s.repo.CreateClient(ctx, repository.CreateClientParams{
		Name:    params.Name,
		Email:   params.Email,
		Phone:   params.Phone,
		Address: params.Address,
		Type:    params.Type,
		Notes:   params.Notes,
	})
	if err != nil {
		return nil, domain.Persistence(err, op, "failed to save client")
	}

	s.logger.InfoContext(ctx, "client created", "client_id", c.ID)
	return &c, nil
}

func (s *clientService) GetClient(ctx context.Context, id uuid.UUID) (*repository.Client, error) {
	const op = "client.get"
	c, err := s.repo.GetClient(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, op, "client", id)
	}
	return &c, nil
}

func (s *clientService) ListClients(ctx context.Context, params domain.ListClientsParams) ([]repository.Client, error) {
	if params.Type != nil && !domain.IsValidClientType(*params.Type) {
		return nil, domain.NewValidationError("client.list", "type", "unknown client type")
	}

	clients, err := s.repo.ListClients(ctx, repository.ListClientsParams{
		Type:   params.Type,
		Search: params.Search,
	})
	if err != nil {
		return nil, domain.Internal(err, "client.list", "failed to list clients")
	}
	return clients, nil
}

func (s *clientService) UpdateClient(ctx context.Context, id uuid.UUID, params domain.ClientParams) (*repository.Client, error) {
	const op = "client.update"
	if err := validateClient(op, &params); err != nil {
		return nil, err
	}

	c, err := s.repo.UpdateClient(ctx, repository.UpdateClientParams{
		ID:      id,
		Name:    params.Name,
		Email:   params.Email,
		Phone:   params.Phone,
		Address: params.Address,
		Type:    params.Type,
		Notes:   params.Notes,
	})
	if err != nil {
		return nil, notFoundOr(err, op, "client", id)
	}
	return &c, nil
}

func (s *clientService) DeleteClient(ctx context.Context, id uuid.UUID) error {
	const op = "client.delete"
	n, err := s.repo.DeleteClient(ctx, id)
	if err != nil {
		return domain.Persistence(err, op, "failed to delete client")
	}
	if n == 0 {
		return domain.NotFound(op, "client", id.String())
	}

	s.logger.InfoContext(ctx, "client deleted", "client_id", id)
	return nil
}
