// Package api implements the JSON data endpoints under /api.
package api

import (
	"net/http"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/handler"
)

// ClientHandler serves /api/clients.
type ClientHandler struct {
	clients domain.ClientService
}

// NewClientHandler creates a new client handler
func NewClientHandler(clients domain.ClientService) *ClientHandler {
	return &ClientHandler{clients: clients}
}

// List handles GET /api/clients. With ?id= (or /api/clients/{id}) it returns
// one client; otherwise it lists, filtered by ?type= and ?search=.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok, err := handler.OptionalID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if ok {
		client, err := h.clients.GetClient(r.Context(), id)
		if err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		handler.Success(w, client)
		return
	}

	clients, err := h.clients.ListClients(r.Context(), domain.ListClientsParams{
		Type:   queryString(r, "type"),
		Search: queryString(r, "search"),
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, clients)
}

// Create handles POST /api/clients.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ClientRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest("client.create", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	client, err := h.clients.CreateClient(r.Context(), req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Created(w, client)
}

// Update handles PUT /api/clients?id= and PUT /api/clients/{id}.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.RequireID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req ClientRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest("client.update", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	client, err := h.clients.UpdateClient(r.Context(), id, req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, client)
}

// Delete handles DELETE /api/clients?id= and DELETE /api/clients/{id}.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.RequireID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.clients.DeleteClient(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, map[string]string{"id": id.String()})
}
