package api

import (
	"net/http"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/handler"
)

// EmailHandler serves /api/send-email and the /api/emails history.
type EmailHandler struct {
	notifications domain.NotificationService
}

// NewEmailHandler creates a new email handler
func NewEmailHandler(notifications domain.NotificationService) *EmailHandler {
	return &EmailHandler{notifications: notifications}
}

// Send handles POST /api/send-email.
func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest("email.send", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	result, err := h.notifications.SendEmail(r.Context(), req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, result)
}

// History handles GET /api/emails?limit=.
func (h *EmailHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt32(r, "limit")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	history, err := h.notifications.ListHistory(r.Context(), limit)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, history)
}

// Delete handles DELETE /api/emails?id= and DELETE /api/emails/{id}.
func (h *EmailHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.RequireID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.notifications.DeleteHistory(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, map[string]string{"id": id.String()})
}
