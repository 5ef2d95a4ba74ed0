package api

import (
	"net/http"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/handler"
)

// JobHandler serves /api/jobs.
type JobHandler struct {
	jobs domain.JobService
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs domain.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// List handles GET /api/jobs with optional ?client_id=, ?status=, ?from=
// and ?to= filters, or ?id= for a single job.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok, err := handler.OptionalID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if ok {
		job, err := h.jobs.GetJob(r.Context(), id)
		if err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
		handler.Success(w, job)
		return
	}

	params := domain.ListJobsParams{Status: queryString(r, "status")}
	if params.ClientID, err = queryUUID(r, "client_id"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if params.From, err = queryDate(r, "from"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if params.To, err = queryDate(r, "to"); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	jobs, err := h.jobs.ListJobs(r.Context(), params)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, jobs)
}

// Create handles POST /api/jobs.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest("job.create", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	job, err := h.jobs.CreateJob(r.Context(), req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Created(w, job)
}

// Update handles PUT /api/jobs?id= and PUT /api/jobs/{id}.
func (h *JobHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.RequireID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req JobRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest("job.update", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	job, err := h.jobs.UpdateJob(r.Context(), id, req.params())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, job)
}

// Delete handles DELETE /api/jobs?id= and DELETE /api/jobs/{id}.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.RequireID(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.jobs.DeleteJob(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, map[string]string{"id": id.String()})
}
