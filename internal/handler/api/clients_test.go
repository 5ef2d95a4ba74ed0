package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bizznex/internal/domain"
	"github.com/dukerupert/bizznex/internal/repository"
)

func TestClientHandler_CRUD(t *testing.T) {
	f := newAPIFixture(t)

	rec := serve(f.clients.Create, newRequest(t, http.MethodPost, "/api/clients", map[string]any{
		"name":  "Acme Corp",
		"email": "billing@acme.test",
		"type":  domain.ClientTypeCommercial,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeData[repository.Client](t, rec)
	assert.Equal(t, "Acme Corp", created.Name)
	assert.NotEqual(t, uuid.Nil, created.ID)

	rec = serve(f.clients.List, newRequest(t, http.MethodGet, query("/api/clients", "id", created.ID.String()), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeData[repository.Client](t, rec).ID)

	rec = serve(f.clients.Update, withID(newRequest(t, http.MethodPut, "/api/clients/"+created.ID.String(), map[string]any{
		"name":  "Acme Corporation",
		"email": "billing@acme.test",
		"type":  domain.ClientTypeMunicipal,
	}), created.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[repository.Client](t, rec)
	assert.Equal(t, "Acme Corporation", updated.Name)
	assert.Equal(t, domain.ClientTypeMunicipal, updated.Type)

	rec = serve(f.clients.List, newRequest(t, http.MethodGet, query("/api/clients", "search", "corporation"), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]repository.Client](t, rec), 1)

	rec = serve(f.clients.Delete, newRequest(t, http.MethodDelete, query("/api/clients", "id", created.ID.String()), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(f.clients.List, newRequest(t, http.MethodGet, query("/api/clients", "id", created.ID.String()), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClientHandler_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		wantField string
	}{
		{name: "missing name", body: map[string]any{"email": "a@b.test"}, wantField: "name"},
		{name: "bad email", body: map[string]any{"name": "A", "email": "nope"}, wantField: "email"},
		{name: "unknown type", body: map[string]any{"name": "A", "type": "Industrial"}, wantField: "type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)

			rec := serve(f.clients.Create, newRequest(t, http.MethodPost, "/api/clients", tt.body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, domain.EINVALID, env.Code)
			assert.Contains(t, env.Fields, tt.wantField)
		})
	}
}

func TestClientHandler_MissingOrBadID(t *testing.T) {
	f := newAPIFixture(t)

	rec := serve(f.clients.Delete, newRequest(t, http.MethodDelete, "/api/clients", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(f.clients.List, newRequest(t, http.MethodGet, query("/api/clients", "id", "not-a-uuid"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(f.clients.Delete, newRequest(t, http.MethodDelete, query("/api/clients", "id", uuid.NewString()), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobHandler_CreateAndFilter(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.seedClient(t, "Acme", "billing@acme.test")
	other := f.seedClient(t, "Other", "")

	for _, body := range []map[string]any{
		{"client_id": acme.ID, "service": "Gutter cleaning", "date": "2024-03-01", "total_amount": "150.00"},
		{"client_id": acme.ID, "service": "Window washing", "date": "2024-03-20", "total_amount": "90"},
		{"client_id": other.ID, "service": "Lawn care", "date": "2024-03-05", "total_amount": "60"},
	} {
		rec := serve(f.jobs.Create, newRequest(t, http.MethodPost, "/api/jobs", body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := serve(f.jobs.List, newRequest(t, http.MethodGet, query("/api/jobs", "client_id", acme.ID.String()), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	jobs := decodeData[[]repository.Job](t, rec)
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, acme.ID, j.ClientID)
	}

	rec = serve(f.jobs.List, newRequest(t, http.MethodGet, query("/api/jobs", "from", "2024-03-02", "to", "2024-03-31"), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]repository.Job](t, rec), 2)

	rec = serve(f.jobs.List, newRequest(t, http.MethodGet, query("/api/jobs", "from", "March"), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Fields, "from")
}

func TestJobHandler_Validation(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.seedClient(t, "Acme", "")

	rec := serve(f.jobs.Create, newRequest(t, http.MethodPost, "/api/jobs", map[string]any{
		"client_id":    acme.ID,
		"service":      "Gutter cleaning",
		"total_amount": "-5",
	}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Contains(t, env.Fields, "date")
	assert.Contains(t, env.Fields, "total_amount")
}

func TestJobHandler_UpdateAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	acme := f.seedClient(t, "Acme", "")

	rec := serve(f.jobs.Create, newRequest(t, http.MethodPost, "/api/jobs", map[string]any{
		"client_id": acme.ID, "service": "Gutter cleaning", "date": "2024-03-01", "total_amount": "150",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	job := decodeData[repository.Job](t, rec)

	rec = serve(f.jobs.Update, withID(newRequest(t, http.MethodPut, "/api/jobs/"+job.ID.String(), map[string]any{
		"client_id": acme.ID, "service": "Gutter cleaning", "date": "2024-03-01", "total_amount": "175.50", "status": "Completed",
	}), job.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[repository.Job](t, rec)
	assert.Equal(t, "Completed", updated.Status)
	assert.True(t, decimal.RequireFromString("175.50").Equal(updated.TotalAmount))

	rec = serve(f.jobs.Delete, withID(newRequest(t, http.MethodDelete, "/api/jobs/"+job.ID.String(), nil), job.ID))
	assert.Equal(t, http.StatusOK, rec.Code)
}
