package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/bizznex/internal/domain"
)

func queryString(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return nil
	}
	return &v
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	v := queryString(r, name)
	if v == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*v)
	if err != nil {
		return nil, domain.NewValidationError("", name, name+" must be a valid UUID")
	}
	return &id, nil
}

func queryDate(r *http.Request, name string) (*time.Time, error) {
	v := queryString(r, name)
	if v == nil {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, *v)
	if err != nil {
		return nil, domain.NewValidationError("", name, name+" must be a date (YYYY-MM-DD)")
	}
	return &t, nil
}

func queryInt32(r *http.Request, name string) (int32, error) {
	v := queryString(r, name)
	if v == nil {
		return 0, nil
	}
	n, err := strconv.ParseInt(*v, 10, 32)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError("", name, name+" must be a non-negative integer")
	}
	return int32(n), nil
}
