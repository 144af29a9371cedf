package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&domain.ResolutionError{Slug: "x", Err: domain.ErrNotFound}, http.StatusNotFound},
		{domain.ErrNotFound, http.StatusNotFound},
		{&domain.ValidationError{Field: "slug", Err: errors.New("unsafe")}, http.StatusBadRequest},
		{&domain.FetchError{EventID: 1, Err: errors.New("timeout")}, http.StatusBadGateway},
		{domain.ErrRateLimited, http.StatusBadGateway},
		{errors.New("something else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFromError(tc.err), tc.err.Error())
	}
}

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/search?limit=7&bad=zero&neg=-2", nil)
	assert.Equal(t, 7, queryInt(r, "limit", 10))
	assert.Equal(t, 10, queryInt(r, "missing", 10))
	assert.Equal(t, 10, queryInt(r, "bad", 10))
	assert.Equal(t, 10, queryInt(r, "neg", 10))
}
