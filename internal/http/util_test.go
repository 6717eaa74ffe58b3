package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bulkhaus/bulk-ui-api/internal/data"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

func TestParseLimitOffset(t *testing.T) {
	cases := []struct {
		url        string
		wantLimit  int
		wantOffset int
	}{
		{"/x", 25, 0},
		{"/x?limit=10&offset=5", 10, 5},
		{"/x?limit=0", 1, 0},
		{"/x?limit=9999", 100, 0},
		{"/x?offset=-3", 25, 0},
		{"/x?limit=abc&offset=def", 25, 0},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.url, nil)
		limit, offset := ParseLimitOffset(req, 25, 100)
		require.Equal(t, tc.wantLimit, limit, tc.url)
		require.Equal(t, tc.wantOffset, offset, tc.url)
	}
}

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err      error
		wantCode int
		wantErr  string
	}{
		{data.ErrProductNotFound, http.StatusNotFound, "not_found"},
		{data.ErrOrderNotFound, http.StatusNotFound, "not_found"},
		{data.ErrCategorySlugExists, http.StatusConflict, "slug_exists"},
		{data.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
		{data.ErrInvalidOrderTransition, http.StatusConflict, "invalid_transition"},
		{model.ErrEmptyCart, http.StatusBadRequest, "empty_cart"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, tc.err, "fallback")
		require.Equal(t, tc.wantCode, rec.Code, tc.err.Error())
		require.Equal(t, tc.wantErr, decodeBody(t, rec)["error"], tc.err.Error())
	}
}
