package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterHandlers(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Labels follow field order", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/filters/labels?favorites_only=1&event_types=hiking&age_max=30&max_distance=5000", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp filtersResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []string{"Within 5.0 km", "Age 18 - 30", "Events: hiking", "Favorites only"}, resp.ActiveFilters)
	})

	t.Run("Imperial height label", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/filters/labels?units=imperial&height_min=67&height_max=72", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp filtersResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []string{`Height 5'7" - 6'0"`}, resp.ActiveFilters)
	})

	t.Run("Invalid filter", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/filters/labels?age_min=old", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Clear returns the empty set", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/filters/clear", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"filters":{"favorites_only":false},"active_filters":[]}`, rec.Body.String())

		assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodGet, "/filters/clear", "").Code)
	})
}
