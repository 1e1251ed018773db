package main

import (
	"net/http"

	"gitea.kood.tech/petrkubec/nearby/filters"
)

type filtersResponse struct {
	Filters       filters.FilterSet `json:"filters"`
	ActiveFilters []string          `json:"active_filters"`
}

// filterLabelsHandler echoes the parsed filter set and its active labels, so
// clients render chips the same way discover does.
func filterLabelsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		q := r.URL.Query()
		sys, err := parseSystem(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query")
			return
		}
		fs, err := parseFilters(q, sys)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query")
			return
		}
		writeJSON(w, http.StatusOK, filtersResponse{
			Filters:       fs,
			ActiveFilters: filters.Composer{System: sys}.ActiveLabels(fs),
		})
	}
}

func clearFiltersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		fs, labels := filters.Composer{}.ClearAll()
		writeJSON(w, http.StatusOK, filtersResponse{Filters: fs, ActiveFilters: labels})
	}
}
