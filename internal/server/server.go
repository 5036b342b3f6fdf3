package server

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"ListingSweeper/internal/database"
	"ListingSweeper/internal/logger"
	"ListingSweeper/internal/models"
	"ListingSweeper/pkg/config"
)

// FindingsStore is the part of the index the API reads.
type FindingsStore interface {
	CountFindings(filters models.FindingFilters) (int, error)
	GetFindings(filters models.FindingFilters) ([]models.Finding, error)
}

var _ FindingsStore = (*database.DBRepository)(nil)

// NewMux routes the findings API.
func NewMux(repo FindingsStore) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/findings", findingsHandler(repo))
	return mux
}

// Start serves the findings API until ListenAndServe fails.
func Start(repo FindingsStore, cfg *config.Config, log *logger.Logger) error {
	port := cfg.Server.Port
	log.LogInfof("Starting API server on port %s", port)
	log.LogInfof("Endpoint available at http://localhost:%s/findings", port)
	return http.ListenAndServe(":"+port, NewMux(repo))
}

func findingsHandler(repo FindingsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		queryParams := r.URL.Query()
		page, _ := strconv.Atoi(queryParams.Get("page"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(queryParams.Get("limit"))
		if limit < 1 {
			limit = 20
		}
		flag := queryParams.Get("flag")
		if flag != "" && flag != "tight" && flag != "taken_down" {
			http.Error(w, "flag must be tight or taken_down", http.StatusBadRequest)
			return
		}

		filters := models.FindingFilters{Flag: flag, Limit: limit, Offset: (page - 1) * limit}

		total, err := repo.CountFindings(filters)
		if err != nil {
			http.Error(w, "Failed to count findings", http.StatusInternalServerError)
			return
		}
		totalPages := int(math.Ceil(float64(total) / float64(limit)))

		findings, err := repo.GetFindings(filters)
		if err != nil {
			http.Error(w, "Failed to get findings", http.StatusInternalServerError)
			return
		}

		response := models.FindingsResponse{
			Data: findings,
			Pagination: models.Pagination{
				TotalPages:  totalPages,
				CurrentPage: page,
			},
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}
