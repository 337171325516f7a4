package server

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"StockBot/internal/database"
	"StockBot/internal/models"
)

const displayTimeLayout = time.RFC3339

// Serve runs srv until it fails or is shut down. A clean shutdown returns nil.
func Serve(srv *http.Server) error {
	log.Printf("Starting history API server on %s", srv.Addr)
	log.Printf("Endpoints available at http://localhost%s/items and /runs", displayAddr(srv.Addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return addr
	}
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return addr
}

// NewRouter builds the handler tree of the history API.
func NewRouter(repo *database.DBRepository) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/items", itemsHandler(repo))
	mux.HandleFunc("/runs", runsHandler(repo))
	return mux
}

func itemsHandler(repo *database.DBRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// 1. Parse pagination and filter parameters
		queryParams := r.URL.Query()
		page, _ := strconv.Atoi(queryParams.Get("page"))
		if page < 1 {
			page = 1
		}
		limit, _ := strconv.Atoi(queryParams.Get("limit"))
		if limit < 1 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		filters := models.ItemFilters{
			RunID:  queryParams.Get("run"),
			Status: models.ItemStatus(queryParams.Get("status")),
			Limit:  limit,
			Offset: (page - 1) * limit,
		}
		switch filters.Status {
		case "", models.StatusPending, models.StatusAdded, models.StatusSkipped:
		default:
			http.Error(w, "Unknown status filter", http.StatusBadRequest)
			return
		}

		// 2. Total count for pagination
		totalItems, err := repo.CountItems(filters)
		if err != nil {
			log.Printf("Failed to count items: %v", err)
			http.Error(w, "Failed to count items", http.StatusInternalServerError)
			return
		}
		totalPages := int(math.Ceil(float64(totalItems) / float64(limit)))

		// 3. The requested page
		items, err := repo.GetItems(filters)
		if err != nil {
			log.Printf("Failed to get items: %v", err)
			http.Error(w, "Failed to get items", http.StatusInternalServerError)
			return
		}

		response := models.ItemsResponse{
			Data: make([]models.ItemPayload, 0, len(items)),
			Pagination: models.Pagination{
				TotalPages:  totalPages,
				CurrentPage: page,
			},
		}
		for _, it := range items {
			response.Data = append(response.Data, itemPayload(it))
		}
		writeJSON(w, response)
	}
}

func runsHandler(repo *database.DBRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		runs, err := repo.GetRecentRuns(limit)
		if err != nil {
			log.Printf("Failed to get runs: %v", err)
			http.Error(w, "Failed to get runs", http.StatusInternalServerError)
			return
		}

		payload := make([]models.RunPayload, 0, len(runs))
		for _, run := range runs {
			p := models.RunPayload{
				ID:             run.ID,
				StartedAt:      run.StartedAt.Format(displayTimeLayout),
				RefreshSeconds: run.RefreshSeconds,
				URLCount:       run.URLCount,
				Completed:      run.CompletedNormal,
			}
			if run.FinishedAt != nil {
				p.FinishedAt = run.FinishedAt.Format(displayTimeLayout)
			}
			payload = append(payload, p)
		}
		writeJSON(w, payload)
	}
}

func itemPayload(it models.Item) models.ItemPayload {
	p := models.ItemPayload{
		RunID:      it.RunID,
		URL:        it.URL,
		Status:     string(it.Status),
		HTTPStatus: it.HTTPStatus,
		Title:      it.Title,
		Price:      it.Price,
		Attempts:   it.Attempts,
		LastError:  it.LastError,
	}
	if it.AddedAt != nil {
		p.AddedAt = it.AddedAt.Format(displayTimeLayout)
	}
	return p
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
