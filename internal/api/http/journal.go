package http

import (
	"net/http"
	"strconv"

	"github.com/pigwin-3/historie-q/internal/syncx"
)

// GET /admin/journal?after=12&limit=50
func JournalHandler(j *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		evs, err := j.Since(r.Context(), after, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, evs)
	}
}
