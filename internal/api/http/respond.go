package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pigwin-3/historie-q/internal/game"
	"github.com/pigwin-3/historie-q/internal/hierarchy"
	"github.com/pigwin-3/historie-q/internal/metrics"
	"github.com/pigwin-3/historie-q/internal/quiz"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain errors onto status codes.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, quiz.ErrNotFound), errors.Is(err, hierarchy.ErrThemeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, quiz.ErrDuplicateID),
		errors.Is(err, game.ErrNotInProgress),
		errors.Is(err, game.ErrAlreadyAnswered),
		errors.Is(err, game.ErrNotAnswered),
		errors.Is(err, game.ErrNotFinished):
		status = http.StatusConflict
	case errors.Is(err, quiz.ErrUnsafeName):
		status = http.StatusBadRequest
	case errors.Is(err, quiz.ErrInvalidQuestion),
		errors.Is(err, game.ErrChoiceOutOfRange),
		errors.Is(err, game.ErrNoQuestions):
		status = http.StatusUnprocessableEntity
	}
	http.Error(w, err.Error(), status)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return false
	}
	return true
}

// intParam reads a numeric URL parameter such as a theme or question ID.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := quiz.ParseID(chi.URLParam(r, name))
	if err != nil {
		http.Error(w, "bad "+name, http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}

// Instrument records request latency by route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
