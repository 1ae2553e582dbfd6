package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pigwin-3/historie-q/internal/consent"
)

func MountConsent(r chi.Router, gate *consent.Gate) {
	r.Get("/", GetConsentHandler(gate))
	r.Put("/", PutConsentHandler(gate))
}

type consentView struct {
	Status  consent.Status `json:"status"`
	Allowed bool           `json:"allowed"`
}

func GetConsentHandler(gate *consent.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := gate.Status(r.Context())
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, consentView{Status: st, Allowed: st == consent.Granted})
	}
}

// PUT /consent {"allowed": false} records an explicit decline.
func PutConsentHandler(gate *consent.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Allowed *bool `json:"allowed"`
		}
		if !decode(w, r, &req) {
			return
		}
		if req.Allowed == nil {
			http.Error(w, "allowed required", http.StatusBadRequest)
			return
		}
		if err := gate.SetConsent(r.Context(), *req.Allowed); err != nil {
			writeErr(w, err)
			return
		}
		st := consent.Declined
		if *req.Allowed {
			st = consent.Granted
		}
		writeJSON(w, http.StatusOK, consentView{Status: st, Allowed: *req.Allowed})
	}
}
