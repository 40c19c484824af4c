// Package responders exposes the responder directory over HTTP.
package responders

import (
	"encoding/json"
	"net/http"

	"github.com/telecare/oncall/core/directory"
)

// NewListHandler returns an HTTP handler exposing the directory contents via
// GET /api/responders.
func NewListHandler(dir directory.Admin) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		entries, err := dir.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		type entryView struct {
			ID        string `json:"id"`
			Name      string `json:"name"`
			Language  string `json:"language"`
			Reachable bool   `json:"reachable"`
			Available bool   `json:"available"`
		}
		views := make([]entryView, 0, len(entries))
		for _, e := range entries {
			views = append(views, entryView{
				ID:        e.ID,
				Name:      e.Name,
				Language:  e.Language,
				Reachable: e.Address != "",
				Available: e.Available,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(views); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
