package api

import (
	"net/http"
	"time"

	"github.com/faceforge/faceforge/internal/log"
)

type healthResponse struct {
	Status  string    `json:"status"`
	Service string    `json:"service"`
	Time    time.Time `json:"time"`
}

// health reports liveness. No dependencies are touched so the probe stays
// cheap under load.
func health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Service: "faceforge",
			Time:    time.Now().UTC(),
		}, logger)
	}
}
