package presenter

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/larsfn/minterra/internal/core"
)

// ErrorResponse is the failure payload. The message is classification-level
// only; upstream detail and secrets never appear here.
type ErrorResponse struct {
	Status        string `json:"status"`
	Message       string `json:"msg"`
	Token         any    `json:"token"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to write json response")
	}
}

func Error(w http.ResponseWriter, r *http.Request, msg string, status int) {
	correlationID, _ := r.Context().Value("correlation_id").(string)
	JSON(w, r, ErrorResponse{
		Status:        "error",
		Message:       msg,
		Token:         nil,
		CorrelationID: correlationID,
	}, status)
}

// Err writes a classified broker error using its public message and the
// status code derived from its kind.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	Error(w, r, core.Public(err), core.HTTPStatus(err))
}
