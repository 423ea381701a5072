package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/larsfn/minterra/internal/api/presenter"
	"github.com/larsfn/minterra/internal/buildinfo"
	"github.com/larsfn/minterra/internal/core"
	"github.com/larsfn/minterra/internal/service"
)

// ExchangePayload is the inbound request body. The field names follow the
// wire contract expected by the terraform provider-configuration script.
type ExchangePayload struct {
	RunID string `json:"RUN_ID"`
	Token string `json:"TFC_TOKEN"`
}

// ExchangeResponse is the success payload.
type ExchangeResponse struct {
	Status    string `json:"status"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func DecodePayload(r *http.Request, dest any) error {
	switch r.Header.Get("Content-Type") {
	case "application/json", "":
		// strict encoding for JSON
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(dest); err != nil {
			if errors.Is(err, io.EOF) {
				return errors.New("empty request body")
			}
			return err
		}
		if dec.More() {
			return errors.New("extra data in request body")
		}
		return nil
	default:
		return errors.New("unsupported content type")
	}
}

// handleHealth responds with a simple OK status to indicate the server is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleInfo responds with service information including version and commit hash.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}

// handleExchange parses the inbound request, runs the pipeline and
// serializes the result. No business logic lives here.
func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload ExchangePayload
	if err := DecodePayload(r, &payload); err != nil {
		logger.Warn().Err(err).Msg("failed to decode exchange payload")
		presenter.Error(w, r, "invalid or missing JSON request body", http.StatusBadRequest)
		return
	}

	artifact, err := s.exchange.Exchange(ctx, service.ExchangeRequest{
		RunID: payload.RunID,
		Token: payload.Token,
	})
	if err != nil {
		logger.Warn().Err(err).Str("kind", string(core.KindOf(err))).Msg("exchange rejected")
		presenter.Err(w, r, err)
		return
	}

	presenter.JSON(w, r, ExchangeResponse{
		Status:    "success",
		Token:     artifact.Value,
		ExpiresIn: int64(time.Until(artifact.ExpiresAt).Round(time.Second).Seconds()),
	}, http.StatusOK)
}

// handleAdminAudits lists recent audit entries, newest first.
func (s *Server) handleAdminAudits(w http.ResponseWriter, r *http.Request) {
	reader, ok := s.auditor.(core.AuditReader)
	if !ok {
		presenter.Error(w, r, "configured auditor does not support listing", http.StatusNotImplemented)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			presenter.Error(w, r, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := reader.Recent(limit)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to read audit entries")
		presenter.Error(w, r, "failed to read audit entries", http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, entries, http.StatusOK)
}
