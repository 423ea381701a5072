package api

import (
	"net/http"

	"github.com/larsfn/minterra/internal/api/middleware"
	"github.com/larsfn/minterra/internal/core"
	"github.com/larsfn/minterra/internal/service"
)

type Server struct {
	exchange *service.ExchangeService
	auditor  core.Auditor
}

func NewServer(exchange *service.ExchangeService, auditor core.Auditor) *Server {
	return &Server{
		exchange: exchange,
		auditor:  auditor,
	}
}

func (s *Server) Routes(adminSigningKey []byte) http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+InfoRoute, s.handleInfo)

	// exchange route
	mux.HandleFunc("POST "+ExchangeTokenRoute, s.handleExchange)

	// admin routes, only mounted when a signing key is configured
	if len(adminSigningKey) > 0 {
		adminMux := http.NewServeMux()
		adminMux.HandleFunc("GET "+ListAuditsRoute, s.handleAdminAudits)
		mux.Handle(AdminParent, middleware.AdminAuth(adminSigningKey)(adminMux))
	}

	return middleware.Recover(
		middleware.CorrelationID(
			middleware.Logging(
				mux)))
}
