package api

const (
	HealthCheckRoute = "/healthz"
	InfoRoute        = "/v1/info"

	ExchangeTokenRoute = "/v1/token/exchange"

	AdminParent     = "/v1/admin/"
	ListAuditsRoute = AdminParent + "audits"
)
