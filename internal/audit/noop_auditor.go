package audit

import "github.com/larsfn/minterra/internal/core"

// NoopAuditor discards all entries. Used when auditing is disabled.
type NoopAuditor struct{}

func NewNoopAuditor() *NoopAuditor {
	return &NoopAuditor{}
}

func (NoopAuditor) Log(core.AuditEntry) error {
	return nil
}

func (NoopAuditor) Close() error {
	return nil
}
