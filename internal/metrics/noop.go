package metrics

import (
	"time"

	"github.com/schoolpulse/identity/internal/core"
)

// NoopMetrics is a no-operation implementation of core.Recorder.
// All methods are empty and do nothing, providing zero overhead when metrics are disabled.
type NoopMetrics struct{}

// Ensure NoopMetrics implements core.Recorder interface at compile time
var _ core.Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() core.Recorder {
	return &NoopMetrics{}
}

// Token Operations - noop implementations
func (n *NoopMetrics) RecordTokenIssued(tokenType, grantType string, generationTime time.Duration) {
}
func (n *NoopMetrics) RecordTokenRevoked(tokenType, reason string)     {}
func (n *NoopMetrics) RecordTokenRefresh(success bool)                 {}
func (n *NoopMetrics) RecordTokenValidation(result string)             {}
func (n *NoopMetrics) RecordExchangeRejected(grantType, reason string) {}

// Gauge Setters - noop implementations
func (n *NoopMetrics) SetActiveTokensCount(tokenType string, count int) {}

// Database Operations - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
