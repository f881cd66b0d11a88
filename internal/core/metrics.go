package core

import "time"

// Recorder abstracts metric recording so services can emit metrics without
// depending on Prometheus directly. A no-op implementation is used when
// metrics are disabled.
type Recorder interface {
	// Token Operations
	RecordTokenIssued(tokenType, grantType string, generationTime time.Duration)
	RecordTokenRevoked(tokenType, reason string)
	RecordTokenRefresh(success bool)
	RecordTokenValidation(result string)
	RecordExchangeRejected(grantType, reason string)

	// Gauge Setters (for periodic updates)
	SetActiveTokensCount(tokenType string, count int)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}

// MetricsStore defines the DB operations needed by the metrics cache wrapper.
type MetricsStore interface {
	CountActiveAccessTokens() (int64, error)
	CountActiveRefreshTokens() (int64, error)
}
