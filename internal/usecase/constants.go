package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from holding position row locks
	DefaultTransactionTimeout = 10 * time.Second

	// ProxyKeyPrefix prefixes proxy cache keys for inter-scheme participants.
	ProxyKeyPrefix = "proxy:"

	// DefaultProxyTTL is how long a resolved proxy route stays cached
	DefaultProxyTTL = 24 * time.Hour

	// DefaultSweepBatchSize bounds the number of expired transfers handled per sweep
	DefaultSweepBatchSize = 500
)

// ProxyKey returns the proxy cache key for a participant.
func ProxyKey(participant string) string {
	return ProxyKeyPrefix + participant
}
