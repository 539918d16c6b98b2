package config

import (
	"time"

	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// DatabaseURL is the PostgreSQL connection string for the target database
	DatabaseURL string
	// PoolMinConns is the minimum number of pooled connections kept open
	PoolMinConns int
	// PoolMaxConns is the maximum number of pooled connections
	PoolMaxConns int
	// AcquireTimeout bounds how long an operation waits for a free connection
	AcquireTimeout time.Duration
	// PreferIPv4 forces IPv4 resolution when dialing the database host
	PreferIPv4 bool
	// BatchSize is the number of rows copied per batch during migration
	BatchSize int
	// RetentionDays is how long transactional rows are kept by the retention cleanup
	RetentionDays int
)

// InitConfig initializes the global configuration
func InitConfig() {
	// Set default values
	viper.SetDefault("pool.minconns", 1)
	viper.SetDefault("pool.maxconns", 5)
	viper.SetDefault("pool.acquiretimeout", "30s")
	viper.SetDefault("pool.preferipv4", false)
	viper.SetDefault("migrate.batchsize", 1000)
	viper.SetDefault("retention.days", 30)

	// Get values from viper
	DatabaseURL = viper.GetString("databaseurl")
	PoolMinConns = viper.GetInt("pool.minconns")
	PoolMaxConns = viper.GetInt("pool.maxconns")
	AcquireTimeout = viper.GetDuration("pool.acquiretimeout")
	PreferIPv4 = viper.GetBool("pool.preferipv4")
	BatchSize = viper.GetInt("migrate.batchsize")
	RetentionDays = viper.GetInt("retention.days")
}

// SetDatabaseURL sets the target connection string
func SetDatabaseURL(url string) {
	DatabaseURL = url
}

// SetPoolBounds sets the connection pool size limits
func SetPoolBounds(minConns, maxConns int) {
	if minConns > 0 {
		PoolMinConns = minConns
	}
	if maxConns > 0 {
		PoolMaxConns = maxConns
	}
}

// SetPreferIPv4 sets the IPv4-only dialing flag
func SetPreferIPv4(prefer bool) {
	PreferIPv4 = prefer
}
