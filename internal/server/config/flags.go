package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/accounts/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   gRPC health endpoint address (e.g. ":50051")
//	-b string   database driver: pgx or sqlite
//	-d string   database DSN
//	-k int      bcrypt cost
//	-t int      remember token size, bytes
//	-i int      health check interval, seconds
//	-l string   log level
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-b", "-d", "-k", "-t", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port of the health endpoint")
	fs.StringVar(&config.DatabaseDriver, "b", config.DatabaseDriver, "database driver (pgx|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.BcryptCost, "k", config.BcryptCost, "bcrypt cost")
	fs.IntVar(&config.RememberTokenSize, "t", config.RememberTokenSize, "remember token size (in bytes)")
	interval := fs.Int("i", int(config.HealthCheckInterval.Seconds()), "health check interval (in seconds)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.HealthCheckInterval = time.Duration(*interval) * time.Second
}
