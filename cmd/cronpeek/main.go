package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/djlord-it/cronpeek/internal/config"
	"github.com/djlord-it/cronpeek/internal/cron"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(exitRuntimeError)
	}

	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "next":
		os.Exit(runNext(args, os.Stdout, os.Stderr))
	case "random":
		os.Exit(runRandom(args, os.Stdout, os.Stderr))
	case "validate":
		os.Exit(runValidate(args, os.Stdout, os.Stderr))
	case "config":
		os.Exit(runConfig(os.Stdout, os.Stderr))
	case "version":
		os.Exit(runVersion(os.Stdout))
	case "--help", "-h", "help":
		printUsage(os.Stdout)
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage(os.Stderr)
		os.Exit(exitRuntimeError)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `cronpeek - cron expression previewer

Usage:
  cronpeek <command> [flags]

Commands:
  serve              Start the HTTP API
  next <expr>        Print the next runs of an expression
  random             Print random daily expressions
  validate [expr]    Validate an expression, or the configuration when none is given
  config             Print effective configuration as JSON (secrets masked)
  version            Print version information

Flags for next:
  -n, --count N      Number of runs (default: DEFAULT_RUN_COUNT)
      --from TIME    Start searching after TIME, RFC 3339 (default: now)
      --tz ZONE      IANA timezone (default: DEFAULT_TIMEZONE)
  -o, --output FMT   text, json or yaml (default: text)

Flags for random:
  -n, --count N      Number of expressions (default: 1)
      --seed N       Seed for reproducible output (default: random)

Environment Variables:
  HTTP_ADDR                  HTTP server address (default: ":8080", or ":$PORT")
  DATABASE_URL               PostgreSQL connection string; enables saved schedules
  REDIS_ADDR                 Redis address; enables preview analytics
  LOG_LEVEL                  trace, debug, info, warn, error (default: "info")
  LOG_FORMAT                 console or json (default: "console")

  DEFAULT_TIMEZONE           Calendar for requests without one (default: "UTC")
  DEFAULT_RUN_COUNT          Runs per preview when none requested (default: "5")
  MAX_RUN_COUNT              Upper bound on runs per preview (default: "50")
  SEARCH_TIMEOUT             Deadline for one preview search (default: "2s")
  PREVIEW_RATE_LIMIT         Preview requests per second, 0 disables (default: "20")
  PREVIEW_RATE_BURST         Preview limiter burst (default: "40")

  DB_OP_TIMEOUT              Database operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS          Max open database connections (default: "10")
  DB_MAX_IDLE_CONNS          Max idle database connections (default: "2")
  DB_CONN_MAX_LIFETIME       Max connection lifetime (default: "30m")
  DB_CONN_MAX_IDLE_TIME      Max connection idle time (default: "5m")

  HTTP_SHUTDOWN_TIMEOUT      Graceful HTTP shutdown timeout (default: "10s")

  METRICS_ENABLED            Enable Prometheus metrics (default: "false")
  METRICS_PATH               Metrics endpoint path (default: "/metrics")
  METRICS_PORT               Metrics server port (default: "9090")

  ANALYTICS_WINDOW           Analytics counter bucket: 1m, 5m or 1h (default: "1h")
  ANALYTICS_RETENTION        Analytics counter TTL (default: "24h")
  ANALYTICS_BUFFER           Preview events queued for the analytics writer (default: "256")
  CIRCUIT_BREAKER_THRESHOLD  Redis failures before the breaker opens, 0 disables (default: "5")
  CIRCUIT_BREAKER_COOLDOWN   Time before a half-open probe (default: "1m")`)
}

// runValidate checks an expression when one is given, otherwise the
// configuration. No connections are made.
func runValidate(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		expr, err := cron.Parse(strings.Join(args, " "))
		if err != nil {
			fmt.Fprintf(stderr, "invalid expression: %v\n", err)
			return exitInvalidConfig
		}
		fmt.Fprintf(stdout, "expression valid: %s\n", expr)
		return exitSuccess
	}

	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Fprintln(stdout, "configuration valid")
	return exitSuccess
}

func runConfig(stdout, stderr io.Writer) int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Fprintln(stdout, string(data))
	return exitSuccess
}

func runVersion(stdout io.Writer) int {
	fmt.Fprintf(stdout, "cronpeek version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
