package config // package config loads application configuration from environment variables

import (
	"log"  // log is used to report configuration errors and halt execution
	"os"   // os provides access to environment variables
	"time" // time resolves the studio time zone
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The studio operates in one fixed time
// zone; every piece of date arithmetic in the engine goes through
// Location, never through the server's local zone.
type Config struct {
	Env            string         // application environment (e.g. "dev", "prod")
	Port           string         // HTTP port to listen on
	DBUser         string         // database username
	DBPass         string         // database password (optional)
	DBHost         string         // database host address
	DBPort         string         // database port number
	DBName         string         // database name
	DBMaxOpenConns int            // connection pool cap
	DBMaxIdleConns int            // idle connections kept around
	DBConnLifetime time.Duration  // recycle connections after this long
	JWTSecret      string         // secret used to verify operator JWTs
	StudioTimezone string         // IANA zone name, e.g. "America/Santiago"
	Location       *time.Location // resolved from StudioTimezone
}

// Load reads configuration values from environment variables and
// returns a Config.  Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	tzName := must("STUDIO_TIMEZONE")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Fatalf("invalid STUDIO_TIMEZONE %q: %v", tzName, err)
	}
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		DBMaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 10),
		DBConnLifetime: envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		JWTSecret:      must("JWT_SECRET"),
		StudioTimezone: tzName,
		Location:       loc,
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
