package config // package config loads application configuration from environment variables

import (
    "os"
    "strconv"
    "strings"

    "github.com/joho/godotenv"
    log "github.com/sirupsen/logrus"

    "github.com/iliyamo/event-ticket-registry/internal/model"
)

// Store drivers.  DriverMySQL persists the ledger, registry and accounts;
// DriverMemory keeps everything in process and is lost on restart.
const (
    DriverMySQL  = "mysql"
    DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    StoreDriver    string // DriverMySQL or DriverMemory
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing
    RabbitURL      string // AMQP URL; empty disables event publishing
    AuditLogDir    string // directory the event consumer appends to; empty disables it
    Ticket         TicketConfig
}

// TicketConfig is the issuance policy written on first start.  Later starts
// restore the stored policy; MaxTickets can never change once stored.
//
// The administrator is either an already registered account (Admin) or an
// account seeded from AdminEmail and AdminPassword on first start.  Either
// way it must exist before the policy is written, so nobody can claim the
// role by registering first.
type TicketConfig struct {
    Name          string
    Symbol        string
    Price         model.Amount
    MaxTickets    uint64
    Admin         model.AccountID
    AdminEmail    string
    AdminPassword string
}

// Load reads an optional .env file, then the environment.  Variables already
// set in the environment win over the file.  Missing required values are
// fatal.
func Load() Config {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.WithError(err).Warn("could not read .env")
    }

    cfg := Config{
        Env:            envStr("APP_ENV", "dev"),
        Port:           must("APP_PORT"),
        StoreDriver:    strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
        RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
        BcryptCost:     envInt("BCRYPT_COST", 12),
        RabbitURL:      os.Getenv("RABBITMQ_URL"),
        AuditLogDir:    os.Getenv("AUDIT_LOG_DIR"),
        Ticket: TicketConfig{
            Name:       envStr("TICKET_NAME", "Event Ticket"),
            Symbol:     envStr("TICKET_SYMBOL", "TCKT"),
            Price:      mustAmount("TICKET_PRICE"),
            MaxTickets: mustUint("MAX_TICKETS"),
            Admin:         model.AccountID(os.Getenv("ADMIN_ACCOUNT")),
            AdminEmail:    os.Getenv("ADMIN_EMAIL"),
            AdminPassword: os.Getenv("ADMIN_PASSWORD"),
        },
    }
    if cfg.Ticket.Admin == "" && cfg.Ticket.AdminEmail == "" {
        log.Fatal("missing required env var: ADMIN_ACCOUNT or ADMIN_EMAIL")
    }

    switch cfg.StoreDriver {
    case DriverMySQL:
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = os.Getenv("DB_PASS")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    case DriverMemory:
    default:
        log.Fatalf("unknown STORE_DRIVER %q (want %s or %s)", cfg.StoreDriver, DriverMySQL, DriverMemory)
    }
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

func mustUint(key string) uint64 {
    s := must(key)
    n, err := strconv.ParseUint(s, 10, 64)
    if err != nil {
        log.Fatalf("invalid unsigned int for %s: %q", key, s)
    }
    return n
}

// mustAmount parses a price in base units.  Decimal points are rejected;
// 0.01 of a currency must be configured as its base-unit integer.
func mustAmount(key string) model.Amount {
    s := must(key)
    a, err := model.ParseAmount(s)
    if err != nil {
        log.Fatalf("invalid amount for %s: %q", key, s)
    }
    return a
}
