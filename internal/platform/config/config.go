// Package config builds the process configuration from environment
// variables so main stays lean.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	id "salegate/pkg/domain"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
}

// Sale captures the construction-time sale parameters.
type Sale struct {
	Master                id.Identity
	SupplyCap             id.Amount
	BaseRate              uint64
	WindowStart           time.Time
	WindowEnd             time.Time
	VerificationRequired  bool
	SettlementDestination id.Identity
}

// Postgres captures the relational store configuration. An empty URL
// selects the in-memory stores.
type Postgres struct {
	URL string
}

// Redis captures the pause-switch store configuration. An empty URL
// selects the in-memory switch.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the audit stream configuration. Empty brokers disable
// the outbox worker.
type Kafka struct {
	Brokers []string
	Topic   string
}

type Config struct {
	Server   Server
	Sale     Sale
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
}

// defaultSupplyCap is the total sellable inventory in smallest asset
// units.
const defaultSupplyCap = "1969800000000000"

// defaultBaseRate is asset units delivered per native unit paid, scaled
// by the native unit.
const defaultBaseRate = 400

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:          envOr("SALEGATE_ADDR", ":8080"),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:     envOr("JWT_ISSUER", "salegate"),
			JWTAudience:   envOr("JWT_AUDIENCE", "salegate-api"),
		},
		Postgres: Postgres{
			URL: os.Getenv("POSTGRES_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitComma(brokers)
		cfg.Kafka.Topic = envOr("KAFKA_AUDIT_TOPIC", "salegate.audit")
	}

	master, err := id.ParseIdentity(os.Getenv("SALE_MASTER"))
	if err != nil {
		return Config{}, fmt.Errorf("SALE_MASTER: %w", err)
	}
	cfg.Sale.Master = master

	capRaw := envOr("SALE_SUPPLY_CAP", defaultSupplyCap)
	capInt, ok := new(big.Int).SetString(capRaw, 10)
	if !ok {
		return Config{}, fmt.Errorf("SALE_SUPPLY_CAP: not a decimal integer: %q", capRaw)
	}
	supplyCap, err := id.NewAmountFromBig(capInt)
	if err != nil {
		return Config{}, fmt.Errorf("SALE_SUPPLY_CAP: %w", err)
	}
	cfg.Sale.SupplyCap = supplyCap

	rateRaw := envOr("SALE_BASE_RATE", strconv.Itoa(defaultBaseRate))
	rate, err := strconv.ParseUint(rateRaw, 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("SALE_BASE_RATE: %w", err)
	}
	cfg.Sale.BaseRate = rate

	start, err := envTime("SALE_WINDOW_START")
	if err != nil {
		return Config{}, err
	}
	end, err := envTime("SALE_WINDOW_END")
	if err != nil {
		return Config{}, err
	}
	cfg.Sale.WindowStart = start
	cfg.Sale.WindowEnd = end

	cfg.Sale.VerificationRequired = os.Getenv("SALE_VERIFICATION_REQUIRED") != "false"

	if dest := os.Getenv("SALE_SETTLEMENT_DESTINATION"); dest != "" {
		settlement, err := id.ParseIdentity(dest)
		if err != nil {
			return Config{}, fmt.Errorf("SALE_SETTLEMENT_DESTINATION: %w", err)
		}
		cfg.Sale.SettlementDestination = settlement
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envTime(key string) (time.Time, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required (RFC 3339)", key)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}

func splitComma(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
