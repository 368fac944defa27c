package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bibbank/microloan/internal/domain/service"
	"github.com/bibbank/microloan/pkg/auth"
	"github.com/bibbank/microloan/pkg/kafka"
	"github.com/bibbank/microloan/pkg/observability"
	"github.com/bibbank/microloan/pkg/postgres"
)

// Ledger backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	AppName  string
}

// Postgres converts to the shared pool config.
func (d DatabaseConfig) Postgres() postgres.Config {
	return postgres.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Name,
		SSLMode:         d.SSLMode,
		MaxConns:        int32(d.MaxConns),
		ApplicationName: d.AppName,
		ConnectTimeout:  5 * time.Second,
	}
}

type KafkaConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	TLS           bool
	SASLEnabled   bool
	SASLMechanism string
	SASLUsername  string
	SASLPassword  string
}

// Client converts to the shared Kafka client config.
func (k KafkaConfig) Client() kafka.Config {
	return kafka.Config{
		Brokers:       k.Brokers,
		ConsumerGroup: k.ConsumerGroup,
		TLS:           k.TLS,
		SASLEnabled:   k.SASLEnabled,
		SASLMechanism: k.SASLMechanism,
		SASLUsername:  k.SASLUsername,
		SASLPassword:  k.SASLPassword,
	}
}

type OutboxConfig struct {
	Interval  time.Duration
	BatchSize int
}

type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OTLPEndpoint  string
	OTLPInsecure  bool
	MetricsEnable bool
}

// Logging returns the logger settings.
func (t TelemetryConfig) Logging() observability.LogConfig {
	return observability.LogConfig{Level: t.LogLevel, Format: t.LogFormat}
}

// Tracing returns the OTLP exporter settings for service.
func (t TelemetryConfig) Tracing(service string) observability.TracingConfig {
	return observability.TracingConfig{ServiceName: service, Endpoint: t.OTLPEndpoint, Insecure: t.OTLPInsecure}
}

// AuthConfig selects how bearer tokens are validated: an RSA public key
// (inline or from a file) or, for development, a shared secret.
type AuthConfig struct {
	PublicKey     string
	PublicKeyFile string
	Secret        string
	Issuer        string
}

// JWT resolves the key material into a validator configuration.
func (a AuthConfig) JWT() (auth.JWTConfig, error) {
	cfg := auth.JWTConfig{Issuer: a.Issuer, Leeway: 30 * time.Second}
	switch {
	case a.PublicKey != "":
		cfg.PublicKeyPEM = a.PublicKey
	case a.PublicKeyFile != "":
		pem, err := auth.LoadKeyFromFile(a.PublicKeyFile)
		if err != nil {
			return cfg, err
		}
		cfg.PublicKeyPEM = pem
	default:
		cfg.Secret = a.Secret
	}
	return cfg, nil
}

// TLSConfig enables gRPC TLS when both files are set.
type TLSConfig struct {
	CertFile     string
	KeyFile      string
	ClientCAFile string
}

func (t TLSConfig) Enabled() bool { return t.CertFile != "" && t.KeyFile != "" }

type Config struct {
	GRPCPort    int
	HTTPPort    int
	Backend     string
	DB          DatabaseConfig
	Kafka       KafkaConfig
	Outbox      OutboxConfig
	Telemetry   TelemetryConfig
	Auth        AuthConfig
	TLS         TLSConfig
	Reflection  bool
	Policy      service.Policy
	ServiceName string
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendPostgres:
		if c.DB.Password == "" {
			errs = append(errs, errors.New("DB_PASSWORD environment variable is required"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("LEDGER_BACKEND %q must be %q or %q", c.Backend, BackendPostgres, BackendMemory))
	}
	if len(c.Kafka.Brokers) == 0 && c.Backend == BackendPostgres {
		errs = append(errs, errors.New("KAFKA_BROKERS is required with the postgres backend"))
	}
	if c.Auth.PublicKey == "" && c.Auth.PublicKeyFile == "" && c.Auth.Secret == "" {
		errs = append(errs, errors.New("one of JWT_PUBLIC_KEY, JWT_PUBLIC_KEY_FILE or JWT_SECRET is required"))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("GRPC_TLS_CERT_FILE and GRPC_TLS_KEY_FILE must be set together"))
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	}
	return errors.Join(errs...)
}

func Load() Config {
	policy := service.DefaultPolicy()
	policy.GracePeriod = time.Duration(getEnvInt("GRACE_PERIOD_DAYS", 2)) * 24 * time.Hour
	policy.DailyFineRateBp = uint64(getEnvInt("DAILY_FINE_RATE_BP", int(policy.DailyFineRateBp)))
	policy.MinCreditScoreForLoan = uint16(getEnvInt("MIN_CREDIT_SCORE_FOR_LOAN", 0))
	policy.RejectCriticalRisk = getEnvBool("REJECT_CRITICAL_RISK", false)

	return Config{
		GRPCPort: getEnvInt("GRPC_PORT", 9090),
		HTTPPort: getEnvInt("HTTP_PORT", 8080),
		Backend:  getEnv("LEDGER_BACKEND", BackendPostgres),
		DB: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "microloan"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "microloan"),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			AppName:  "microloand",
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", "localhost:9092"),
			Topic:         getEnv("KAFKA_TOPIC", "microloan.events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "microloan-indexer"),
			TLS:           getEnvBool("KAFKA_TLS", false),
			SASLEnabled:   getEnvBool("KAFKA_SASL_ENABLED", false),
			SASLMechanism: getEnv("KAFKA_SASL_MECHANISM", "PLAIN"),
			SASLUsername:  getEnv("KAFKA_SASL_USERNAME", ""),
			SASLPassword:  getEnv("KAFKA_SASL_PASSWORD", ""),
		},
		Outbox: OutboxConfig{
			Interval:  getEnvDuration("OUTBOX_INTERVAL", time.Second),
			BatchSize: getEnvInt("OUTBOX_BATCH_SIZE", 100),
		},
		Telemetry: TelemetryConfig{
			LogLevel:      getEnv("LOG_LEVEL", "info"),
			LogFormat:     getEnv("LOG_FORMAT", "json"),
			OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPInsecure:  getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),
			MetricsEnable: getEnvBool("METRICS_ENABLED", true),
		},
		Auth: AuthConfig{
			PublicKey:     getEnv("JWT_PUBLIC_KEY", ""),
			PublicKeyFile: getEnv("JWT_PUBLIC_KEY_FILE", ""),
			Secret:        getEnv("JWT_SECRET", ""),
			Issuer:        getEnv("JWT_ISSUER", "bib-gateway"),
		},
		TLS: TLSConfig{
			CertFile:     getEnv("GRPC_TLS_CERT_FILE", ""),
			KeyFile:      getEnv("GRPC_TLS_KEY_FILE", ""),
			ClientCAFile: getEnv("GRPC_TLS_CLIENT_CA_FILE", ""),
		},
		Reflection:  getEnvBool("GRPC_REFLECTION", false),
		Policy:      policy,
		ServiceName: "microloand",
	}
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, s := range strings.Split(getEnv(key, fallback), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
