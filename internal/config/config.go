package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Totals check policies for caller-supplied order totals.
const (
	TotalsCheckOff    = "off"
	TotalsCheckLog    = "log"
	TotalsCheckReject = "reject"
)

// Config holds all runtime settings, read from the environment.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	DBHost         string `envconfig:"DB_HOST" default:"localhost"`
	DBPort         string `envconfig:"DB_PORT" default:"5432"`
	DBUser         string `envconfig:"DB_USER" default:"pos_user"`
	DBPassword     string `envconfig:"DB_PASSWORD" default:"pos_password"`
	DBName         string `envconfig:"DB_NAME" default:"restaurant_pos_db"`
	DBSSLMode      string `envconfig:"DB_SSLMODE" default:"disable"`
	DBSchemaPath   string `envconfig:"DB_SCHEMA_PATH" default:""`
	DBAutoMigrate  bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
	DBMaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	DBMaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`

	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	JWTAccessTTL  time.Duration `envconfig:"JWT_ACCESS_TTL" default:"15m"`
	JWTRefreshTTL time.Duration `envconfig:"JWT_REFRESH_TTL" default:"168h"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:3001"`

	RabbitMQURL    string `envconfig:"RABBITMQ_URL" default:""` // empty disables event publishing
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"pos_events"`

	OrderTotalsCheck string `envconfig:"ORDER_TOTALS_CHECK" default:"log"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.OrderTotalsCheck = strings.ToLower(strings.TrimSpace(c.OrderTotalsCheck))
	switch c.OrderTotalsCheck {
	case TotalsCheckOff, TotalsCheckLog, TotalsCheckReject:
	default:
		return fmt.Errorf("ORDER_TOTALS_CHECK must be one of off, log, reject; got %q", c.OrderTotalsCheck)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.DBMaxIdleConns > c.DBMaxOpenConns {
		c.DBMaxIdleConns = c.DBMaxOpenConns
	}
	return nil
}

// DSN returns the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}
