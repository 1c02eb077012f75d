package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Drivers de base de datos soportados.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Politicas ante un fallo de inicializacion de la base.
const (
	PolicyDegraded = "degraded"
	PolicyFatal    = "fatal"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort        string        `env:"PORT" envDefault:"3000"`
	Environment     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Database DatabaseConfig
	CORS     CORSConfig

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CountCacheTTL time.Duration `env:"COUNT_CACHE_TTL" envDefault:"30s"`
}

// CORSConfig controla los headers CORS. Sin origenes configurados se
// permite cualquiera (*).
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	MaxAge         int      `env:"CORS_MAX_AGE" envDefault:"600"`
}

// DatabaseConfig agrupa la conexión a la base de mensajes.
type DatabaseConfig struct {
	Driver        string `env:"DB_DRIVER" envDefault:"mysql"`
	Host          string `env:"DB_HOST"`
	Port          int    `env:"DB_PORT"`
	User          string `env:"DB_USER"`
	Password      string `env:"DB_PASSWORD"`
	Name          string `env:"DB_NAME"`
	SSL           bool   `env:"DB_SSL" envDefault:"false"`
	SSLSkipVerify bool   `env:"DB_SSL_SKIP_VERIFY" envDefault:"false"`
	// Path solo lo usa el driver sqlite.
	Path string `env:"DB_PATH"`

	MaxConns          int           `env:"DB_MAX_CONNS" envDefault:"10"`
	PingTimeout       time.Duration `env:"DB_PING_TIMEOUT" envDefault:"5s"`
	QueryTimeout      time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"60s"`
	InitFailurePolicy string        `env:"DB_INIT_FAILURE_POLICY" envDefault:"degraded"`
}

// Configured indica si hay datos suficientes para abrir un pool.
// Sin configuracion el servicio arranca en modo degradado.
func (d DatabaseConfig) Configured() bool {
	if d.Driver == DriverSQLite {
		return strings.TrimSpace(d.Path) != ""
	}
	return strings.TrimSpace(d.Host) != ""
}

// Address devuelve host:port para los drivers de red.
func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// IsProduction indica si APP_ENV pide logging de produccion.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	db := &c.Database
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	if db.Driver == "" {
		db.Driver = DriverMySQL
	}
	switch db.Driver {
	case DriverMySQL:
		if db.Port == 0 {
			db.Port = 3306
		}
	case DriverPostgres:
		if db.Port == 0 {
			db.Port = 5432
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: expected mysql, postgres or sqlite", db.Driver)
	}

	db.InitFailurePolicy = strings.ToLower(strings.TrimSpace(db.InitFailurePolicy))
	if db.InitFailurePolicy != PolicyDegraded && db.InitFailurePolicy != PolicyFatal {
		return fmt.Errorf("invalid DB_INIT_FAILURE_POLICY %q: expected degraded or fatal", db.InitFailurePolicy)
	}
	origins := c.CORS.AllowedOrigins[:0]
	for _, o := range c.CORS.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORS.AllowedOrigins = origins

	if db.MaxConns <= 0 {
		return fmt.Errorf("invalid DB_MAX_CONNS %d: must be positive", db.MaxConns)
	}
	return nil
}
