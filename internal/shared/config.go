package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	AppEnv      string `koanf:"app_env" validate:"required"`
	HTTPAddr    string `koanf:"http_addr" validate:"required"`
	MetricsAddr string `koanf:"metrics_addr"`

	AmadeusBase         string        `koanf:"amadeus_base_url" validate:"required,url"`
	AmadeusClientID     string        `koanf:"amadeus_client_id"`
	AmadeusClientSecret string        `koanf:"amadeus_client_secret"`
	AmadeusRPS          int           `koanf:"amadeus_rps" validate:"gte=1"`
	AmadeusTimeout      time.Duration `koanf:"amadeus_timeout" validate:"gt=0"`

	SherpaBase string `koanf:"sherpa_base_url" validate:"required,url"`
	SherpaKey  string `koanf:"sherpa_api_key"`

	RedisAddr string `koanf:"redis_addr"`
	RedisPass string `koanf:"redis_password"`
	RedisDB   int    `koanf:"redis_db" validate:"gte=0"`

	MySQLDSN string `koanf:"mysql_dsn"`
}

func defaults() Config {
	return Config{
		AppEnv:         "prod",
		HTTPAddr:       ":5000",
		AmadeusBase:    "https://test.api.amadeus.com",
		AmadeusRPS:     10,
		AmadeusTimeout: 20 * time.Second,
		SherpaBase:     "https://api.joinsherpa.com",
	}
}

var envPrefixes = []string{"APP_", "HTTP_", "METRICS_", "AMADEUS_", "SHERPA_", "REDIS_", "MYSQL_"}

// Load reads the process environment (and a .env file, if present) on top of
// the defaults; empty variables count as unset. Provider credentials are not
// checked here; the clients that need them refuse to start without them.
func Load() (Config, error) {
	k := koanf.New(".")
	err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil // unset, keep the default
		}
		for _, p := range envPrefixes {
			if strings.HasPrefix(key, p) {
				return strings.ToLower(key), value
			}
		}
		return "", nil // not ours
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	c := defaults()
	if err := k.Unmarshal("", &c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.AmadeusBase = strings.TrimRight(c.AmadeusBase, "/")
	c.SherpaBase = strings.TrimRight(c.SherpaBase, "/")

	if err := validator.New().Struct(c); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}
