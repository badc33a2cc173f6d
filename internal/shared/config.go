package shared

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds runtime settings for the upcheck server. Defaults are the
// staging environment; set UPCHECK_ENV_NAME=production to flip the listen
// ports to their well-known values.
type Config struct {
	EnvName string `env:"UPCHECK_ENV_NAME" envDefault:"staging"`

	HTTPAddr    string `env:"UPCHECK_HTTP_ADDR" envDefault:":3000"`
	HTTPSAddr   string `env:"UPCHECK_HTTPS_ADDR" envDefault:":3001"`
	TLSCertFile string `env:"UPCHECK_TLS_CERT_FILE"`
	TLSKeyFile  string `env:"UPCHECK_TLS_KEY_FILE"`

	// StoreBackend selects the record store: "file" (one JSON file per
	// record) or "sqlite".
	StoreBackend string `env:"UPCHECK_STORE_BACKEND" envDefault:"file"`
	DataDir      string `env:"UPCHECK_DATA_DIR" envDefault:"./.data"`
	DBPath       string `env:"UPCHECK_DB_PATH" envDefault:"./.data/upcheck.db"`

	// HashingSecret keys the password digest. The dev default is fine
	// locally; override it in every real deployment.
	HashingSecret string        `env:"UPCHECK_HASHING_SECRET" envDefault:"dev-hashing-secret-change-me"`
	TokenTTL      time.Duration `env:"UPCHECK_TOKEN_TTL" envDefault:"1h"`
	MaxChecks     int           `env:"UPCHECK_MAX_CHECKS" envDefault:"5"`

	WorkerInterval time.Duration `env:"UPCHECK_WORKER_INTERVAL" envDefault:"1m"`

	TwilioAccountSID string `env:"UPCHECK_TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"UPCHECK_TWILIO_AUTH_TOKEN"`
	TwilioFromPhone  string `env:"UPCHECK_TWILIO_FROM_PHONE"`
	SMSCountryPrefix string `env:"UPCHECK_SMS_COUNTRY_PREFIX" envDefault:"+1"`
}

// LoadConfig builds a Config from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.EnvName == "production" {
		// ports left at their staging defaults swap to the well-known ones
		if cfg.HTTPAddr == ":3000" {
			cfg.HTTPAddr = ":80"
		}
		if cfg.HTTPSAddr == ":3001" {
			cfg.HTTPSAddr = ":443"
		}
	}
	if cfg.MaxChecks < 0 {
		return nil, fmt.Errorf("max checks must not be negative, got %d", cfg.MaxChecks)
	}
	return cfg, nil
}
