package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_DEBUG_JSON allows dumping every websocket frame as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// How long a client waits for an expected frame before failing
	ReceiveTimeout time.Duration `envconfig:"E2E_RECEIVE_TIMEOUT" default:"3s"`
	// Shortened typing quantum so expiry is observable in test time
	TypingQuantum time.Duration `envconfig:"E2E_TYPING_QUANTUM" default:"1s"`
	SweepInterval time.Duration `envconfig:"E2E_SWEEP_INTERVAL" default:"100ms"`
	AuthSecret    string        `envconfig:"E2E_AUTH_SECRET" default:"e2e-test-secret"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
