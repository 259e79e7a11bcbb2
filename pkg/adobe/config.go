package adobe

import (
	"fmt"
	"time"
)

// Config carries the Adobe Developer Console credentials and service
// endpoints. The endpoint defaults target the production IMS and Firefly
// Services hosts; override them to run against a mock server.
type Config struct {
	ClientID     string `env:"CLIENT_ID,required"`
	ClientSecret string `env:"CLIENT_SECRET,required"`

	AuthURL          string `env:"ADOBE_AUTH_URL" envDefault:"https://ims-na1.adobelogin.com/ims/token/v3"`
	FireflyBaseURL   string `env:"FIREFLY_BASE_URL" envDefault:"https://firefly-api.adobe.io/v3"`
	PhotoshopBaseURL string `env:"PHOTOSHOP_BASE_URL" envDefault:"https://image.adobe.io/pie/psdService"`

	RequestTimeoutSeconds int `env:"REQUEST_TIMEOUT" envDefault:"30"`
	PollIntervalSeconds   int `env:"DEFAULT_POLL_INTERVAL" envDefault:"5"`
	MaxPollAttempts       int `env:"DEFAULT_MAX_ATTEMPTS" envDefault:"120"`
}

// RequestTimeout returns the per-request HTTP timeout.
func (c Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// PollInterval returns the delay between job status polls.
func (c Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c Config) validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("%w: client id and client secret are required", ErrInvalidConfig)
	}
	return nil
}
