package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv               = "APP_ENV"
	EnvPort                 = "PORT"
	EnvLogLevel             = "LOG_LEVEL"
	EnvCTPClientID          = "CTP_CLIENT_ID"
	EnvCTPClientSecret      = "CTP_CLIENT_SECRET"
	EnvCTPProjectKey        = "CTP_PROJECT_KEY"
	EnvCTPAuthURL           = "CTP_AUTH_URL"
	EnvCTPAPIURL            = "CTP_API_URL"
	EnvSegmentWriteKey      = "SEGMENT_SOURCE_WRITE_KEY"
	EnvSegmentPublicAPIHost = "SEGMENT_PUBLIC_API_HOST"
	EnvLocale               = "LOCALE"
	EnvConsentFieldName     = "CONSENT_CUSTOM_FIELD_NAME"
	EnvRedisURL             = "REDIS_URL"
	EnvGCPProjectID         = "GCP_PROJECT_ID"
	EnvPubSubTopic          = "PUBSUB_TOPIC"
	EnvPubSubSubscription   = "PUBSUB_SUBSCRIPTION"
)

type Config struct {
	App           AppConfig
	Commercetools CommercetoolsConfig
	Segment       SegmentConfig
	Connector     ConnectorConfig
	Redis         RedisConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Eventing      EventingConfig
}

// Load reads the environment and runs the connector's field validators.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"APP_ENV" default:"dev"`
	Port         string `envconfig:"PORT" default:"8080"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type CommercetoolsConfig struct {
	ClientID     string        `envconfig:"CTP_CLIENT_ID" required:"true"`
	ClientSecret string        `envconfig:"CTP_CLIENT_SECRET" required:"true"`
	ProjectKey   string        `envconfig:"CTP_PROJECT_KEY" required:"true"`
	AuthURL      string        `envconfig:"CTP_AUTH_URL" required:"true"`
	APIURL       string        `envconfig:"CTP_API_URL" required:"true"`
	Scopes       []string      `envconfig:"CTP_SCOPES"`
	Timeout      time.Duration `envconfig:"CTP_HTTP_TIMEOUT" default:"10s"`
}

// ProjectScopes returns the configured scopes, or the read scopes the event handler needs.
func (c CommercetoolsConfig) ProjectScopes(extra ...string) []string {
	if len(c.Scopes) > 0 {
		return c.Scopes
	}
	names := append([]string{"view_orders", "view_customers"}, extra...)
	scopes := make([]string, 0, len(names))
	for _, name := range names {
		scopes = append(scopes, fmt.Sprintf("%s:%s", name, c.ProjectKey))
	}
	return scopes
}

type SegmentConfig struct {
	SourceWriteKey string        `envconfig:"SEGMENT_SOURCE_WRITE_KEY" required:"true"`
	AnalyticsHost  string        `envconfig:"SEGMENT_ANALYTICS_HOST" default:"https://api.segment.io"`
	PublicAPIHost  string        `envconfig:"SEGMENT_PUBLIC_API_HOST" default:"https://api.segmentapis.com"`
	PublicAPIToken string        `envconfig:"SEGMENT_PUBLIC_API_TOKEN"`
	Timeout        time.Duration `envconfig:"SEGMENT_HTTP_TIMEOUT" default:"10s"`
	MaxRetries     uint64        `envconfig:"SEGMENT_MAX_RETRIES" default:"3"`
	RetryBackoff   time.Duration `envconfig:"SEGMENT_RETRY_BACKOFF" default:"250ms"`
}

// ConnectorConfig holds the settings the event builders read.
type ConnectorConfig struct {
	Locale                 string `envconfig:"LOCALE" default:"en-US"`
	ConsentCustomFieldName string `envconfig:"CONSENT_CUSTOM_FIELD_NAME" default:"consent"`
	SubscriptionKey        string `envconfig:"CTP_SUBSCRIPTION_KEY" default:"ctp-segment-subscription"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	Address      string        `envconfig:"REDIS_ADDR"`
	Password     string        `envconfig:"REDIS_PASSWORD"`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis connection settings were supplied.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type GCPConfig struct {
	ProjectID string `envconfig:"GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	Topic        string `envconfig:"PUBSUB_TOPIC"`
	Subscription string `envconfig:"PUBSUB_SUBSCRIPTION"`
	// PushAudience enables OIDC verification of push requests when set.
	PushAudience string `envconfig:"PUBSUB_PUSH_AUDIENCE"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"EVENTING_IDEMPOTENCY_TTL" default:"72h"`
}

// Validate checks every field rule and reports all failures at once.
func (c *Config) Validate() error {
	var err error
	ctp := c.Commercetools

	if n := len(ctp.ClientID); n != 24 {
		err = multierr.Append(err, fmt.Errorf("%s: client id should be 24 characters, got %d", EnvCTPClientID, n))
	}
	if n := len(ctp.ClientSecret); n != 32 {
		err = multierr.Append(err, fmt.Errorf("%s: client secret should be 32 characters, got %d", EnvCTPClientSecret, n))
	}
	if strings.TrimSpace(ctp.ProjectKey) == "" {
		err = multierr.Append(err, fmt.Errorf("%s: project key should be a valid string", EnvCTPProjectKey))
	}
	err = multierr.Append(err, validateURL(EnvCTPAuthURL, ctp.AuthURL))
	err = multierr.Append(err, validateURL(EnvCTPAPIURL, ctp.APIURL))

	if n := len(c.Segment.SourceWriteKey); n < 1 || n > 128 {
		err = multierr.Append(err, fmt.Errorf("%s: segment source write key should be set", EnvSegmentWriteKey))
	}
	err = multierr.Append(err, validateURL("SEGMENT_ANALYTICS_HOST", c.Segment.AnalyticsHost))
	if c.Segment.PublicAPIHost != "" {
		err = multierr.Append(err, validateURL(EnvSegmentPublicAPIHost, c.Segment.PublicAPIHost))
	}

	if strings.TrimSpace(c.Connector.Locale) == "" {
		err = multierr.Append(err, fmt.Errorf("%s: locale is required", EnvLocale))
	}
	if strings.TrimSpace(c.Connector.ConsentCustomFieldName) == "" {
		err = multierr.Append(err, fmt.Errorf("%s: consent custom field name is required", EnvConsentFieldName))
	}

	return err
}

// RequirePubSub is checked by the entrypoints that talk to Pub/Sub directly.
func (c *Config) RequirePubSub(needSubscription bool) error {
	var err error
	if strings.TrimSpace(c.GCP.ProjectID) == "" {
		err = multierr.Append(err, fmt.Errorf("%s is required", EnvGCPProjectID))
	}
	if needSubscription && strings.TrimSpace(c.PubSub.Subscription) == "" {
		err = multierr.Append(err, fmt.Errorf("%s is required", EnvPubSubSubscription))
	}
	if !needSubscription && strings.TrimSpace(c.PubSub.Topic) == "" {
		err = multierr.Append(err, fmt.Errorf("%s is required", EnvPubSubTopic))
	}
	return err
}

func validateURL(name, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%s: url is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s: %q is not a valid url", name, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New(name + ": url scheme must be http or https")
	}
	return nil
}
