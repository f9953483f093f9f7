// Package config holds the validated, immutable reporter configuration and the viper backed
// store that produces it.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/hytalede/statistics/internal/domain"
)

const (
	// DefaultInterval is used when no interval override is configured.
	DefaultInterval = 5 * time.Minute
	// MinInterval is the smallest accepted interval override.
	MinInterval = time.Second

	connectTimeout = 5 * time.Second
	// 15s base + 5s safety buffer.
	readTimeout = 20 * time.Second

	apiPathMarker = "/api/v1/"
	telemetryPath = "server-api/telemetry"
	pingPath      = "ping"
)

// Raw is the unvalidated configuration as decoded from a file, the environment or flags.
type Raw struct {
	Endpoint       string `mapstructure:"endpoint"`
	BearerToken    string `mapstructure:"bearerToken"`
	VanityURL      string `mapstructure:"vanityUrl"`
	SendPlayerList bool   `mapstructure:"sendPlayerList"`
	SendPluginList bool   `mapstructure:"sendPluginList"`
	// IntervalSeconds overrides DefaultInterval when set. Must be >= 1.
	IntervalSeconds *int64 `mapstructure:"intervalSeconds"`

	// Legacy keys. The ping endpoint is now derived from endpoint and timeouts are fixed.
	PingEndpoint string `mapstructure:"pingEndpoint"`
	Timeouts     any    `mapstructure:"timeouts"`
}

// Config is the validated reporter configuration. The zero value is not usable, use New.
type Config struct {
	endpoint          string
	telemetryEndpoint string
	pingEndpoint      string
	bearerToken       string
	vanityURL         string
	sendPlayerList    bool
	sendPluginList    bool
	interval          time.Duration
}

// New validates raw and resolves all derived values once. Any violation is returned
// wrapped in domain.ErrConfigValidation.
func New(raw Raw) (Config, error) {
	endpoint, errEndpoint := parseEndpoint(raw.Endpoint)
	if errEndpoint != nil {
		return Config{}, errEndpoint
	}

	token := strings.TrimSpace(raw.BearerToken)
	if token == "" {
		return Config{}, fmt.Errorf("%w: bearerToken must not be blank", domain.ErrConfigValidation)
	}

	vanity := domain.NormalizeVanityURL(raw.VanityURL)
	if !domain.ValidVanityURL(vanity) {
		return Config{}, fmt.Errorf("%w: vanityUrl must match %s", domain.ErrConfigValidation, domain.VanityURLPattern)
	}

	interval, errInterval := resolveInterval(raw.IntervalSeconds)
	if errInterval != nil {
		return Config{}, errInterval
	}

	return Config{
		endpoint:          endpoint.String(),
		telemetryEndpoint: endpoint.ResolveReference(&url.URL{Path: telemetryPath}).String(),
		pingEndpoint:      endpoint.ResolveReference(&url.URL{Path: pingPath}).String(),
		bearerToken:       token,
		vanityURL:         vanity,
		sendPlayerList:    raw.SendPlayerList,
		sendPluginList:    raw.SendPluginList,
		interval:          interval,
	}, nil
}

func parseEndpoint(value string) (*url.URL, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: endpoint must be present", domain.ErrConfigValidation)
	}

	if !strings.HasSuffix(value, "/") {
		value += "/"
	}

	endpoint, errParse := url.Parse(value)
	if errParse != nil {
		return nil, fmt.Errorf("%w: endpoint is not a valid url: %w", domain.ErrConfigValidation, errParse)
	}

	if (endpoint.Scheme != "http" && endpoint.Scheme != "https") || endpoint.Host == "" {
		return nil, fmt.Errorf("%w: endpoint must be an absolute URL (e.g. https://hyrp.de/api/v1/)", domain.ErrConfigValidation)
	}

	if !strings.Contains(endpoint.Path, apiPathMarker) {
		return nil, fmt.Errorf("%w: endpoint must include %s (e.g. https://hyrp.de/api/v1/)", domain.ErrConfigValidation, apiPathMarker)
	}

	return endpoint, nil
}

func resolveInterval(seconds *int64) (time.Duration, error) {
	if seconds == nil {
		return DefaultInterval, nil
	}

	if *seconds > math.MaxInt64/int64(time.Second) {
		return 0, fmt.Errorf("%w: intervalSeconds is too large, got %d", domain.ErrConfigValidation, *seconds)
	}

	interval := time.Duration(*seconds) * time.Second
	if interval < MinInterval {
		return 0, fmt.Errorf("%w: intervalSeconds must be >= 1, got %d", domain.ErrConfigValidation, *seconds)
	}

	return interval, nil
}

// Endpoint is the normalized base API url, always ending with a slash.
func (c Config) Endpoint() string {
	return c.endpoint
}

func (c Config) TelemetryEndpoint() string {
	return c.telemetryEndpoint
}

func (c Config) PingEndpoint() string {
	return c.pingEndpoint
}

func (c Config) BearerToken() string {
	return c.bearerToken
}

func (c Config) VanityURL() string {
	return c.vanityURL
}

func (c Config) SendPlayerList() bool {
	return c.sendPlayerList
}

func (c Config) SendPluginList() bool {
	return c.sendPluginList
}

func (c Config) Interval() time.Duration {
	return c.interval
}

func (c Config) ConnectTimeout() time.Duration {
	return connectTimeout
}

func (c Config) ReadTimeout() time.Duration {
	return readTimeout
}

// LogValue keeps the bearer token out of log output.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("endpoint", c.endpoint),
		slog.String("vanity_url", c.vanityURL),
		slog.Bool("send_player_list", c.sendPlayerList),
		slog.Bool("send_plugin_list", c.sendPluginList),
		slog.Duration("interval", c.interval))
}
