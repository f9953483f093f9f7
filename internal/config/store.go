package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hytalede/statistics/internal/domain"
	"github.com/hytalede/statistics/pkg/log"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

const (
	configName = "statistics"
	configType = "json"
	envPrefix  = "statistics"
)

//go:embed statistics.json
var defaultTemplate []byte

// HTTPConfig controls the optional local status server.
type HTTPConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Listen      string   `mapstructure:"listen"`
	PProf       bool     `mapstructure:"pprof"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// file mirrors the full on-disk document.
type file struct {
	Raw     `mapstructure:",squash"`
	Logging log.Config `mapstructure:"logging"`
	HTTP    HTTPConfig `mapstructure:"http"`
}

// Settings is everything loaded from a Store. Reporter holds the validated reporter config.
type Settings struct {
	Reporter Config
	Logging  log.Config
	HTTP     HTTPConfig
}

// Store reads settings from a json file, the environment and explicit overrides.
// A Store is not safe for concurrent use, load once at startup.
type Store struct {
	path  string
	viper *viper.Viper
}

// NewStore creates a store for path. An empty path searches the working directory, ./config and
// the home directory for statistics.json and falls back to the environment only.
func NewStore(path string) *Store {
	store := &Store{path: path, viper: viper.New()}
	store.setDefaults()

	return store
}

func (s *Store) setDefaults() {
	if s.path != "" {
		s.viper.SetConfigFile(s.path)
	} else {
		s.viper.AddConfigPath(".")
		s.viper.AddConfigPath("config")

		if home, errHomeDir := homedir.Dir(); errHomeDir == nil {
			s.viper.AddConfigPath(home)
		}

		s.viper.SetConfigName(configName)
	}

	s.viper.SetConfigType(configType)
	s.viper.SetEnvPrefix(envPrefix)
	s.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Camel case keys do not map onto env names automatically.
	envKeys := map[string]string{
		"endpoint":        "STATISTICS_ENDPOINT",
		"bearerToken":     "STATISTICS_BEARER_TOKEN",
		"vanityUrl":       "STATISTICS_VANITY_URL",
		"sendPlayerList":  "STATISTICS_SEND_PLAYER_LIST",
		"sendPluginList":  "STATISTICS_SEND_PLUGIN_LIST",
		"intervalSeconds": "STATISTICS_INTERVAL_SECONDS",
	}
	for key, env := range envKeys {
		_ = s.viper.BindEnv(key, env)
	}

	s.viper.AutomaticEnv()

	defaultConfig := map[string]any{
		"sendPlayerList":       false,
		"sendPluginList":       false,
		"logging.level":        string(log.Info),
		"logging.file":         "",
		"logging.sentry_dsn":   "",
		"logging.http_enabled": false,
		"logging.http_level":   string(log.Info),
		"http.enabled":         false,
		"http.listen":          "127.0.0.1:8910",
		"http.pprof":           false,
		"http.cors_origins":    []string{},
	}

	for configKey, value := range defaultConfig {
		s.viper.SetDefault(configKey, value)
	}
}

// OverrideInterval replaces any file or env provided interval. Used for command line flags.
func (s *Store) OverrideInterval(seconds int64) {
	s.viper.Set("intervalSeconds", seconds)
}

// OverrideLogLevel replaces any file or env provided log level.
func (s *Store) OverrideLogLevel(level log.Level) {
	s.viper.Set("logging.level", string(level))
}

// Load reads and validates the settings. Unknown keys are rejected.
func (s *Store) Load() (Settings, error) {
	if errRead := s.read(); errRead != nil {
		return Settings{}, errRead
	}

	var raw file
	if errUnmarshal := s.viper.UnmarshalExact(&raw); errUnmarshal != nil {
		return Settings{}, errors.Join(errUnmarshal, domain.ErrConfigRead)
	}

	conf, errConf := New(raw.Raw)
	if errConf != nil {
		return Settings{}, errConf
	}

	return Settings{Reporter: conf, Logging: raw.Logging, HTTP: raw.HTTP}, nil
}

func (s *Store) read() error {
	if s.path != "" {
		if _, errStat := os.Stat(s.path); errors.Is(errStat, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrConfigMissing, absPath(s.path))
		}
	}

	if errRead := s.viper.ReadInConfig(); errRead != nil {
		var notFound viper.ConfigFileNotFoundError
		if s.path == "" && errors.As(errRead, &notFound) {
			slog.Debug("No statistics config file found, using environment only")

			return nil
		}

		return errors.Join(errRead, domain.ErrConfigRead)
	}

	slog.Debug("Loaded statistics config", slog.String("path", s.viper.ConfigFileUsed()))

	return nil
}

// EnsureExists writes the default config template to path unless a file already exists there.
// Returns true when a new file was created.
func EnsureExists(path string) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("%w: config path must not be empty", domain.ErrConfigWrite)
	}

	if _, errStat := os.Stat(path); errStat == nil {
		return false, nil
	} else if !errors.Is(errStat, fs.ErrNotExist) {
		return false, errors.Join(errStat, domain.ErrConfigWrite)
	}

	if parent := filepath.Dir(path); parent != "" {
		if errMkDir := os.MkdirAll(parent, 0o755); errMkDir != nil {
			return false, errors.Join(errMkDir, domain.ErrConfigWrite)
		}
	}

	if errWrite := os.WriteFile(path, defaultTemplate, 0o600); errWrite != nil {
		return false, errors.Join(errWrite, domain.ErrConfigWrite)
	}

	slog.Info("Created default statistics config", slog.String("path", absPath(path)))
	slog.Info("Please open the file and fill in endpoint, bearerToken and vanityUrl before starting.")

	return true, nil
}

func absPath(path string) string {
	abs, errAbs := filepath.Abs(path)
	if errAbs != nil {
		return path
	}

	return abs
}
