package internal

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/nfowatch/nfowatch/internal/database"
	"github.com/nfowatch/nfowatch/internal/http/tmdb"
)

// Config is the struct used to contain the various user config
// supplied by file, or manually inside the code.
type Config struct {
	Monitor  MonitorDefaults         `yaml:"monitor"`
	Database database.DatabaseConfig `yaml:"database" env-required:"true"`
	TmdbKey  string                  `yaml:"tmdb_api_key" env:"TMDB_API_KEY" env-required:"true"`
	LogLevel int                     `yaml:"log_level" env:"LOG_LEVEL" env-default:"3"`
}

// MonitorDefaults seeds the watch configuration on first run; once a
// configuration row exists in the database, it takes precedence and these
// values are ignored.
type MonitorDefaults struct {
	WatchedFolders    []string `yaml:"watched_folders" env:"WATCHED_FOLDERS"`
	PreferredProvider string   `yaml:"preferred_provider" env:"PREFERRED_PROVIDER" env-default:"tmdb"`
	AutoProcess       bool     `yaml:"auto_process" env:"AUTO_PROCESS" env-default:"true"`
}

// Loads a configuration file formatted in YAML in to a
// Config struct ready to be passed to the service composition.
func (config *Config) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration - %v", err.Error())
	}

	return nil
}

func (config *Config) tmdbConfig() tmdb.Config {
	return tmdb.Config{APIKey: config.TmdbKey}
}
